// Package usecase contains the business logic of the application.
package usecase

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/naka-gawa/star-neighbours/internal/domain"
	"github.com/naka-gawa/star-neighbours/internal/gateway"
)

// Sample is the set of target stargazers that the overlap is computed from.
type Sample struct {
	// Stargazers are distinct, in the order GitHub listed them.
	Stargazers []domain.StargazerID
	// Truncated is set when the repository has more stargazers than were sampled.
	Truncated bool
}

// Collector samples the stargazers of a repository.
type Collector struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger *log.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect returns up to maxStargazers distinct stargazers of repo.
//
// Beyond the cap the sample is the prefix GitHub returned first, not a random
// draw. A repository that cannot be found yields an empty sample; any other
// failure to list yields KindUpstreamUnavailable.
func (c *Collector) Collect(ctx context.Context, repo domain.RepositoryID, maxStargazers int) (*Sample, error) {
	sample := &Sample{Stargazers: make([]domain.StargazerID, 0)}
	seen := make(map[domain.StargazerID]struct{})

	// One extra item past the cap is read to tell whether the cap was hit.
	perPage := min(maxStargazers+1, gateway.MaxPerPage)
	for login, err := range c.fetcher.Stargazers(ctx, repo, perPage) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			switch {
			case domain.IsKind(err, domain.KindNotFound):
				c.logger.Warn("Stargazer listing not found, treating as empty", "repository", repo, "collected", len(sample.Stargazers))
				return sample, nil
			case domain.IsKind(err, domain.KindPaginationLimit):
				sample.Truncated = true
				return sample, nil
			case len(sample.Stargazers) >= maxStargazers:
				// The sample is already full; only the look-ahead failed.
				sample.Truncated = true
				return sample, nil
			}
			return nil, domain.WrapError(domain.KindUpstreamUnavailable, err, "failed to list stargazers of %s", repo)
		}
		if _, dup := seen[login]; dup {
			continue
		}
		if len(sample.Stargazers) >= maxStargazers {
			sample.Truncated = true
			break
		}
		seen[login] = struct{}{}
		sample.Stargazers = append(sample.Stargazers, login)
	}
	c.logger.Debug("Collected stargazers", "repository", repo, "count", len(sample.Stargazers), "truncated", sample.Truncated)
	return sample, nil
}
