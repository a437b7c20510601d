package usecase

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/star-neighbours/internal/domain"
	"github.com/naka-gawa/star-neighbours/internal/gateway"
)

// DefaultConcurrency bounds how many starred listings are fetched at once.
const DefaultConcurrency = 20

// Aggregator is the use case for folding stargazers' starred repositories into
// an overlap tally. It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher     gateway.Fetcher
	concurrency int
	logger      *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, concurrency int, logger *log.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Aggregate performs the main business logic.
//
// The starred listing of every stargazer is fetched concurrently, bounded by the
// aggregator's concurrency, and read up to maxReposPerStargazer repositories. Each
// listing is deduplicated privately and merged into the tally once it completes, so
// the result does not depend on completion order. A stargazer whose listing cannot
// be read is counted in Skipped and contributes nothing. Only cancellation of ctx
// aborts the aggregation; partial tallies are then discarded.
func (a *Aggregator) Aggregate(ctx context.Context, stargazers []domain.StargazerID, target domain.Repository, maxReposPerStargazer int) (*domain.OverlapTally, error) {
	a.logger.Debug("Usecase: Starting overlap aggregation...", "stargazers", len(stargazers))

	tally := domain.NewOverlapTally()
	tally.Target = target
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)

	seen := make(map[domain.StargazerID]struct{}, len(stargazers))
	for _, stargazer := range stargazers {
		if _, dup := seen[stargazer]; dup {
			continue
		}
		seen[stargazer] = struct{}{}
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			starred, truncated, err := a.starredBy(egCtx, stargazer, target.ID, maxReposPerStargazer)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.logger.Warn("Skipping stargazer", "stargazer", stargazer, "kind", domain.KindOf(err), "err", err)
				mu.Lock()
				tally.Skipped++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			tally.Sampled++
			tally.Truncated = tally.Truncated || truncated
			for _, repo := range starred {
				if tally.Add(domain.StarEdge{Stargazer: stargazer, Repository: repo.ID}) {
					tally.Stars[repo.ID] = repo.Stargazers
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.logger.Debug("Usecase: Aggregation complete.", "candidates", len(tally.Shared), "skipped", tally.Skipped)
	return tally, nil
}

// starredBy reads the distinct repositories user starred, minus target, up to the cap.
// The cap counts every distinct repository read, target included.
func (a *Aggregator) starredBy(ctx context.Context, user domain.StargazerID, target domain.RepositoryID, maxRepos int) ([]domain.Repository, bool, error) {
	seen := make(map[domain.RepositoryID]struct{})
	repos := make([]domain.Repository, 0)
	truncated := false

	perPage := min(maxRepos+1, gateway.MaxPerPage)
	for repo, err := range a.fetcher.Starred(ctx, user, perPage) {
		if err != nil {
			if domain.IsKind(err, domain.KindPaginationLimit) || len(seen) >= maxRepos {
				truncated = true
				break
			}
			return nil, false, err
		}
		if _, dup := seen[repo.ID]; dup {
			continue
		}
		if len(seen) >= maxRepos {
			truncated = true
			break
		}
		seen[repo.ID] = struct{}{}
		if repo.ID.Same(target) {
			continue
		}
		repos = append(repos, repo)
	}
	return repos, truncated, nil
}
