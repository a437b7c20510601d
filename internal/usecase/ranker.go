package usecase

import (
	"math"
	"sort"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

// Rank turns a tally into neighbours ordered by shared count, descending, with
// ties broken by repository id, ascending. Candidates sharing fewer than
// minShared stargazers are dropped and the list is cut to maxResults.
func Rank(tally *domain.OverlapTally, minShared, maxResults int) ([]domain.Neighbour, error) {
	if maxResults <= 0 {
		return nil, domain.NewError(domain.KindInvalidConfiguration, "maxResults must be positive, got %d", maxResults)
	}

	neighbours := make([]domain.Neighbour, 0, len(tally.Shared))
	for repo, shared := range tally.Shared {
		if repo.Same(tally.Target.ID) || len(shared) < minShared {
			continue
		}
		stargazers := append([]domain.StargazerID(nil), shared...)
		sort.Slice(stargazers, func(i, j int) bool { return stargazers[i] < stargazers[j] })
		neighbours = append(neighbours, domain.Neighbour{
			Repository:       repo,
			SharedStargazers: len(shared),
			Stargazers:       stargazers,
			Jaccard:          jaccard(len(shared), tally.Target.Stargazers, tally.Stars[repo]),
		})
	}

	sort.Slice(neighbours, func(i, j int) bool {
		if neighbours[i].SharedStargazers != neighbours[j].SharedStargazers {
			return neighbours[i].SharedStargazers > neighbours[j].SharedStargazers
		}
		return neighbours[i].Repository < neighbours[j].Repository
	})

	if len(neighbours) > maxResults {
		neighbours = neighbours[:maxResults]
	}
	return neighbours, nil
}

// jaccard estimates |A∩B| / |A∪B| from the shared count and both star totals.
// Totals lag behind the sample now and then, so neither may fall below shared.
func jaccard(shared, targetStars, candidateStars int) float64 {
	union := max(targetStars, shared) + max(candidateStars, shared) - shared
	if union <= 0 {
		return 0
	}
	return math.Round(float64(shared)/float64(union)*1e4) / 1e4
}
