package usecase

import (
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

// Summarize describes the shared-count distribution over every candidate in the tally.
func Summarize(tally *domain.OverlapTally) domain.Summary {
	counts := make(stats.Float64Data, 0, len(tally.Shared))
	for _, shared := range tally.Shared {
		counts = append(counts, float64(len(shared)))
	}
	summary := domain.Summary{Candidates: len(counts)}
	if len(counts) == 0 {
		return summary
	}

	mean, _ := counts.Mean()
	median, _ := counts.Median()
	summary.MeanShared, _ = stats.Round(mean, 2)
	summary.MedianShared = median

	// Percentile has no answer for very small inputs; the maximum stands in.
	p90, err := counts.Percentile(90)
	if err != nil {
		p90, _ = counts.Max()
	}
	summary.P90Shared = p90
	return summary
}
