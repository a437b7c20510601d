package domain

import "time"

// OverlapTally maps each candidate repository to the distinct target stargazers
// who also starred it. The target repository itself is never present.
type OverlapTally struct {
	// Target is the repository whose neighbours are being tallied.
	Target Repository
	// Shared holds, per candidate, the stargazers it shares with the target.
	Shared map[RepositoryID][]StargazerID
	// Stars holds the candidate's total stargazer count as reported by GitHub.
	Stars map[RepositoryID]int
	// Sampled is the number of target stargazers whose starred repositories were read.
	Sampled int
	// Skipped is the number of stargazers whose starred listing could not be read.
	Skipped int
	// Truncated is set when a per-stargazer cap cut a listing short.
	Truncated bool

	edges map[StarEdge]struct{}
}

// NewOverlapTally returns an empty tally.
func NewOverlapTally() *OverlapTally {
	return &OverlapTally{
		Shared: make(map[RepositoryID][]StargazerID),
		Stars:  make(map[RepositoryID]int),
		edges:  make(map[StarEdge]struct{}),
	}
}

// Add records edge unless it was already recorded or points at the target.
// It reports whether the tally changed.
func (t *OverlapTally) Add(edge StarEdge) bool {
	if edge.Repository.Same(t.Target.ID) {
		return false
	}
	if _, dup := t.edges[edge]; dup {
		return false
	}
	t.edges[edge] = struct{}{}
	t.Shared[edge.Repository] = append(t.Shared[edge.Repository], edge.Stargazer)
	return true
}

// Count returns the number of shared stargazers recorded for repo.
func (t *OverlapTally) Count(repo RepositoryID) int {
	return len(t.Shared[repo])
}

// Neighbour is one ranked entry of a NeighbourResult.
type Neighbour struct {
	Repository       RepositoryID  `json:"repository"`
	SharedStargazers int           `json:"sharedStargazers"`
	Stargazers       []StargazerID `json:"stargazers"`
	// Jaccard estimates the overlap of the two stargazer sets from the sampled shared
	// count and both repositories' total star counts. When the sample was truncated
	// the shared count is a lower bound while the totals are not, so the score is
	// biased low. It does not affect the ranking.
	Jaccard          float64       `json:"jaccard"`
}

// Summary describes the distribution of shared counts over every candidate.
type Summary struct {
	Candidates   int     `json:"candidates"`
	MeanShared   float64 `json:"meanShared"`
	MedianShared float64 `json:"medianShared"`
	P90Shared    float64 `json:"p90Shared"`
}

// NeighbourResult is the answer to one neighbour query.
type NeighbourResult struct {
	Repository        RepositoryID `json:"repository"`
	Neighbours        []Neighbour  `json:"neighbours"`
	SampledStargazers int          `json:"sampledStargazers"`
	SkippedStargazers int          `json:"skippedStargazers"`
	Truncated         bool         `json:"truncated"`
	Summary           Summary      `json:"summary"`
}

// RateLimit is the state of the core REST quota.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}
