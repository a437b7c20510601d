package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/naka-gawa/star-neighbours/internal/cache"
	"github.com/naka-gawa/star-neighbours/internal/domain"
	"github.com/naka-gawa/star-neighbours/internal/gateway"
)

// Options are the per-query knobs of the engine. The target repository is
// always excluded from its own neighbours.
type Options struct {
	// MaxStargazers caps how many of the target's stargazers are sampled.
	MaxStargazers int `json:"maxStargazers"`
	// MaxReposPerStargazer caps how many starred repositories are read per stargazer.
	MaxReposPerStargazer int `json:"maxReposPerStargazer"`
	// MinShared is the smallest shared count reported.
	MinShared int `json:"minShared"`
	// MaxResults is the length of the returned list.
	MaxResults int `json:"maxResults"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxStargazers:        200,
		MaxReposPerStargazer: 500,
		MinShared:            1,
		MaxResults:           50,
	}
}

// Validate reports the first invalid option as KindInvalidConfiguration.
func (o Options) Validate() error {
	switch {
	case o.MaxStargazers <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "maxStargazers must be positive, got %d", o.MaxStargazers)
	case o.MaxReposPerStargazer <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "maxReposPerStargazer must be positive, got %d", o.MaxReposPerStargazer)
	case o.MinShared < 1:
		return domain.NewError(domain.KindInvalidConfiguration, "minShared must be at least 1, got %d", o.MinShared)
	case o.MaxResults <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "maxResults must be positive, got %d", o.MaxResults)
	}
	return nil
}

// Engine answers neighbour queries: it resolves the target, samples its
// stargazers, tallies what they starred and ranks the result.
type Engine struct {
	fetcher    gateway.Fetcher
	collector  *Collector
	aggregator *Aggregator
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *log.Logger
}

// NewEngine creates a new Engine. A nil store disables result caching.
func NewEngine(fetcher gateway.Fetcher, concurrency int, store cache.Cache, cacheTTL time.Duration, logger *log.Logger) *Engine {
	if store == nil {
		store = cache.NewNullCache()
	}
	return &Engine{
		fetcher:    fetcher,
		collector:  NewCollector(fetcher, logger),
		aggregator: NewAggregator(fetcher, concurrency, logger),
		cache:      store,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Neighbours returns the repositories sharing the most stargazers with repo.
//
// The caller receives either a complete, possibly truncated, result or a single
// kinded error: KindInvalidConfiguration, KindRepositoryNotFound or
// KindUpstreamUnavailable. Cancellation of ctx is returned as ctx.Err().
func (e *Engine) Neighbours(ctx context.Context, repo domain.RepositoryID, opts Options) (*domain.NeighbourResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key := cacheKey(repo, opts)
	if result, ok := e.cached(ctx, key); ok {
		e.logger.Debug("Serving neighbours from cache", "repository", repo)
		return result, nil
	}

	start := time.Now()
	target, err := e.resolve(ctx, repo)
	if err != nil {
		return nil, err
	}

	sample, err := e.collector.Collect(ctx, target.ID, opts.MaxStargazers)
	if err != nil {
		return nil, err
	}

	tally, err := e.aggregator.Aggregate(ctx, sample.Stargazers, *target, opts.MaxReposPerStargazer)
	if err != nil {
		return nil, err
	}

	neighbours, err := Rank(tally, opts.MinShared, opts.MaxResults)
	if err != nil {
		return nil, err
	}

	result := &domain.NeighbourResult{
		Repository:        target.ID,
		Neighbours:        neighbours,
		SampledStargazers: len(sample.Stargazers),
		SkippedStargazers: tally.Skipped,
		Truncated:         sample.Truncated || tally.Truncated,
		Summary:           Summarize(tally),
	}
	e.logger.Info("Computed neighbours",
		"repository", target.ID,
		"sampled", result.SampledStargazers,
		"skipped", result.SkippedStargazers,
		"candidates", result.Summary.Candidates,
		"truncated", result.Truncated,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	e.store(ctx, key, result)
	return result, nil
}

// RateLimit reports the remaining GitHub quota.
func (e *Engine) RateLimit(ctx context.Context) (*domain.RateLimit, error) {
	return e.fetcher.RateLimit(ctx)
}

func (e *Engine) resolve(ctx context.Context, repo domain.RepositoryID) (*domain.Repository, error) {
	target, err := e.fetcher.Resolve(ctx, repo)
	if err == nil {
		return target, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.WrapError(domain.KindRepositoryNotFound, err, "repository %s", repo)
	}
	if domain.IsKind(err, domain.KindUpstreamUnavailable) {
		return nil, err
	}
	return nil, domain.WrapError(domain.KindUpstreamUnavailable, err, "failed to resolve %s", repo)
}

func (e *Engine) cached(ctx context.Context, key string) (*domain.NeighbourResult, bool) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("Cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result domain.NeighbourResult
	if err := json.Unmarshal(data, &result); err != nil {
		e.logger.Warn("Dropping unreadable cache entry", "key", key, "err", err)
		return nil, false
	}
	return &result, true
}

func (e *Engine) store(ctx context.Context, key string, result *domain.NeighbourResult) {
	data, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn("Failed to encode result for cache", "key", key, "err", err)
		return
	}
	if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
		e.logger.Warn("Cache write failed", "key", key, "err", err)
	}
}

func cacheKey(repo domain.RepositoryID, opts Options) string {
	return fmt.Sprintf("neighbours:v1:%s:%d:%d:%d:%d",
		strings.ToLower(string(repo)), opts.MaxStargazers, opts.MaxReposPerStargazer, opts.MinShared, opts.MaxResults)
}
