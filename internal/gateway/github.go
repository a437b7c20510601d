// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

// MaxPerPage is the largest page size GitHub accepts on list endpoints.
const MaxPerPage = 100

// Fetcher defines the behavior of a gateway for fetching star data from GitHub.
//
// Stargazers and Starred return lazy, forward-only sequences: every call starts a
// fresh walk from the first page, and further pages are requested only as the
// caller keeps consuming. A sequence yields at most one non-nil error, as its
// final element.
type Fetcher interface {
	Resolve(ctx context.Context, repo domain.RepositoryID) (*domain.Repository, error)
	Stargazers(ctx context.Context, repo domain.RepositoryID, perPage int) iter.Seq2[domain.StargazerID, error]
	Starred(ctx context.Context, user domain.StargazerID, perPage int) iter.Seq2[domain.Repository, error]
	RateLimit(ctx context.Context) (*domain.RateLimit, error)
}

// Options tunes how the gateway talks to GitHub.
type Options struct {
	// CallTimeout bounds every individual HTTP call.
	CallTimeout time.Duration
	// RetryAttempts is the number of tries per call before giving up.
	RetryAttempts int
	// RetryDelay is the first backoff delay; it doubles after each failed try.
	RetryDelay time.Duration
	// MaxRetryWait caps how long a single rate-limit wait may be.
	MaxRetryWait time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		CallTimeout:       10 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        500 * time.Millisecond,
		MaxRetryWait:      time.Minute,
		RequestsPerSecond: 20,
	}
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	limiter       *rate.Limiter
	opts          Options
	logger        *log.Logger
}

var _ Fetcher = (*GitHubGateway)(nil)

// repositoryQuery resolves a repository to its canonical name and star count.
type repositoryQuery struct {
	Repository struct {
		NameWithOwner  string
		StargazerCount int
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// The token source is the only place the bearer credential comes from.
func NewGitHubGateway(ts oauth2.TokenSource, opts Options, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(opts.MaxRetryWait, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return newGateway(github.NewClient(httpClient), githubv4.NewClient(httpClient), opts, logger), nil
}

func newGateway(restClient *github.Client, graphqlClient *githubv4.Client, opts Options, logger *log.Logger) *GitHubGateway {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		limiter:       rate.NewLimiter(limit, 1),
		opts:          opts,
		logger:        logger,
	}
}

// Resolve checks that repo exists and returns its canonical full name and star count.
func (g *GitHubGateway) Resolve(ctx context.Context, repo domain.RepositoryID) (*domain.Repository, error) {
	g.logger.Debug("Resolving repository", "repository", repo)
	variables := map[string]interface{}{
		"owner": githubv4.String(repo.Owner()),
		"name":  githubv4.String(repo.Name()),
	}
	var q repositoryQuery
	err := g.call(ctx, "resolve "+string(repo), classifyGraphQL, func(ctx context.Context) error {
		return g.graphqlClient.Query(ctx, &q, variables)
	})
	if err != nil {
		return nil, err
	}
	if q.Repository.NameWithOwner == "" {
		return nil, domain.NewError(domain.KindNotFound, "repository %s", repo)
	}
	return &domain.Repository{
		ID:         domain.RepositoryID(q.Repository.NameWithOwner),
		Stargazers: q.Repository.StargazerCount,
	}, nil
}

// Stargazers lists the users who starred repo, in the order GitHub returns them.
func (g *GitHubGateway) Stargazers(ctx context.Context, repo domain.RepositoryID, perPage int) iter.Seq2[domain.StargazerID, error] {
	return func(yield func(domain.StargazerID, error) bool) {
		opts := &github.ListOptions{PerPage: clampPerPage(perPage)}
		op := "list stargazers of " + string(repo)
		for {
			var page []*github.Stargazer
			var resp *github.Response
			err := g.call(ctx, op, classifyREST, func(ctx context.Context) error {
				var err error
				page, resp, err = g.restClient.Activity.ListStargazers(ctx, repo.Owner(), repo.Name(), opts)
				return err
			})
			if err != nil {
				yield("", err)
				return
			}
			for _, stargazer := range page {
				login := stargazer.GetUser().GetLogin()
				if login == "" {
					continue
				}
				if !yield(domain.StargazerID(login), nil) {
					return
				}
			}
			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
			g.logger.Debug("  Fetching next page of stargazers...", "repository", repo, "page", opts.Page)
		}
	}
}

// Starred lists the repositories user has starred, with their star counts.
func (g *GitHubGateway) Starred(ctx context.Context, user domain.StargazerID, perPage int) iter.Seq2[domain.Repository, error] {
	return func(yield func(domain.Repository, error) bool) {
		opts := &github.ActivityListStarredOptions{ListOptions: github.ListOptions{PerPage: clampPerPage(perPage)}}
		op := "list repositories starred by " + string(user)
		for {
			var page []*github.StarredRepository
			var resp *github.Response
			err := g.call(ctx, op, classifyREST, func(ctx context.Context) error {
				var err error
				page, resp, err = g.restClient.Activity.ListStarred(ctx, string(user), opts)
				return err
			})
			if err != nil {
				yield(domain.Repository{}, err)
				return
			}
			for _, starred := range page {
				repo := starred.GetRepository()
				if repo.GetFullName() == "" {
					continue
				}
				item := domain.Repository{
					ID:         domain.RepositoryID(repo.GetFullName()),
					Stargazers: repo.GetStargazersCount(),
				}
				if !yield(item, nil) {
					return
				}
			}
			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

// RateLimit reports the state of the core REST quota.
func (g *GitHubGateway) RateLimit(ctx context.Context) (*domain.RateLimit, error) {
	var limits *github.RateLimits
	err := g.call(ctx, "get rate limit", classifyREST, func(ctx context.Context) error {
		var err error
		limits, _, err = g.restClient.RateLimit.Get(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	core := limits.GetCore()
	if core == nil {
		return nil, domain.NewError(domain.KindUpstreamUnavailable, "rate limit response has no core resource")
	}
	return &domain.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

func clampPerPage(perPage int) int {
	if perPage <= 0 || perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}
