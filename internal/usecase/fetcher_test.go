package usecase

import (
	"context"
	"iter"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

// fakeFetcher serves star data from memory.
type fakeFetcher struct {
	repos      map[domain.RepositoryID]domain.Repository
	stargazers map[domain.RepositoryID][]domain.StargazerID
	starred    map[domain.StargazerID][]domain.Repository

	// stargazersErr, when set, is yielded after stargazersErrAfter stargazers.
	stargazersErr      error
	stargazersErrAfter int
	// starredErr makes a stargazer's starred listing fail immediately.
	starredErr map[domain.StargazerID]error
	// block makes starred listings wait for cancellation.
	block bool

	mu           sync.Mutex
	resolveCalls int
	starredCalls map[domain.StargazerID]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		repos:        make(map[domain.RepositoryID]domain.Repository),
		stargazers:   make(map[domain.RepositoryID][]domain.StargazerID),
		starred:      make(map[domain.StargazerID][]domain.Repository),
		starredErr:   make(map[domain.StargazerID]error),
		starredCalls: make(map[domain.StargazerID]int),
	}
}

// star records that user starred repo and keeps star counts consistent.
func (f *fakeFetcher) star(user domain.StargazerID, repo domain.RepositoryID) {
	f.stargazers[repo] = append(f.stargazers[repo], user)
	r := f.repos[repo]
	r.ID = repo
	r.Stargazers++
	f.repos[repo] = r
	for id := range f.starred {
		for i := range f.starred[id] {
			if f.starred[id][i].ID == repo {
				f.starred[id][i].Stargazers = r.Stargazers
			}
		}
	}
	f.starred[user] = append(f.starred[user], r)
}

func (f *fakeFetcher) Resolve(ctx context.Context, repo domain.RepositoryID) (*domain.Repository, error) {
	f.mu.Lock()
	f.resolveCalls++
	f.mu.Unlock()
	r, ok := f.repos[repo]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "repository %s", repo)
	}
	return &r, nil
}

func (f *fakeFetcher) Stargazers(ctx context.Context, repo domain.RepositoryID, perPage int) iter.Seq2[domain.StargazerID, error] {
	return func(yield func(domain.StargazerID, error) bool) {
		for i, login := range f.stargazers[repo] {
			if f.stargazersErr != nil && i == f.stargazersErrAfter {
				yield("", f.stargazersErr)
				return
			}
			if !yield(login, nil) {
				return
			}
		}
		if f.stargazersErr != nil && f.stargazersErrAfter >= len(f.stargazers[repo]) {
			yield("", f.stargazersErr)
		}
	}
}

func (f *fakeFetcher) Starred(ctx context.Context, user domain.StargazerID, perPage int) iter.Seq2[domain.Repository, error] {
	return func(yield func(domain.Repository, error) bool) {
		f.mu.Lock()
		f.starredCalls[user]++
		f.mu.Unlock()
		if f.block {
			<-ctx.Done()
			yield(domain.Repository{}, ctx.Err())
			return
		}
		if err := f.starredErr[user]; err != nil {
			yield(domain.Repository{}, err)
			return
		}
		for _, repo := range f.starred[user] {
			if !yield(repo, nil) {
				return
			}
		}
	}
}

func (f *fakeFetcher) RateLimit(ctx context.Context) (*domain.RateLimit, error) {
	return &domain.RateLimit{Limit: 5000, Remaining: 5000}, nil
}

func (f *fakeFetcher) totalStarredCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.starredCalls {
		total += n
	}
	return total
}

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It is used where only the interaction with the gateway matters.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Resolve(ctx context.Context, repo domain.RepositoryID) (*domain.Repository, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repository), args.Error(1)
}

func (m *mockFetcher) Stargazers(ctx context.Context, repo domain.RepositoryID, perPage int) iter.Seq2[domain.StargazerID, error] {
	args := m.Called(ctx, repo, perPage)
	return args.Get(0).(iter.Seq2[domain.StargazerID, error])
}

func (m *mockFetcher) Starred(ctx context.Context, user domain.StargazerID, perPage int) iter.Seq2[domain.Repository, error] {
	args := m.Called(ctx, user, perPage)
	return args.Get(0).(iter.Seq2[domain.Repository, error])
}

func (m *mockFetcher) RateLimit(ctx context.Context) (*domain.RateLimit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateLimit), args.Error(1)
}
