package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepositoryID(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  RepositoryID
		expectErr bool
	}{
		{name: "owner and name", input: "octo/hello", expected: "octo/hello"},
		{name: "surrounding spaces are trimmed", input: "  octo/hello ", expected: "octo/hello"},
		{name: "missing slash", input: "octo", expectErr: true},
		{name: "empty owner", input: "/hello", expectErr: true},
		{name: "empty name", input: "octo/", expectErr: true},
		{name: "too many segments", input: "octo/hello/world", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseRepositoryID(tc.input)
			if tc.expectErr {
				assert.True(t, IsKind(err, KindInvalidInput))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, id)
			assert.Equal(t, "octo", id.Owner())
			assert.Equal(t, "hello", id.Name())
		})
	}
}

func TestRepositoryID_Same(t *testing.T) {
	assert.True(t, RepositoryID("Octo/Hello").Same("octo/hello"))
	assert.False(t, RepositoryID("octo/hello").Same("octo/world"))
}

func TestKindOf(t *testing.T) {
	base := NewError(KindNotFound, "user %s", "ghost")
	wrapped := WrapError(KindUpstreamUnavailable, base, "listing failed")

	assert.Equal(t, KindNotFound, KindOf(base))
	assert.Equal(t, KindUpstreamUnavailable, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "user ghost")
	assert.True(t, Retryable(NewError(KindRateLimited, "slow down")))
	assert.False(t, Retryable(base))
}

func TestOverlapTally_Add(t *testing.T) {
	tally := NewOverlapTally()
	tally.Target = Repository{ID: "octo/target"}

	assert.True(t, tally.Add(StarEdge{Stargazer: "a", Repository: "org/x"}))
	assert.True(t, tally.Add(StarEdge{Stargazer: "b", Repository: "org/x"}))
	assert.False(t, tally.Add(StarEdge{Stargazer: "a", Repository: "org/x"}), "duplicate edge")
	assert.False(t, tally.Add(StarEdge{Stargazer: "a", Repository: "Octo/Target"}), "target edge")

	assert.Equal(t, 2, tally.Count("org/x"))
	assert.NotContains(t, tally.Shared, RepositoryID("Octo/Target"))
}
