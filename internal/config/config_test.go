package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

var envKeys = []string{
	"GITHUB_TOKEN", "PORT", "REDIS_URL", PathEnv,
	"MAX_STARGAZERS", "MAX_REPOS_PER_STARGAZER", "MIN_SHARED", "MAX_RESULTS",
	"FETCH_CONCURRENCY", "REQUEST_TIMEOUT", "GITHUB_CALL_TIMEOUT", "GITHUB_RETRY_ATTEMPTS",
	"GITHUB_RETRY_DELAY", "GITHUB_MAX_RETRY_WAIT", "GITHUB_RPS", "CACHE_TTL",
}

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 200, cfg.Engine.MaxStargazers)
	assert.Equal(t, 500, cfg.Engine.MaxReposPerStargazer)
	assert.Equal(t, 1, cfg.Engine.MinShared)
	assert.Equal(t, 50, cfg.Engine.MaxResults)
	assert.Equal(t, 20, cfg.Engine.Concurrency)
	assert.Equal(t, Duration(2*time.Minute), cfg.Engine.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.GatewayOptions().CallTimeout)
	assert.Equal(t, 3, cfg.GatewayOptions().RetryAttempts)
	assert.Equal(t, Duration(10*time.Minute), cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisURL)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
github_token = "from-file"
port = "9000"

[engine]
max_stargazers = 50
max_results = 10
request_timeout = "30s"

[github]
call_timeout = "5s"
requests_per_second = 2.5

[cache]
ttl = "1m"
redis_url = "redis://localhost:6379/0"
`)
	t.Setenv("MAX_RESULTS", "7")
	t.Setenv("GITHUB_RETRY_DELAY", "250ms")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GitHubToken)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 50, cfg.Engine.MaxStargazers)
	assert.Equal(t, 7, cfg.Engine.MaxResults, "environment overrides the file")
	assert.Equal(t, 500, cfg.Engine.MaxReposPerStargazer, "unset keys keep their default")
	assert.Equal(t, Duration(30*time.Second), cfg.Engine.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.GatewayOptions().CallTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.GatewayOptions().RetryDelay)
	assert.InDelta(t, 2.5, cfg.GatewayOptions().RequestsPerSecond, 1e-9)
	assert.Equal(t, Duration(time.Minute), cfg.Cache.TTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
}

func TestLoad_PathFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(PathEnv, writeConfig(t, `github_token = "x"
[engine]
min_shared = 3
`))

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.EngineOptions().MinShared)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "missing token"},
		{
			name: "malformed integer",
			env:  map[string]string{"GITHUB_TOKEN": "x", "MAX_STARGAZERS": "many"},
		},
		{
			name: "malformed duration",
			env:  map[string]string{"GITHUB_TOKEN": "x", "CACHE_TTL": "soon"},
		},
		{
			name: "non-positive cap",
			env:  map[string]string{"GITHUB_TOKEN": "x", "MAX_RESULTS": "0"},
		},
		{
			name: "malformed file",
			env:  map[string]string{"GITHUB_TOKEN": "x"},
			file: "[engine\nmax_results = ",
		},
		{
			name: "duration in file is not a duration",
			env:  map[string]string{"GITHUB_TOKEN": "x"},
			file: "[github]\ncall_timeout = \"ten seconds\"\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			cfg, err := Load(path)

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindInvalidConfiguration))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "x")

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "zero concurrency", modify: func(c *Config) { c.Engine.Concurrency = 0 }},
		{name: "zero request timeout", modify: func(c *Config) { c.Engine.RequestTimeout = 0 }},
		{name: "zero call timeout", modify: func(c *Config) { c.GitHub.CallTimeout = 0 }},
		{name: "zero retry attempts", modify: func(c *Config) { c.GitHub.RetryAttempts = 0 }},
		{name: "negative retry delay", modify: func(c *Config) { c.GitHub.RetryDelay = -1 }},
		{name: "negative rps", modify: func(c *Config) { c.GitHub.RequestsPerSecond = -1 }},
		{name: "negative ttl", modify: func(c *Config) { c.Cache.TTL = -1 }},
		{name: "zero min shared", modify: func(c *Config) { c.Engine.MinShared = 0 }},
	}

	require.NoError(t, Default().Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			assert.True(t, domain.IsKind(cfg.Validate(), domain.KindInvalidConfiguration))
		})
	}
}
