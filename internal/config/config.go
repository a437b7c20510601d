// Package config loads the application configuration from an optional .env file,
// an optional TOML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/naka-gawa/star-neighbours/internal/domain"
	"github.com/naka-gawa/star-neighbours/internal/gateway"
	"github.com/naka-gawa/star-neighbours/internal/usecase"
)

// PathEnv names the environment variable holding the TOML file path.
const PathEnv = "STAR_NEIGHBOURS_CONFIG"

// Duration is a time.Duration written as "10s" or "2m" in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds application configuration
type Config struct {
	GitHubToken string       `toml:"github_token"`
	Port        string       `toml:"port"`
	Engine      EngineConfig `toml:"engine"`
	GitHub      GitHubConfig `toml:"github"`
	Cache       CacheConfig  `toml:"cache"`
}

// EngineConfig holds the default query options and the fan-out width.
type EngineConfig struct {
	MaxStargazers        int      `toml:"max_stargazers"`
	MaxReposPerStargazer int      `toml:"max_repos_per_stargazer"`
	MinShared            int      `toml:"min_shared"`
	MaxResults           int      `toml:"max_results"`
	Concurrency          int      `toml:"concurrency"`
	RequestTimeout       Duration `toml:"request_timeout"`
}

// GitHubConfig tunes the GitHub gateway.
type GitHubConfig struct {
	CallTimeout       Duration `toml:"call_timeout"`
	RetryAttempts     int      `toml:"retry_attempts"`
	RetryDelay        Duration `toml:"retry_delay"`
	MaxRetryWait      Duration `toml:"max_retry_wait"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// CacheConfig selects the result cache. An empty RedisURL keeps results in memory.
type CacheConfig struct {
	TTL      Duration `toml:"ttl"`
	RedisURL string   `toml:"redis_url"`
}

// Default returns the configuration used when nothing is set, minus the token.
func Default() *Config {
	engine := usecase.DefaultOptions()
	gh := gateway.DefaultOptions()
	return &Config{
		Port: "8080",
		Engine: EngineConfig{
			MaxStargazers:        engine.MaxStargazers,
			MaxReposPerStargazer: engine.MaxReposPerStargazer,
			MinShared:            engine.MinShared,
			MaxResults:           engine.MaxResults,
			Concurrency:          usecase.DefaultConcurrency,
			RequestTimeout:       Duration(2 * time.Minute),
		},
		GitHub: GitHubConfig{
			CallTimeout:       Duration(gh.CallTimeout),
			RetryAttempts:     gh.RetryAttempts,
			RetryDelay:        Duration(gh.RetryDelay),
			MaxRetryWait:      Duration(gh.MaxRetryWait),
			RequestsPerSecond: gh.RequestsPerSecond,
		},
		Cache: CacheConfig{
			TTL: Duration(10 * time.Minute),
		},
	}
}

// Load reads configuration from .env, the TOML file at path and environment variables.
// An empty path falls back to $STAR_NEIGHBOURS_CONFIG; without either no file is read.
// Returns an error if required variables are missing or a value is invalid.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, domain.WrapError(domain.KindInvalidConfiguration, err, "invalid config file %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, domain.WrapError(domain.KindInvalidConfiguration, err, "invalid environment")
	}
	if cfg.GitHubToken == "" {
		return nil, domain.NewError(domain.KindInvalidConfiguration, "GITHUB_TOKEN is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
	c.Port = getEnv("PORT", c.Port)
	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	c.Engine.MaxStargazers = getInt("MAX_STARGAZERS", c.Engine.MaxStargazers, collect)
	c.Engine.MaxReposPerStargazer = getInt("MAX_REPOS_PER_STARGAZER", c.Engine.MaxReposPerStargazer, collect)
	c.Engine.MinShared = getInt("MIN_SHARED", c.Engine.MinShared, collect)
	c.Engine.MaxResults = getInt("MAX_RESULTS", c.Engine.MaxResults, collect)
	c.Engine.Concurrency = getInt("FETCH_CONCURRENCY", c.Engine.Concurrency, collect)
	c.Engine.RequestTimeout = getDuration("REQUEST_TIMEOUT", c.Engine.RequestTimeout, collect)
	c.GitHub.CallTimeout = getDuration("GITHUB_CALL_TIMEOUT", c.GitHub.CallTimeout, collect)
	c.GitHub.RetryAttempts = getInt("GITHUB_RETRY_ATTEMPTS", c.GitHub.RetryAttempts, collect)
	c.GitHub.RetryDelay = getDuration("GITHUB_RETRY_DELAY", c.GitHub.RetryDelay, collect)
	c.GitHub.MaxRetryWait = getDuration("GITHUB_MAX_RETRY_WAIT", c.GitHub.MaxRetryWait, collect)
	c.GitHub.RequestsPerSecond = getFloat("GITHUB_RPS", c.GitHub.RequestsPerSecond, collect)
	c.Cache.TTL = getDuration("CACHE_TTL", c.Cache.TTL, collect)
	return errors.Join(errs...)
}

// Validate rejects non-positive caps and timeouts.
func (c *Config) Validate() error {
	if err := c.EngineOptions().Validate(); err != nil {
		return err
	}
	switch {
	case c.Engine.Concurrency <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "engine.concurrency must be positive, got %d", c.Engine.Concurrency)
	case c.Engine.RequestTimeout <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "engine.request_timeout must be positive")
	case c.GitHub.CallTimeout <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "github.call_timeout must be positive")
	case c.GitHub.RetryAttempts <= 0:
		return domain.NewError(domain.KindInvalidConfiguration, "github.retry_attempts must be positive, got %d", c.GitHub.RetryAttempts)
	case c.GitHub.RetryDelay < 0 || c.GitHub.MaxRetryWait < 0:
		return domain.NewError(domain.KindInvalidConfiguration, "github retry delays must not be negative")
	case c.GitHub.RequestsPerSecond < 0:
		return domain.NewError(domain.KindInvalidConfiguration, "github.requests_per_second must not be negative")
	case c.Cache.TTL < 0:
		return domain.NewError(domain.KindInvalidConfiguration, "cache.ttl must not be negative")
	}
	return nil
}

// EngineOptions returns the configured default query options.
func (c *Config) EngineOptions() usecase.Options {
	return usecase.Options{
		MaxStargazers:        c.Engine.MaxStargazers,
		MaxReposPerStargazer: c.Engine.MaxReposPerStargazer,
		MinShared:            c.Engine.MinShared,
		MaxResults:           c.Engine.MaxResults,
	}
}

// GatewayOptions returns the configured gateway options.
func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{
		CallTimeout:       c.GitHub.CallTimeout.Duration(),
		RetryAttempts:     c.GitHub.RetryAttempts,
		RetryDelay:        c.GitHub.RetryDelay.Duration(),
		MaxRetryWait:      c.GitHub.MaxRetryWait.Duration(),
		RequestsPerSecond: c.GitHub.RequestsPerSecond,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, report func(error)) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		report(fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64, report func(error)) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		report(fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getDuration(key string, defaultValue Duration, report func(error)) Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		report(fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return Duration(d)
}
