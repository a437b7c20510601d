// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/star-neighbours/internal/cache"
	"github.com/naka-gawa/star-neighbours/internal/config"
	"github.com/naka-gawa/star-neighbours/internal/gateway"
	"github.com/naka-gawa/star-neighbours/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "star-neighbours",
	Short: "Find the repositories that share the most stargazers with a GitHub repository.",
	Long: `star-neighbours samples the stargazers of a GitHub repository, reads the
repositories they have also starred and ranks those by how many stargazers they
share with it. It runs once from the command line or as an HTTP service.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Commands run under a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML config file (default $"+config.PathEnv+")")
}

// newLogger builds the stderr logger shared by every component.
func newLogger(cmd *cobra.Command) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "star-neighbours",
	})
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newEngine injects the dependencies of the engine. The returned cache must be
// closed by the caller.
func newEngine(ctx context.Context, cfg *config.Config, logger *log.Logger) (*usecase.Engine, cache.Cache, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	githubGateway, err := gateway.NewGitHubGateway(ts, cfg.GatewayOptions(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	var store cache.Cache = cache.NewMemoryCache()
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "star-neighbours:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisCache
		logger.Debug("Using redis result cache")
	}

	engine := usecase.NewEngine(githubGateway, cfg.Engine.Concurrency, store, cfg.Cache.TTL.Duration(), logger)
	return engine, store, nil
}
