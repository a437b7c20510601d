package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/star-neighbours/internal/api"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves star-neighbour queries over HTTP",
	Long: `Starts an HTTP server answering GET /neighbours?repo=<owner>/<name>&limit=<n>
and GET /repos/{owner}/{repo}/starneighbours with the ranked neighbours in JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}

		ctx := cmd.Context()
		engine, store, err := newEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		router := api.NewRouter(&api.RouterConfig{
			Engine:         engine,
			Defaults:       cfg.EngineOptions(),
			RequestTimeout: cfg.Engine.RequestTimeout.Duration(),
			Logger:         logger,
		})

		srv := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.Engine.RequestTimeout.Duration() + 5*time.Second, // Must exceed the per-request timeout
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		// Wait for interrupt signal
		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default $PORT or 8080)")
}
