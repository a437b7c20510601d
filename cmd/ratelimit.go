package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Prints the remaining GitHub REST quota as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		engine, store, err := newEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, err := engine.RateLimit(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get rate limit: %w", err)
		}

		jsonData, err := json.MarshalIndent(limit, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rate limit to JSON: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(jsonData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)
}
