package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

var neighboursCmd = &cobra.Command{
	Use:   "neighbours <owner>/<name>",
	Short: "Ranks the star-neighbours of a repository and outputs them as JSON",
	Long: `Samples the stargazers of the given repository, collects the repositories they
also starred and prints those sharing the most stargazers, in JSON format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		repo, err := domain.ParseRepositoryID(args[0])
		if err != nil {
			return err
		}

		// Flags override the configured defaults only when given.
		opts := cfg.EngineOptions()
		for name, dst := range map[string]*int{
			"limit":                   &opts.MaxResults,
			"min-shared":              &opts.MinShared,
			"max-stargazers":          &opts.MaxStargazers,
			"max-repos-per-stargazer": &opts.MaxReposPerStargazer,
		} {
			if cmd.Flags().Changed(name) {
				*dst, _ = cmd.Flags().GetInt(name)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Engine.RequestTimeout.Duration())
		defer cancel()

		// Inject dependencies and run the main business logic.
		engine, store, err := newEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := engine.Neighbours(ctx, repo, opts)
		if err != nil {
			return fmt.Errorf("failed to compute neighbours: %w", err)
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}

		// Print the final JSON to standard output.
		fmt.Fprintln(os.Stdout, string(jsonData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(neighboursCmd)
	neighboursCmd.Flags().IntP("limit", "n", 0, "Maximum number of neighbours to print")
	neighboursCmd.Flags().Int("min-shared", 0, "Minimum number of shared stargazers")
	neighboursCmd.Flags().Int("max-stargazers", 0, "Maximum number of stargazers to sample")
	neighboursCmd.Flags().Int("max-repos-per-stargazer", 0, "Maximum number of starred repositories read per stargazer")
}
