package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/config"
	"github.com/sells-group/movie-etl/internal/pipeline"
	"github.com/sells-group/movie-etl/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long:  "Resolves the three sources, reconciles the movie datasets, attaches rating counts, then loads the movies table and the rating log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		skipRatings, _ := cmd.Flags().GetBool("skip-ratings-load")

		var st store.Store
		if !dryRun {
			var err error
			st, err = initStore(ctx)
			if err != nil {
				return eris.Wrap(err, "init store")
			}
			defer st.Close() //nolint:errcheck
		}

		result, err := pipeline.Run(ctx, cfg, st, pipeline.Options{
			DryRun:          dryRun,
			SkipRatingsLoad: skipRatings,
		})
		if err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.String("run_id", result.RunID),
			zap.Int("movies", result.Table.Len()),
			zap.Int64("rating_events", result.RatingEvents),
			zap.Duration("elapsed", result.Elapsed),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	strFlags := map[string]*string{
		"wiki":    &c.Sources.Wiki,
		"catalog": &c.Sources.Catalog,
		"ratings": &c.Sources.Ratings,
		"bundle":  &c.Sources.Bundle,
		"rules":   &c.Pipeline.RulesPath,
	}
	for name, dst := range strFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return eris.Wrapf(err, "read --%s", name)
		}
		*dst = v
	}
	if flags.Changed("chunk-size") {
		n, err := flags.GetInt("chunk-size")
		if err != nil {
			return eris.Wrap(err, "read --chunk-size")
		}
		c.Pipeline.RatingsChunkSize = n
	}
	if flags.Changed("strict") {
		c.Pipeline.StrictCoercion, _ = flags.GetBool("strict")
	}
	return nil
}

func init() {
	runCmd.Flags().String("wiki", "", "wiki movie dump location (overrides sources.wiki)")
	runCmd.Flags().String("catalog", "", "catalog export location (overrides sources.catalog)")
	runCmd.Flags().String("ratings", "", "rating log location (overrides sources.ratings)")
	runCmd.Flags().String("bundle", "", "zip archive for bundle: locations (overrides sources.bundle)")
	runCmd.Flags().String("rules", "", "reconciliation rules YAML (overrides pipeline.rules_path)")
	runCmd.Flags().Int("chunk-size", 0, "rating rows per load chunk (overrides pipeline.ratings_chunk_size)")
	runCmd.Flags().Bool("strict", false, "fail on the first catalog type coercion failure")
	runCmd.Flags().Bool("skip-ratings-load", false, "load the movies table but not the raw rating log")
	runCmd.Flags().Bool("dry-run", false, "reconcile and aggregate without writing to the store")
	rootCmd.AddCommand(runCmd)
}
