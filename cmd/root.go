package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "movie-etl",
	Short: "Movie dataset reconciliation and bulk load",
	Long:  "Reconciles the encyclopedic movie dump with the catalog export, counts user ratings per movie, and bulk-loads the movies table and the rating log into Postgres or SQLite.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
