package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/movie-etl/internal/reconcile"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective reconciliation rules as YAML",
	Long:  "Prints the built-in rules merged with pipeline.rules_path. The output is a valid rules file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRules(cmd.OutOrStdout(), cfg.Pipeline.RulesPath)
	},
}

func writeRules(w io.Writer, path string) error {
	rules, err := reconcile.LoadRules(path)
	if err != nil {
		return err
	}
	data, err := rules.YAML()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
