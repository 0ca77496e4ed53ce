package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/movie-etl/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run log",
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the status and summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return formatRun(cmd.OutOrStdout(), run)
	},
}

func init() {
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRun writes a run's header fields followed by its indented summary.
func formatRun(out io.Writer, r *store.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\t%s\n", r.ID)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", r.Status)
	_, _ = fmt.Fprintf(w, "STARTED\t%s\n", r.StartedAt.UTC().Format(time.DateTime))
	if r.FinishedAt != nil {
		_, _ = fmt.Fprintf(w, "FINISHED\t%s\n", r.FinishedAt.UTC().Format(time.DateTime))
		_, _ = fmt.Fprintf(w, "DURATION\t%s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "ERROR\t%s\n", r.Error)
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "write run")
	}

	if len(r.Summary) == 0 {
		return nil
	}
	var summary any
	if err := json.Unmarshal(r.Summary, &summary); err != nil {
		return eris.Wrap(err, "decode run summary")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
