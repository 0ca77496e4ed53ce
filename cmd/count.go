package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count <table>",
	Short: "Print the row count of a store table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.CountRows(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "count %s", args[0])
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], humanize.Comma(n))
		return err
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
