package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newUsageCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "usage <context>",
		Short: "Show the most recent key usage entries of a context",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		entries, err := c.components.Ledger.Recent(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tOPERATION\tSUCCESS\tKEY\tIDENTIFIER\tERROR")
		for _, e := range entries {
			key, ident, msg := "-", "-", ""
			if e.KeyRecordID != nil {
				key = e.KeyRecordID.String()
			}
			if e.Identifier != nil {
				ident = *e.Identifier
			}
			if e.ErrorMessage != nil {
				msg = *e.ErrorMessage
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n",
				e.CreatedAt.UTC().Format(time.RFC3339), e.Operation, e.Success, key, ident, msg)
		}
		return w.Flush()
	})

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}
