package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres"
	"github.com/heartmarshall/keycustody-backend/internal/config"
)

func newMigrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			if dsn == "" {
				dsn = os.Getenv("DATABASE_DSN")
			}
			if dsn == "" {
				return errors.New("database dsn is required (--dsn or DATABASE_DSN)")
			}

			results, err := postgres.Migrate(cmd.Context(), dsn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "applied %05d %s\n", r.Version, r.Source)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "database is up to date")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string (default: DATABASE_DSN)")
	return cmd
}
