package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/keycustody-backend/internal/adapter/s3backup"
)

func newBackupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of all wrapped keys to the configured S3 bucket",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, _ []string) error {
		exporter, err := s3backup.NewExporter(cmd.Context(), c.cfg.Backup)
		if err != nil {
			return err
		}

		snap, err := c.components.Keyring.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		key, err := exporter.Export(cmd.Context(), snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d record(s) to s3://%s/%s\n", len(snap.Records), c.cfg.Backup.Bucket, key)
		return nil
	})
	return cmd
}
