package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
)

func newRotateCmd(c *cli) *cobra.Command {
	var (
		ttl   time.Duration
		notes string
	)

	cmd := &cobra.Command{
		Use:   "rotate <context>",
		Short: "Mint a new key version for a context",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		in := keyring.RotateInput{Notes: notes}
		if ttl > 0 {
			exp := time.Now().Add(ttl).UTC()
			in.ExpiresAt = &exp
		}

		version, err := c.components.Keyring.RotateKey(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rotated to version %d\n", args[0], version)
		return nil
	})

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expire the new version after this duration (default: keyring.key_ttl)")
	cmd.Flags().StringVar(&notes, "notes", "manual rotation", "operator notes stored with the version")
	return cmd
}

func newRetireCmd(c *cli) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "retire <context>",
		Short: "Deactivate all but the most recent active versions of a context",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		if keep == 0 {
			keep = c.components.Keyring.DefaultKeepCount()
		}

		retired, err := c.components.Keyring.RetireOldVersions(cmd.Context(), args[0], keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: retired %d version(s), kept %d\n", args[0], retired, keep)
		return nil
	})

	cmd.Flags().IntVar(&keep, "keep", 0, "active versions to keep (default: keyring.default_keep_count)")
	return cmd
}

func newVersionsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <context>",
		Short: "List the key versions of a context",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		infos, err := c.components.Keyring.ListVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tACTIVE\tCREATED\tEXPIRES\tDEACTIVATED\tNOTES")
		for _, k := range infos {
			fmt.Fprintf(w, "%d\t%t\t%s\t%s\t%s\t%s\n",
				k.Version, k.Active, k.CreatedAt.UTC().Format(time.RFC3339),
				formatTime(k.ExpiresAt), formatTime(k.DeactivatedAt), k.Notes)
		}
		return w.Flush()
	})
	return cmd
}

func newVerifyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every stored key unwraps with the configured master key",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, _ []string) error {
		report, err := c.components.Keyring.Verify(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, f := range report.Failures {
			fmt.Fprintf(out, "FAIL %s v%d: %v\n", f.Context, f.Version, f.Err)
		}
		fmt.Fprintf(out, "checked %d key(s) with master key %s, %d failure(s)\n",
			report.Checked, c.components.Master.Fingerprint(), len(report.Failures))

		if !report.OK() {
			return fmt.Errorf("%d key(s) do not unwrap; was the master passphrase changed?", len(report.Failures))
		}
		return nil
	})
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
