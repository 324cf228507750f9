package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/keycustody-backend/internal/app"
	"github.com/heartmarshall/keycustody-backend/internal/config"
)

// cli holds state shared by subcommands once the root pre-run has loaded it.
type cli struct {
	cfg        *config.Config
	components *app.Components
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "keyctl",
		Short:         "Operate the key custody subsystem",
		Version:       app.BuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newRotateCmd(c),
		newRetireCmd(c),
		newVersionsCmd(c),
		newUsageCmd(c),
		newEncryptCmd(c),
		newDecryptCmd(c),
		newVerifyCmd(c),
		newBackupCmd(c),
	)

	return root
}

// withKeys loads configuration and wires the services before calling fn,
// and releases them afterwards.
func (c *cli) withKeys(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := app.NewLogger(cfg.Log)

		components, err := app.Wire(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer components.Close()

		c.cfg = cfg
		c.components = components
		return fn(cmd, args)
	}
}
