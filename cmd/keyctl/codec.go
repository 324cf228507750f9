package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/keycustody-backend/pkg/ctxutil"
)

func newEncryptCmd(c *cli) *cobra.Command {
	var identifier string

	cmd := &cobra.Command{
		Use:   "encrypt <context>",
		Short: "Encrypt stdin under the active key of a context",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		plaintext, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}

		ctx := ctxutil.WithIdentifier(cmd.Context(), identifier)
		blob, err := c.components.Envelope.Encrypt(ctx, string(plaintext), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), blob)
		return nil
	})

	cmd.Flags().StringVar(&identifier, "identifier", "", "correlation identifier recorded in the usage log")
	return cmd
}

func newDecryptCmd(c *cli) *cobra.Command {
	var identifier string

	cmd := &cobra.Command{
		Use:   "decrypt <context>",
		Short: "Decrypt a blob read from stdin",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.withKeys(func(cmd *cobra.Command, args []string) error {
		blob, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}

		ctx := ctxutil.WithIdentifier(cmd.Context(), identifier)
		plaintext, err := c.components.Envelope.Decrypt(ctx, strings.TrimSpace(string(blob)), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), plaintext)
		return nil
	})

	cmd.Flags().StringVar(&identifier, "identifier", "", "correlation identifier recorded in the usage log")
	return cmd
}
