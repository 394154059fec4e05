package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdigest/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in the OS keychain",
	Long: "Stores API keys and passwords in the OS keychain so they can be left out of config.yaml.\n\n" +
		"Accounts: llm:<provider>, " + secrets.JSearchAccount + ", " + secrets.SlackAccount + ", " +
		secrets.S3Account + ", smtp:<username>@<host>",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Read a secret from stdin and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Enter secret for %s: ", args[0])
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret: %w", err)
		}
		if err := secrets.Set(args[0], strings.TrimSpace(line)); err != nil {
			return fmt.Errorf("store secret: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}
