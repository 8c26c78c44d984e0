package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/cli"
	"github.com/aretw0/davinci/internal/logging"
	"github.com/aretw0/davinci/pkg/session"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage stored users",
	Long:  `List, inspect, and remove the users kept in the configured token store.`,
}

var userLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *session.Vault) error {
			return cli.ListUsers(cmd.Context(), v, cmd.OutOrStdout())
		})
	},
}

var userInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Show a stored user with its token redacted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *session.Vault) error {
			return cli.InspectUser(cmd.Context(), v, args[0], cmd.OutOrStdout())
		})
	},
}

var userRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove one or more stored users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *session.Vault) error {
			failed := 0
			for _, key := range args {
				if err := v.Delete(cmd.Context(), key); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", key, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed user '%s'\n", key)
			}
			if failed > 0 {
				return fmt.Errorf("failed to remove %d of %d users", failed, len(args))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userLsCmd)
	userCmd.AddCommand(userInspectCmd)
	userCmd.AddCommand(userRmCmd)
}

func withVault(cmd *cobra.Command, fn func(*session.Vault) error) error {
	v, _, closeFn, err := cli.Vault(baseOptions(cmd), logging.NewNop())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(v)
}
