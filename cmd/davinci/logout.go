package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/cli"
	"github.com/aretw0/davinci/internal/logging"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign the stored user off",
	Long:  `Deletes the stored user and, when a sign-off URL is configured, ends the session on the tenant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Logout(cmd.Context(), baseOptions(cmd), logging.NewNop()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
