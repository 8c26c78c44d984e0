package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "davinci",
	Short: "DaVinci is a terminal client for multi-step authentication flows",
	Long: `DaVinci walks a tenant's authentication flow step by step from the terminal,
prompting for each form and storing the resulting user.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "Tenant base URL, overrides the configuration")
	rootCmd.PersistentFlags().String("client-id", "", "Client id, overrides the configuration")
}

// baseOptions reads the persistent flags shared by every command.
func baseOptions(cmd *cobra.Command) cli.RunOptions {
	configPath, _ := cmd.Flags().GetString("config")
	baseURL, _ := cmd.Flags().GetString("base-url")
	clientID, _ := cmd.Flags().GetString("client-id")
	return cli.RunOptions{
		ConfigPath: configPath,
		BaseURL:    baseURL,
		ClientID:   clientID,
	}
}
