package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of davinci",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "davinci version %s\n", strings.TrimSpace(davinci.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
