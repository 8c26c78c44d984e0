package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/presentation/graph"
	httpAdapter "github.com/aretw0/davinci/pkg/adapters/http"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script>",
	Short: "Print a mock script as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := httpAdapter.LoadScriptFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
