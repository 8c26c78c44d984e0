package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Authenticate interactively",
	Long: `Starts the flow against the configured tenant and prompts for every step
until the flow succeeds or fails. With --mock the bundled script is served
locally and used as the tenant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := baseOptions(cmd)
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Reuse, _ = cmd.Flags().GetBool("reuse")
		opts.MockScript, _ = cmd.Flags().GetString("mock")
		opts.MockAddr, _ = cmd.Flags().GetString("mock-addr")
		opts.In = cmd.InOrStdin()
		opts.Out = cmd.OutOrStdout()
		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("debug", false, "Log requests, responses and node transitions")
	runCmd.Flags().Bool("reuse", false, "Return the stored user instead of authenticating again")
	runCmd.Flags().String("mock", "", "Serve this script as the tenant and authenticate against it")
	runCmd.Flags().String("mock-addr", "", "Listen address of the mock tenant (default: random port)")

	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
