package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/aretw0/davinci/internal/cli"
	"github.com/aretw0/davinci/internal/logging"
)

var mockCmd = &cobra.Command{
	Use:   "mock <script>",
	Short: "Serve a scripted tenant",
	Long:  `Serves the steps of a yaml script as a DaVinci tenant until interrupted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		level, _ := cmd.Flags().GetString("log-level")

		lvl, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.Serve(ctx, args[0], addr, logging.New(lvl))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(mockCmd)

	mockCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	mockCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
