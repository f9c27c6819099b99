package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var autoRegisterCmd = &cobra.Command{
	Use:   "autoregister <add|remove|list> [path]",
	Short: "Manage per-folder auto-join configuration",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := dispatch.Params{"autoRegisterPath": args[0]}
		if len(args) > 1 {
			params["path"] = args[1]
		}
		return runAction(cmd, "autoRegisterPath", params)
	},
}

func init() {
	rootCmd.AddCommand(autoRegisterCmd)
}
