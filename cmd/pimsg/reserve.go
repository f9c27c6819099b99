package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var reserveReason string

var reserveCmd = &cobra.Command{
	Use:   "reserve <path> [path...]",
	Short: "Reserve one or more paths against concurrent writes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "reserve", dispatch.Params{
			"paths":  args,
			"reason": reserveReason,
		})
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release [path...]",
	Short: "Release reservations (all, if no paths given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "release", dispatch.Params{"paths": args})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <name>",
	Short: "Change this agent's own name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "rename", dispatch.Params{"name": args[0]})
	},
}

func init() {
	reserveCmd.Flags().StringVar(&reserveReason, "reason", "", "human-readable reason shown to agents who conflict")
	rootCmd.AddCommand(reserveCmd, releaseCmd, renameCmd)
}
