package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show this agent's status and peer count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "status", dispatch.Params{})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "list", dispatch.Params{})
	},
}

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show recent activity feed events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "feed", dispatch.Params{"limit": feedLimit})
	},
}

var whoisCmd = &cobra.Command{
	Use:   "whois <name>",
	Short: "Show one agent's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "whois", dispatch.Params{"name": args[0]})
	},
}

var setStatusMessage string

var setStatusCmd = &cobra.Command{
	Use:   "set-status [message]",
	Short: "Set or clear this agent's custom status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := setStatusMessage
		if len(args) > 0 {
			msg = args[0]
		}
		return runAction(cmd, "set_status", dispatch.Params{"message": msg})
	},
}

var specCmd = &cobra.Command{
	Use:   "spec <path>",
	Short: "Set this agent's working spec path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "spec", dispatch.Params{"spec": args[0]})
	},
}

func init() {
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "max events to return")
	rootCmd.AddCommand(statusCmd, listCmd, feedCmd, whoisCmd, setStatusCmd, specCmd)
}
