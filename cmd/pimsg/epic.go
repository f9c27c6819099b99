package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var epicCmd = &cobra.Command{
	Use:   "epic",
	Short: "Epic CRUD",
}

var epicCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "epic.create", dispatch.Params{"title": args[0]})
	},
}

var epicShowCmd = &cobra.Command{
	Use:   "show <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "epic.show", dispatch.Params{"id": args[0]})
	},
}

var epicListCmd = &cobra.Command{
	Use: "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "epic.list", dispatch.Params{})
	},
}

var epicCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "epic.close", dispatch.Params{"id": args[0]})
	},
}

var epicSetSpecCmd = &cobra.Command{
	Use:   "set-spec <id> <content>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "epic.set_spec", dispatch.Params{"id": args[0], "content": args[1]})
	},
}

func init() {
	epicCmd.AddCommand(epicCreateCmd, epicShowCmd, epicListCmd, epicCloseCmd, epicSetSpecCmd)
	rootCmd.AddCommand(epicCmd)
}
