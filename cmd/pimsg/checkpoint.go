package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Snapshot and restore epic state",
}

var checkpointSaveCmd = &cobra.Command{
	Use:   "save <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "checkpoint.save", dispatch.Params{"id": args[0]})
	},
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "checkpoint.restore", dispatch.Params{"id": args[0]})
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:   "delete <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "checkpoint.delete", dispatch.Params{"id": args[0]})
	},
}

var checkpointListCmd = &cobra.Command{
	Use: "list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "checkpoint.list", dispatch.Params{})
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointSaveCmd, checkpointRestoreCmd, checkpointDeleteCmd, checkpointListCmd)
	rootCmd.AddCommand(checkpointCmd)
}
