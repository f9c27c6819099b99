package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task CRUD and lifecycle",
}

var (
	taskCreateDescription string
	taskCreateDependsOn   []string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <epicId> <title>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.create", dispatch.Params{
			"epicId":      args[0],
			"title":       args[1],
			"description": taskCreateDescription,
			"dependsOn":   taskCreateDependsOn,
		})
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.show", dispatch.Params{"id": args[0]})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.list", dispatch.Params{"epicId": args[0]})
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.start", dispatch.Params{"id": args[0]})
	},
}

var taskDoneSummary string

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.done", dispatch.Params{"id": args[0], "summary": taskDoneSummary})
	},
}

var taskBlockCmd = &cobra.Command{
	Use:   "block <id> <reason>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.block", dispatch.Params{"id": args[0], "reason": args[1]})
	},
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.unblock", dispatch.Params{"id": args[0]})
	},
}

var taskReadyCmd = &cobra.Command{
	Use:   "ready <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.ready", dispatch.Params{"epicId": args[0]})
	},
}

var taskResetCascade bool

var taskResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "task.reset", dispatch.Params{"id": args[0], "cascade": taskResetCascade})
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateDescription, "description", "", "free-text task description")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateDependsOn, "depends-on", nil, "task ids this depends on")
	taskDoneCmd.Flags().StringVar(&taskDoneSummary, "summary", "", "completion summary")
	taskResetCmd.Flags().BoolVar(&taskResetCascade, "cascade", false, "recursively reset dependents")

	taskCmd.AddCommand(taskCreateCmd, taskShowCmd, taskListCmd, taskStartCmd, taskDoneCmd,
		taskBlockCmd, taskUnblockCmd, taskReadyCmd, taskResetCmd)
	rootCmd.AddCommand(taskCmd)
}
