package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var planIdea bool

var planCmd = &cobra.Command{
	Use:   "plan <target>",
	Short: "Run scouts + gap analyst, create tasks for target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "plan", dispatch.Params{"target": args[0], "idea": planIdea})
	},
}

var (
	workAutonomous  bool
	workConcurrency int
)

var workCmd = &cobra.Command{
	Use:   "work <epicId>",
	Short: "Execute ready tasks in waves",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := dispatch.Params{"target": args[0], "autonomous": workAutonomous}
		if workConcurrency > 0 {
			params["concurrency"] = workConcurrency
		}
		return runAction(cmd, "work", params)
	},
}

var reviewType string

var reviewCmd = &cobra.Command{
	Use:   "review <target>",
	Short: "Review a plan or implementation and record a verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "review", dispatch.Params{"target": args[0], "type": reviewType})
	},
}

func init() {
	planCmd.Flags().BoolVar(&planIdea, "idea", false, "target is a loose idea rather than a concrete spec")
	workCmd.Flags().BoolVar(&workAutonomous, "autonomous", false, "loop waves until done/blocked instead of running one wave")
	workCmd.Flags().IntVar(&workConcurrency, "concurrency", 0, "override crew.concurrency.workers for this run")
	reviewCmd.Flags().StringVar(&reviewType, "type", "impl", "review type: plan or impl")
	rootCmd.AddCommand(planCmd, workCmd, reviewCmd)
}
