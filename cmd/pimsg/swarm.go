package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var swarmSpec string

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Show the claims/completions view for a spec",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "swarm", dispatch.Params{"spec": swarmSpec})
	},
}

var claimSpec, claimReason string

var claimCmd = &cobra.Command{
	Use:   "claim <taskId>",
	Short: "Claim a (spec, task) pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "claim", dispatch.Params{
			"taskId": args[0],
			"spec":   claimSpec,
			"reason": claimReason,
		})
	},
}

var unclaimSpec string

var unclaimCmd = &cobra.Command{
	Use:   "unclaim <taskId>",
	Short: "Release a claim this agent holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "unclaim", dispatch.Params{"taskId": args[0], "spec": unclaimSpec})
	},
}

var completeSpec, completeNotes string

var completeCmd = &cobra.Command{
	Use:   "complete <taskId>",
	Short: "Complete a claimed (spec, task) pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "complete", dispatch.Params{
			"taskId": args[0],
			"spec":   completeSpec,
			"notes":  completeNotes,
		})
	},
}

func init() {
	swarmCmd.Flags().StringVar(&swarmSpec, "spec", "", "spec path to scope the view to")
	claimCmd.Flags().StringVar(&claimSpec, "spec", "", "spec path")
	claimCmd.Flags().StringVar(&claimReason, "reason", "", "reason shown to other agents")
	unclaimCmd.Flags().StringVar(&unclaimSpec, "spec", "", "spec path")
	completeCmd.Flags().StringVar(&completeSpec, "spec", "", "spec path")
	completeCmd.Flags().StringVar(&completeNotes, "notes", "", "completion notes")
	rootCmd.AddCommand(swarmCmd, claimCmd, unclaimCmd, completeCmd)
}
