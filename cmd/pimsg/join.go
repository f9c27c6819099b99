package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var (
	joinName      string
	joinModel     string
	joinSpec      string
	joinGitBranch string
	joinIsHuman   bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Enter the mesh and start the inbox watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, _ := os.Getwd()
		return runAction(cmd, "join", dispatch.Params{
			"name":      joinName,
			"model":     joinModel,
			"spec":      joinSpec,
			"gitBranch": joinGitBranch,
			"isHuman":   joinIsHuman,
			"cwd":       cwd,
		})
	},
}

func init() {
	joinCmd.Flags().StringVar(&joinName, "name", "", "force a name (else PI_AGENT_NAME or a generated name)")
	joinCmd.Flags().StringVar(&joinModel, "model", "", "model label to record in the presence record")
	joinCmd.Flags().StringVar(&joinSpec, "spec", "", "working spec path")
	joinCmd.Flags().StringVar(&joinGitBranch, "git-branch", "", "git branch to record")
	joinCmd.Flags().BoolVar(&joinIsHuman, "human", false, "mark this session as human-driven")
	rootCmd.AddCommand(joinCmd)
}
