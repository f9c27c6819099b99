package main

import (
	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/dispatch"
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Crew housekeeping: status, validate, agents, install, uninstall, cleanup",
}

var crewStatusCmd = &cobra.Command{
	Use: "status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.status", dispatch.Params{})
	},
}

var crewValidateCmd = &cobra.Command{
	Use:   "validate <epicId>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.validate", dispatch.Params{"id": args[0]})
	},
}

var crewAgentsCmd = &cobra.Command{
	Use: "agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.agents", dispatch.Params{})
	},
}

var crewInstallCmd = &cobra.Command{
	Use: "install",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.install", dispatch.Params{})
	},
}

var crewUninstallCmd = &cobra.Command{
	Use: "uninstall",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.uninstall", dispatch.Params{})
	},
}

var crewCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove worker artifact directories past the configured retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "crew.cleanup", dispatch.Params{})
	},
}

func init() {
	crewCmd.AddCommand(crewStatusCmd, crewValidateCmd, crewAgentsCmd, crewInstallCmd, crewUninstallCmd, crewCleanupCmd)
	rootCmd.AddCommand(crewCmd)
}
