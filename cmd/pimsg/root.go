package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pi-agent/messenger/internal/config"
	"github.com/pi-agent/messenger/internal/dispatch"
	"github.com/pi-agent/messenger/internal/paths"
)

var (
	flagBase    string
	flagProject string
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:           "pimsg",
	Short:         "Daemonless presence, messaging, and crew coordination for coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBase, "base", "", "override the machine-scope base directory (default: $PI_MESSENGER_DIR or ~/.pi/agent/messenger)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "override the project directory (default: <cwd>/.pi/messenger)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print the full Result.Details as JSON instead of Result.Text")
}

// Execute runs the CLI and returns any top-level error.
func Execute() error {
	return rootCmd.Execute()
}

// newDispatcher builds a Dispatcher rooted at the flag-resolved or default
// base/project directories, loading layered configuration per spec §6.
func newDispatcher() (*dispatch.Dispatcher, error) {
	base := flagBase
	if base == "" {
		base = paths.BaseDir()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	project := flagProject
	if project == "" {
		project = paths.ProjectDir(cwd)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg, err := config.Load(cwd, home)
	if err != nil {
		return nil, err
	}

	return dispatch.New(base, project, cfg), nil
}

// runAction builds a Dispatcher, dispatches action with params, and prints
// the result the way every subcommand in this package does: Result.Text by
// default, or the full Details payload under --json. A non-empty
// details.error exits nonzero without printing a second error line — the
// dispatcher's Result.Text already carries the "Error: ..." message.
func runAction(cmd *cobra.Command, action string, params dispatch.Params) error {
	d, err := newDispatcher()
	if err != nil {
		return err
	}

	res := d.Dispatch(context.Background(), action, params)

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	}

	if errKind, ok := res.Details["error"]; ok && errKind != "" {
		return &exitError{}
	}
	return nil
}

// exitError carries no message: runAction already printed the dispatcher's
// "Error: ..." text, so the root command's error path must not repeat it.
type exitError struct{}

func (*exitError) Error() string { return "" }
