package dispatch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/registry"
)

// handleCrewAction implements the crew.* housekeeping namespace: status,
// validate, agents, install, uninstall, cleanup. "install"/"uninstall" manage the
// on-disk crew layout under the project directory rather than any external
// resource, since this module has no daemon to register with.
func (d *Dispatcher) handleCrewAction(ctx context.Context, sub string, p Params) (Result, error) {
	switch sub {
	case "status":
		epics, err := d.Crew.ListEpics()
		if err != nil {
			return Result{}, err
		}
		active, completed := 0, 0
		for _, e := range epics {
			switch e.Status {
			case "active":
				active++
			case "completed":
				completed++
			}
		}
		return textResult("crew.status", fmt.Sprintf("%s: %d active, %d completed.", fmtCount(len(epics), "epic"), active, completed), map[string]any{
			"epics": epics,
		}), nil

	case "validate":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		result, err := d.Crew.ValidateEpic(id)
		if err != nil {
			return Result{}, err
		}
		text := "Valid."
		if !result.OK() {
			text = fmt.Sprintf("%s found.", fmtCount(len(result.Errors), "error"))
		}
		return textResult("crew.validate", text, map[string]any{
			"errors":   result.Errors,
			"warnings": result.Warnings,
			"ok":       result.OK(),
		}), nil

	case "agents":
		opts := registry.DiscoverOptions{}
		if d.Config.ScopeToFolder {
			opts.ScopeToFolder = d.Project
		}
		agents, err := d.Registry.GetActiveAgents(opts)
		if err != nil {
			return Result{}, err
		}
		return textResult("crew.agents", fmt.Sprintf("%s.", fmtCount(len(agents), "agent")), map[string]any{
			"agents": agents,
		}), nil

	case "install":
		if err := os.MkdirAll(paths.CrewDir(d.Project), 0755); err != nil {
			return Result{}, err
		}
		if err := os.MkdirAll(paths.ArtifactsDir(d.Project), 0755); err != nil {
			return Result{}, err
		}
		return textResult("crew.install", "Crew layout installed.", nil), nil

	case "uninstall":
		if err := os.RemoveAll(paths.CrewDir(d.Project)); err != nil {
			return Result{}, err
		}
		return textResult("crew.uninstall", "Crew layout removed.", nil), nil

	case "cleanup":
		if !d.Config.Crew.Artifacts.Enabled {
			return textResult("crew.cleanup", "Artifact cleanup disabled.", nil), nil
		}
		days := d.Config.Crew.Artifacts.CleanupDays
		if days <= 0 {
			days = 14
		}
		removed, err := d.Crew.CleanupArtifacts(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return Result{}, err
		}
		return textResult("crew.cleanup", fmt.Sprintf("Removed %d artifact director%s.", removed, pluralY(removed)), map[string]any{
			"removed": removed,
		}), nil

	default:
		return Result{}, errOf(KindUnknownOperation)
	}
}
