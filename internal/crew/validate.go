package crew

import (
	"fmt"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// ValidationResult is the outcome of validateEpic: errors block the epic
// from being treated as well-formed, warnings are informational.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the epic has no validation errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// ValidateEpic enumerates epicID's tasks and reports errors for
// dependencies on non-existent tasks and for dependency cycles (DFS with
// visited + recursion-stack sets), and warnings for stub specs and
// count mismatches.
func (e *Engine) ValidateEpic(epicID string) (ValidationResult, error) {
	var result ValidationResult

	epic, ok, err := e.readEpic(epicID)
	if err != nil {
		return result, err
	}
	if !ok {
		return result, ErrEpicNotFound
	}

	tasks, err := e.ListTasks(epicID)
	if err != nil {
		return result, err
	}
	byID := make(map[string]schema.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: orphan_dependency on %s", t.ID, dep))
			}
		}
	}

	visited := map[string]bool{}
	onStack := map[string]bool{}
	var cyclic func(id string) bool
	cyclic = func(id string) bool {
		if onStack[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		onStack[id] = true
		for _, dep := range byID[id].DependsOn {
			if _, ok := byID[dep]; !ok {
				continue // already reported as an orphan above
			}
			if cyclic(dep) {
				return true
			}
		}
		onStack[id] = false
		return false
	}
	reportedCycle := false
	for _, t := range tasks {
		if !visited[t.ID] && cyclic(t.ID) && !reportedCycle {
			result.Errors = append(result.Errors, "circular_dependency detected in task graph")
			reportedCycle = true
		}
	}

	completed := 0
	for _, t := range tasks {
		if t.Status == schema.TaskDone {
			completed++
		}
		spec, _, err := atomicio.ReadText(paths.TaskSpecFile(e.project, t.ID))
		if err != nil {
			return result, err
		}
		if spec == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: stub spec", t.ID))
		}
	}
	if epic.TaskCount != len(tasks) || epic.CompletedCount != completed {
		result.Warnings = append(result.Warnings, "stored counts do not match recomputed counts")
	}

	return result, nil
}
