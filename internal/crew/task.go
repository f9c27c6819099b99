package crew

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// CreateTask allocates an id under the swarm lock, writes the task + spec
// stub, and increments the epic's task_count.
func (e *Engine) CreateTask(ctx context.Context, epicID, title, description string, dependsOn []string) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		epic, ok, err := e.readEpic(epicID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEpicNotFound
		}

		if err := os.MkdirAll(paths.TasksDir(e.project), 0755); err != nil {
			return err
		}
		m, err := e.nextTaskM(epicID)
		if err != nil {
			return err
		}
		id := fmt.Sprintf("%s.%d", epicID, m)

		ts := now()
		task = schema.Task{
			ID:        id,
			EpicID:    epicID,
			Title:     title,
			Status:    schema.TaskTodo,
			DependsOn: dependsOn,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := e.writeTask(task); err != nil {
			return err
		}
		if err := atomicio.WriteText(paths.TaskSpecFile(e.project, id), description); err != nil {
			return err
		}

		epic.TaskCount++
		epic.UpdatedAt = ts
		return e.writeEpic(epic)
	})
	return task, err
}

// SetDependsOn overwrites a task's dependency list, used by the plan
// action to wire dependencies resolved from scout/analyst output after
// every referenced task has been created.
func (e *Engine) SetDependsOn(ctx context.Context, id string, dependsOn []string) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		existing.DependsOn = dependsOn
		existing.UpdatedAt = now()
		if err := e.writeTask(existing); err != nil {
			return err
		}
		task = existing
		return nil
	})
	return task, err
}

// GetTask reads a single task record.
func (e *Engine) GetTask(id string) (schema.Task, bool, error) {
	return e.readTask(id)
}

// StartTask transitions a todo task to in_progress, capturing base_commit
// best-effort and bumping attempt_count.
func (e *Engine) StartTask(ctx context.Context, id, agent string) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		if existing.Status != schema.TaskTodo {
			return ErrInvalidTransition
		}

		ts := now()
		existing.Status = schema.TaskInProgress
		existing.StartedAt = &ts
		existing.BaseCommit = gitHeadBestEffort(e.project)
		existing.AssignedTo = agent
		existing.AttemptCount++
		existing.UpdatedAt = ts
		if err := e.writeTask(existing); err != nil {
			return err
		}
		task = existing
		return nil
	})
	return task, err
}

// CompleteTask transitions an in_progress task to done and updates the
// owning epic's completed_count and status.
func (e *Engine) CompleteTask(ctx context.Context, id, summary string, evidence *schema.Evidence) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		if existing.Status != schema.TaskInProgress {
			return ErrInvalidTransition
		}

		ts := now()
		existing.Status = schema.TaskDone
		existing.CompletedAt = &ts
		existing.AssignedTo = ""
		existing.Summary = summary
		existing.Evidence = evidence
		existing.UpdatedAt = ts
		if err := e.writeTask(existing); err != nil {
			return err
		}
		task = existing

		return e.recomputeEpicCounts(existing.EpicID, ts)
	})
	return task, err
}

// BlockTask writes a block context file and transitions the task to
// blocked.
func (e *Engine) BlockTask(ctx context.Context, id, reason string) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}

		if err := atomicio.WriteText(paths.BlockFile(e.project, id), reason); err != nil {
			return err
		}

		existing.Status = schema.TaskBlocked
		existing.BlockedReason = reason
		existing.UpdatedAt = now()
		if err := e.writeTask(existing); err != nil {
			return err
		}
		task = existing
		return nil
	})
	return task, err
}

// UnblockTask removes the block file and transitions a blocked task back
// to todo.
func (e *Engine) UnblockTask(ctx context.Context, id string) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		if existing.Status != schema.TaskBlocked {
			return ErrInvalidTransition
		}

		_ = os.Remove(paths.BlockFile(e.project, id))

		existing.Status = schema.TaskTodo
		existing.BlockedReason = ""
		existing.UpdatedAt = now()
		if err := e.writeTask(existing); err != nil {
			return err
		}
		task = existing
		return nil
	})
	return task, err
}

// ResetTask clears execution fields and sets status to todo. If cascade is
// set, every task that depends on id and is not already todo is reset
// recursively.
func (e *Engine) ResetTask(ctx context.Context, id string, cascade bool) (schema.Task, error) {
	var task schema.Task
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readTask(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}

		if err := e.resetOne(&existing); err != nil {
			return err
		}
		task = existing

		if cascade {
			if err := e.cascadeReset(existing.EpicID, id, map[string]bool{id: true}); err != nil {
				return err
			}
		}

		return e.recomputeEpicCounts(existing.EpicID, now())
	})
	return task, err
}

func (e *Engine) resetOne(t *schema.Task) error {
	t.StartedAt = nil
	t.CompletedAt = nil
	t.BaseCommit = ""
	t.AssignedTo = ""
	t.Summary = ""
	t.Evidence = nil
	t.BlockedReason = ""
	t.Status = schema.TaskTodo
	t.UpdatedAt = now()
	_ = os.Remove(paths.BlockFile(e.project, t.ID))
	return e.writeTask(*t)
}

func (e *Engine) cascadeReset(epicID, resetID string, seen map[string]bool) error {
	tasks, err := e.ListTasks(epicID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if seen[t.ID] || t.Status == schema.TaskTodo {
			continue
		}
		dependsOnReset := false
		for _, dep := range t.DependsOn {
			if dep == resetID {
				dependsOnReset = true
				break
			}
		}
		if !dependsOnReset {
			continue
		}
		seen[t.ID] = true
		if err := e.resetOne(&t); err != nil {
			return err
		}
		if err := e.cascadeReset(epicID, t.ID, seen); err != nil {
			return err
		}
	}
	return nil
}

// recomputeEpicCounts recounts completed_count against the stored
// task_count and adjusts epic status: completed when task_count is non-zero
// and that many tasks are done; otherwise a completed epic, or a planning
// epic that has tasks, becomes active, and a blocked or archived epic keeps
// its status.
func (e *Engine) recomputeEpicCounts(epicID string, ts time.Time) error {
	epic, ok, err := e.readEpic(epicID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEpicNotFound
	}

	tasks, err := e.ListTasks(epicID)
	if err != nil {
		return err
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == schema.TaskDone {
			completed++
		}
	}

	epic.CompletedCount = completed
	if epic.TaskCount > 0 && completed == epic.TaskCount {
		epic.Status = schema.EpicCompleted
	} else if epic.Status == schema.EpicCompleted {
		epic.Status = schema.EpicActive
	} else if epic.Status == schema.EpicPlanning && len(tasks) > 0 {
		epic.Status = schema.EpicActive
	}
	epic.UpdatedAt = ts
	return e.writeEpic(epic)
}

// ReadyTasks returns tasks whose status is todo and whose every dependency
// is done.
func (e *Engine) ReadyTasks(epicID string) ([]schema.Task, error) {
	tasks, err := e.ListTasks(epicID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]schema.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var ready []schema.Task
	for _, t := range tasks {
		if t.Status != schema.TaskTodo {
			continue
		}
		allDone := true
		for _, dep := range t.DependsOn {
			if dt, ok := byID[dep]; !ok || dt.Status != schema.TaskDone {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, t)
		}
	}
	return ready, nil
}
