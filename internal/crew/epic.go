package crew

import (
	"context"
	"fmt"
	"os"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// CreateEpic allocates an id under the swarm lock and writes a new epic
// record in status planning with a stub spec file.
func (e *Engine) CreateEpic(ctx context.Context, title string) (schema.Epic, error) {
	var epic schema.Epic
	err := e.withLock(ctx, func() error {
		if err := os.MkdirAll(paths.EpicsDir(e.project), 0755); err != nil {
			return err
		}
		if err := os.MkdirAll(paths.SpecsDir(e.project), 0755); err != nil {
			return err
		}

		n, err := e.nextEpicN()
		if err != nil {
			return err
		}
		id := fmt.Sprintf("c-%d-%s", n, randSuffix())

		ts := now()
		epic = schema.Epic{
			ID:        id,
			Title:     title,
			Status:    schema.EpicPlanning,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := e.writeEpic(epic); err != nil {
			return err
		}
		return atomicio.WriteText(paths.EpicSpecFile(e.project, id), "")
	})
	return epic, err
}

// EpicPatch carries the optional fields UpdateEpic may change.
type EpicPatch struct {
	Title  *string
	Status *schema.EpicStatus
}

// UpdateEpic applies patch to epic id via read-modify-write, touching
// updated_at.
func (e *Engine) UpdateEpic(ctx context.Context, id string, patch EpicPatch) (schema.Epic, error) {
	var epic schema.Epic
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readEpic(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEpicNotFound
		}
		if patch.Title != nil {
			existing.Title = *patch.Title
		}
		if patch.Status != nil {
			existing.Status = *patch.Status
		}
		existing.UpdatedAt = now()
		if err := e.writeEpic(existing); err != nil {
			return err
		}
		epic = existing
		return nil
	})
	return epic, err
}

// CloseEpic requires every task of the epic to be done, then sets status
// completed and closed_at.
func (e *Engine) CloseEpic(ctx context.Context, id string) (schema.Epic, error) {
	var epic schema.Epic
	err := e.withLock(ctx, func() error {
		existing, ok, err := e.readEpic(id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEpicNotFound
		}

		tasks, err := e.ListTasks(id)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.Status != schema.TaskDone {
				return ErrIncompleteTasks
			}
		}

		ts := now()
		existing.Status = schema.EpicCompleted
		existing.ClosedAt = &ts
		existing.UpdatedAt = ts
		if err := e.writeEpic(existing); err != nil {
			return err
		}
		epic = existing
		return nil
	})
	return epic, err
}

// SetEpicSpec overwrites the epic's free-text spec file.
func (e *Engine) SetEpicSpec(id, content string) error {
	if _, ok, err := e.readEpic(id); err != nil {
		return err
	} else if !ok {
		return ErrEpicNotFound
	}
	return atomicio.WriteText(paths.EpicSpecFile(e.project, id), content)
}

// GetEpicSpec reads the epic's free-text spec file.
func (e *Engine) GetEpicSpec(id string) (string, error) {
	text, _, err := atomicio.ReadText(paths.EpicSpecFile(e.project, id))
	return text, err
}

// GetEpic reads a single epic record.
func (e *Engine) GetEpic(id string) (schema.Epic, bool, error) {
	return e.readEpic(id)
}
