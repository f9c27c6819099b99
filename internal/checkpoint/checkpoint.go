// Package checkpoint implements save/restore/delete/list of epic
// snapshots (spec §4.6): a single JSON file capturing an epic, its tasks,
// and every spec file, restorable atomically per-file.
package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// ErrNotFound is returned by Restore/Delete when no checkpoint exists for
// the given epic.
var ErrNotFound = errors.New("checkpoint_not_found")

// Store manages checkpoints under a project's crew/checkpoints directory.
type Store struct {
	project string
}

// New creates a Store rooted at project (typically paths.ProjectDir(cwd)).
func New(project string) *Store {
	return &Store{project: project}
}

// Save snapshots epic, its tasks, the epic spec, and each task spec into
// a single checkpoint file keyed by epic id.
func (s *Store) Save(epic schema.Epic, tasks []schema.Task) (schema.Checkpoint, error) {
	epicSpec, _, err := atomicio.ReadText(paths.EpicSpecFile(s.project, epic.ID))
	if err != nil {
		return schema.Checkpoint{}, err
	}

	taskSpecs := make(map[string]string, len(tasks))
	for _, t := range tasks {
		spec, _, err := atomicio.ReadText(paths.TaskSpecFile(s.project, t.ID))
		if err != nil {
			return schema.Checkpoint{}, err
		}
		taskSpecs[t.ID] = spec
	}

	cp := schema.Checkpoint{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Epic:      epic,
		Tasks:     tasks,
		EpicSpec:  epicSpec,
		TaskSpecs: taskSpecs,
	}
	if err := atomicio.WriteJSON(paths.CheckpointFile(s.project, epic.ID), cp); err != nil {
		return schema.Checkpoint{}, err
	}
	return cp, nil
}

// Get reads the checkpoint for epicID without restoring it.
func (s *Store) Get(epicID string) (schema.Checkpoint, bool, error) {
	var cp schema.Checkpoint
	ok, err := atomicio.ReadJSON(paths.CheckpointFile(s.project, epicID), &cp)
	return cp, ok, err
}

// Restore rewrites the epic record, every task record, the epic spec, and
// each task spec from the checkpoint, each write going through the same
// atomic temp+rename primitive. A crash mid-restore leaves a mixed but
// individually-consistent state, consistent with spec §4.6 — restore is
// treated as destructive, not transactional across files.
func (s *Store) Restore(epicID string) (schema.Checkpoint, error) {
	cp, ok, err := s.Get(epicID)
	if err != nil {
		return schema.Checkpoint{}, err
	}
	if !ok {
		return schema.Checkpoint{}, ErrNotFound
	}

	if err := atomicio.WriteJSON(paths.EpicFile(s.project, cp.Epic.ID), cp.Epic); err != nil {
		return cp, err
	}
	if err := atomicio.WriteText(paths.EpicSpecFile(s.project, cp.Epic.ID), cp.EpicSpec); err != nil {
		return cp, err
	}

	existing, err := s.existingTaskIDs(cp.Epic.ID)
	if err != nil {
		return cp, err
	}
	snapshotIDs := make(map[string]bool, len(cp.Tasks))
	for _, t := range cp.Tasks {
		snapshotIDs[t.ID] = true
		if err := atomicio.WriteJSON(paths.TaskFile(s.project, t.ID), t); err != nil {
			return cp, err
		}
		if err := atomicio.WriteText(paths.TaskSpecFile(s.project, t.ID), cp.TaskSpecs[t.ID]); err != nil {
			return cp, err
		}
	}
	// Tasks created after the checkpoint was taken don't exist in the
	// snapshot; restore treats "current state replaced" literally and
	// removes them.
	for _, id := range existing {
		if !snapshotIDs[id] {
			_ = os.Remove(paths.TaskFile(s.project, id))
			_ = os.Remove(paths.TaskSpecFile(s.project, id))
		}
	}

	return cp, nil
}

func (s *Store) existingTaskIDs(epicID string) ([]string, error) {
	entries, err := os.ReadDir(paths.TasksDir(s.project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	prefix := epicID + "."
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue // task spec files (.md) live in the same directory
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if strings.HasPrefix(name, prefix) {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// Delete removes the checkpoint file for epicID.
func (s *Store) Delete(epicID string) error {
	err := os.Remove(paths.CheckpointFile(s.project, epicID))
	if err != nil && os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// List returns the epic ids that have a checkpoint.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(paths.CheckpointsDir(s.project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return ids, nil
}
