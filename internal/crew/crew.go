// Package crew implements the epic/task dependency-graph engine of spec
// §4.6: CRUD, validation, ready-set computation, and artifact cleanup, with
// id allocation serialized by the swarm lock. Checkpoints live in package
// checkpoint.
package crew

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
	"github.com/pi-agent/messenger/internal/swarmlock"
)

// Errors returned by epic/task operations, matching spec §7 tags.
var (
	ErrEpicNotFound         = errors.New("epic_not_found")
	ErrTaskNotFound         = errors.New("task_not_found")
	ErrIncompleteTasks      = errors.New("incomplete_tasks")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrCircularDependency   = errors.New("circular_dependency")
	ErrOrphanDependency     = errors.New("orphan_dependency")
)

const idSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Engine operates on the crew tree under project, serializing id
// allocation and table mutation through the swarm lock rooted at base.
type Engine struct {
	project  string
	lockPath string
}

// New creates an Engine for project (typically paths.ProjectDir(cwd)),
// using the swarm lock under base (typically paths.BaseDir()).
func New(project, base string) *Engine {
	return &Engine{project: project, lockPath: paths.SwarmLockFile(base)}
}

func (e *Engine) withLock(ctx context.Context, fn func() error) error {
	return swarmlock.With(ctx, e.lockPath, fn)
}

func randSuffix() string {
	b := make([]byte, 3)
	for i := range b {
		b[i] = idSuffixAlphabet[rand.Intn(len(idSuffixAlphabet))]
	}
	return string(b)
}

// nextEpicN scans existing epic files for the highest N in "c-<N>-<sss>"
// and returns N+1 (or 1 if none exist).
func (e *Engine) nextEpicN() (int, error) {
	entries, err := os.ReadDir(paths.EpicsDir(e.project))
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, ent := range entries {
		name := strings.TrimSuffix(ent.Name(), ".json")
		parts := strings.SplitN(name, "-", 3)
		if len(parts) != 3 || parts[0] != "c" {
			continue
		}
		if n, err := strconv.Atoi(parts[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// nextTaskM scans existing task files belonging to epicID for the highest
// M in "<epicID>.<M>" and returns M+1 (or 1 if none exist).
func (e *Engine) nextTaskM(epicID string) (int, error) {
	entries, err := os.ReadDir(paths.TasksDir(e.project))
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	prefix := epicID + "."
	max := 0
	for _, ent := range entries {
		name := strings.TrimSuffix(ent.Name(), ".json")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(name, prefix)); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (e *Engine) readEpic(id string) (schema.Epic, bool, error) {
	var epic schema.Epic
	ok, err := atomicio.ReadJSON(paths.EpicFile(e.project, id), &epic)
	return epic, ok, err
}

func (e *Engine) writeEpic(epic schema.Epic) error {
	return atomicio.WriteJSON(paths.EpicFile(e.project, epic.ID), epic)
}

func (e *Engine) readTask(id string) (schema.Task, bool, error) {
	var task schema.Task
	ok, err := atomicio.ReadJSON(paths.TaskFile(e.project, id), &task)
	return task, ok, err
}

func (e *Engine) writeTask(task schema.Task) error {
	return atomicio.WriteJSON(paths.TaskFile(e.project, task.ID), task)
}

// ListTasks returns every task belonging to epicID.
func (e *Engine) ListTasks(epicID string) ([]schema.Task, error) {
	entries, err := os.ReadDir(paths.TasksDir(e.project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	prefix := epicID + "."
	var tasks []schema.Task
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !strings.HasPrefix(strings.TrimSuffix(name, ".json"), prefix) {
			continue
		}
		var task schema.Task
		ok, err := atomicio.ReadJSON(filepath.Join(paths.TasksDir(e.project), name), &task)
		if err != nil {
			return nil, err
		}
		if ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// ListEpics returns every epic in the project.
func (e *Engine) ListEpics() ([]schema.Epic, error) {
	entries, err := os.ReadDir(paths.EpicsDir(e.project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var epics []schema.Epic
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		var epic schema.Epic
		ok, err := atomicio.ReadJSON(filepath.Join(paths.EpicsDir(e.project), ent.Name()), &epic)
		if err != nil {
			return nil, err
		}
		if ok {
			epics = append(epics, epic)
		}
	}
	return epics, nil
}

// gitHeadBestEffort returns the current HEAD commit of the project's git
// repository, or "" if unavailable — start-task's base_commit capture is
// explicitly best-effort per spec.
func gitHeadBestEffort(project string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = project
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func now() time.Time { return time.Now().UTC() }
