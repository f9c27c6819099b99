package crew

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newEngine(t *testing.T) *Engine {
	return New(t.TempDir(), t.TempDir())
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestCreateEpicAllocatesSequentialN(t *testing.T) {
	e := newEngine(t)
	e1, err := e.CreateEpic(ctx(t), "First")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	e2, err := e.CreateEpic(ctx(t), "Second")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if e1.ID == e2.ID {
		t.Fatalf("expected distinct epic ids, got %q twice", e1.ID)
	}
	if !strings.HasPrefix(e1.ID, "c-1-") || !strings.HasPrefix(e2.ID, "c-2-") {
		t.Fatalf("expected ids c-1-* then c-2-*, got %q and %q", e1.ID, e2.ID)
	}
	if e1.Status != "planning" {
		t.Fatalf("expected new epic status planning, got %q", e1.Status)
	}
}

func TestCreateTaskIncrementsEpicTaskCount(t *testing.T) {
	e := newEngine(t)
	epic, err := e.CreateEpic(ctx(t), "Epic")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if _, err := e.CreateTask(ctx(t), epic.ID, "Task 1", "do the thing", nil); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	got, ok, err := e.GetEpic(epic.ID)
	if err != nil || !ok {
		t.Fatalf("GetEpic: ok=%v err=%v", ok, err)
	}
	if got.TaskCount != 1 {
		t.Fatalf("expected task_count 1, got %d", got.TaskCount)
	}
}

func TestTaskLifecycleStartComplete(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	task, _ := e.CreateTask(ctx(t), epic.ID, "Task", "", nil)

	started, err := e.StartTask(ctx(t), task.ID, "nimble-otter")
	if err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if started.Status != "in_progress" || started.AssignedTo != "nimble-otter" || started.AttemptCount != 1 {
		t.Fatalf("unexpected task after start: %+v", started)
	}

	if _, err := e.StartTask(ctx(t), task.ID, "another"); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition re-starting an in-progress task, got %v", err)
	}

	done, err := e.CompleteTask(ctx(t), task.ID, "shipped it", nil)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if done.Status != "done" || done.AssignedTo != "" {
		t.Fatalf("unexpected task after complete: %+v", done)
	}

	epicAfter, _, _ := e.GetEpic(epic.ID)
	if epicAfter.CompletedCount != 1 || epicAfter.Status != "completed" {
		t.Fatalf("expected epic completed with count 1, got %+v", epicAfter)
	}
}

func TestCloseEpicRequiresAllTasksDone(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	task, _ := e.CreateTask(ctx(t), epic.ID, "Task", "", nil)

	if _, err := e.CloseEpic(ctx(t), epic.ID); err != ErrIncompleteTasks {
		t.Fatalf("expected ErrIncompleteTasks, got %v", err)
	}

	if _, err := e.StartTask(ctx(t), task.ID, "a"); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if _, err := e.CompleteTask(ctx(t), task.ID, "done", nil); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	closed, err := e.CloseEpic(ctx(t), epic.ID)
	if err != nil {
		t.Fatalf("CloseEpic: %v", err)
	}
	if closed.Status != "completed" || closed.ClosedAt == nil {
		t.Fatalf("expected closed epic with closed_at set, got %+v", closed)
	}
}

func TestBlockAndUnblockTask(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	task, _ := e.CreateTask(ctx(t), epic.ID, "Task", "", nil)

	blocked, err := e.BlockTask(ctx(t), task.ID, "waiting on design review")
	if err != nil {
		t.Fatalf("BlockTask: %v", err)
	}
	if blocked.Status != "blocked" || blocked.BlockedReason == "" {
		t.Fatalf("unexpected task after block: %+v", blocked)
	}

	unblocked, err := e.UnblockTask(ctx(t), task.ID)
	if err != nil {
		t.Fatalf("UnblockTask: %v", err)
	}
	if unblocked.Status != "todo" || unblocked.BlockedReason != "" {
		t.Fatalf("unexpected task after unblock: %+v", unblocked)
	}
}

func TestResetTaskCascades(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	t1, _ := e.CreateTask(ctx(t), epic.ID, "T1", "", nil)
	t2, _ := e.CreateTask(ctx(t), epic.ID, "T2", "", []string{t1.ID})

	if _, err := e.StartTask(ctx(t), t1.ID, "a"); err != nil {
		t.Fatalf("StartTask t1: %v", err)
	}
	if _, err := e.CompleteTask(ctx(t), t1.ID, "done", nil); err != nil {
		t.Fatalf("CompleteTask t1: %v", err)
	}
	if _, err := e.StartTask(ctx(t), t2.ID, "b"); err != nil {
		t.Fatalf("StartTask t2: %v", err)
	}

	if _, err := e.ResetTask(ctx(t), t1.ID, true); err != nil {
		t.Fatalf("ResetTask: %v", err)
	}

	gotT1, _, _ := e.GetTask(t1.ID)
	gotT2, _, _ := e.GetTask(t2.ID)
	if gotT1.Status != "todo" {
		t.Fatalf("expected t1 reset to todo, got %q", gotT1.Status)
	}
	if gotT2.Status != "todo" {
		t.Fatalf("expected cascade to reset t2 to todo, got %q", gotT2.Status)
	}
}

func TestReadyTasksRespectsDependencies(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	t1, _ := e.CreateTask(ctx(t), epic.ID, "T1", "", nil)
	t2, _ := e.CreateTask(ctx(t), epic.ID, "T2", "", []string{t1.ID})

	ready, err := e.ReadyTasks(epic.ID)
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != t1.ID {
		t.Fatalf("expected only t1 ready, got %+v", ready)
	}

	if _, err := e.StartTask(ctx(t), t1.ID, "a"); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if _, err := e.CompleteTask(ctx(t), t1.ID, "done", nil); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	ready, err = e.ReadyTasks(epic.ID)
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != t2.ID {
		t.Fatalf("expected only t2 ready after t1 completes, got %+v", ready)
	}
}

func TestValidateEpicDetectsOrphan(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	t1, _ := e.CreateTask(ctx(t), epic.ID, "T1", "", []string{"c-1-xyz.99"})
	_ = t1

	result, err := e.ValidateEpic(epic.ID)
	if err != nil {
		t.Fatalf("ValidateEpic: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected validation errors for orphan dependency, got none")
	}
}

func TestValidateEpicDetectsCycle(t *testing.T) {
	e := newEngine(t)
	epic, _ := e.CreateEpic(ctx(t), "Epic")
	t1, _ := e.CreateTask(ctx(t), epic.ID, "T1", "", nil)
	t2, _ := e.CreateTask(ctx(t), epic.ID, "T2", "", []string{t1.ID})

	// Manually introduce a cycle: t1 depends on t2, t2 depends on t1.
	gotT1, _, _ := e.GetTask(t1.ID)
	gotT1.DependsOn = []string{t2.ID}
	if err := e.writeTask(gotT1); err != nil {
		t.Fatalf("writeTask: %v", err)
	}

	result, err := e.ValidateEpic(epic.ID)
	if err != nil {
		t.Fatalf("ValidateEpic: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected a cycle error, got none")
	}
}
