package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/pi-agent/messenger/internal/crew"
)

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	project := t.TempDir()
	base := t.TempDir()
	engine := crew.New(project, base)

	epic, err := engine.CreateEpic(ctx(t), "Epic")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if err := engine.SetEpicSpec(epic.ID, "epic spec body"); err != nil {
		t.Fatalf("SetEpicSpec: %v", err)
	}
	t1, err := engine.CreateTask(ctx(t), epic.ID, "T1", "spec 1", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	t2, err := engine.CreateTask(ctx(t), epic.ID, "T2", "spec 2", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	store := New(project)
	epicRec, _, _ := engine.GetEpic(epic.ID)
	tasks, _ := engine.ListTasks(epic.ID)
	if _, err := store.Save(epicRec, tasks); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := engine.StartTask(ctx(t), t1.ID, "a"); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if _, err := engine.CompleteTask(ctx(t), t1.ID, "done", nil); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if _, err := engine.StartTask(ctx(t), t2.ID, "b"); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if _, err := engine.CompleteTask(ctx(t), t2.ID, "done", nil); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	if _, err := store.Restore(epic.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restoredEpic, _, _ := engine.GetEpic(epic.ID)
	if restoredEpic.CompletedCount != 0 || restoredEpic.Status != "planning" {
		t.Fatalf("expected restored epic to match snapshot, got %+v", restoredEpic)
	}
	restoredT1, _, _ := engine.GetTask(t1.ID)
	if restoredT1.Status != "todo" {
		t.Fatalf("expected restored task todo, got %q", restoredT1.Status)
	}
	spec, err := engine.GetEpicSpec(epic.ID)
	if err != nil || spec != "epic spec body" {
		t.Fatalf("expected restored epic spec, got %q err=%v", spec, err)
	}
}

func TestDeleteAndList(t *testing.T) {
	project := t.TempDir()
	base := t.TempDir()
	engine := crew.New(project, base)
	epic, err := engine.CreateEpic(ctx(t), "Epic")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}

	store := New(project)
	epicRec, _, _ := engine.GetEpic(epic.ID)
	if _, err := store.Save(epicRec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != epic.ID {
		t.Fatalf("expected 1 checkpoint listed, got %v", ids)
	}

	if err := store.Delete(epic.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(epic.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRestoreMissingCheckpoint(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Restore("c-1-xyz"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
