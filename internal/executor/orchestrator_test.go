package executor

import (
	"context"
	"testing"
	"time"

	"github.com/pi-agent/messenger/internal/crew"
	"github.com/pi-agent/messenger/internal/inbox"
	"github.com/pi-agent/messenger/internal/schema"
)

func TestOrchestratorCompletesReadyTasksWithShipVerdict(t *testing.T) {
	project := t.TempDir()
	base := t.TempDir()
	engine := crew.New(project, base)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	epic, err := engine.CreateEpic(ctx, "Epic")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if _, err := engine.CreateTask(ctx, epic.ID, "T1", "", nil); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	ib := inbox.New(t.TempDir())
	ex := New(2, t.TempDir(), ib, Config{})
	orch := NewOrchestrator(engine, ex, OrchestratorConfig{
		Concurrency:   2,
		WorkerCommand: "/bin/sh",
		WorkerArgs:    []string{"-c", "true"},
		Review: func(ctx context.Context, task schema.Task, result Result) Verdict {
			return VerdictShip
		},
		PromptFor: func(task schema.Task) string { return "noop" },
	})
	// WorkerCommand/WorkerArgs above point the executor at a harmless shell
	// command, and the custom Review func makes the child process result
	// irrelevant to the verdict.

	waves, err := orch.Run(ctx, epic.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(waves) == 0 {
		t.Fatalf("expected at least one wave")
	}

	final, _, _ := engine.GetEpic(epic.ID)
	if final.Status != "completed" {
		t.Fatalf("expected epic completed, got %+v", final)
	}
}

func TestOrchestratorBlocksAfterMaxAttempts(t *testing.T) {
	project := t.TempDir()
	base := t.TempDir()
	engine := crew.New(project, base)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	epic, err := engine.CreateEpic(ctx, "Epic")
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if _, err := engine.CreateTask(ctx, epic.ID, "T1", "", nil); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	ib := inbox.New(t.TempDir())
	ex := New(1, t.TempDir(), ib, Config{})
	orch := NewOrchestrator(engine, ex, OrchestratorConfig{
		Concurrency:        1,
		MaxAttemptsPerTask: 2,
		MaxWaves:           2,
		WorkerCommand:      "/bin/sh",
		WorkerArgs:         []string{"-c", "true"},
		Review: func(ctx context.Context, task schema.Task, result Result) Verdict {
			return VerdictNeedsWork
		},
	})

	if _, err := orch.Run(ctx, epic.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tasks, _ := engine.ListTasks(epic.ID)
	if len(tasks) != 1 || tasks[0].Status != schema.TaskBlocked {
		t.Fatalf("expected task blocked after exceeding max attempts, got %+v", tasks)
	}
}
