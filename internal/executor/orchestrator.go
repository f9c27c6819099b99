package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/pi-agent/messenger/internal/crew"
	"github.com/pi-agent/messenger/internal/schema"
)

// Verdict is a review-step outcome for a completed task, per spec §4.6.
type Verdict string

const (
	VerdictShip        Verdict = "SHIP"
	VerdictNeedsWork    Verdict = "NEEDS_WORK"
	VerdictMajorRethink Verdict = "MAJOR_RETHINK"
)

// OrchestratorConfig bounds the autonomous loop. Zero values fall back to
// spec defaults.
type OrchestratorConfig struct {
	Concurrency         int
	MaxAttemptsPerTask  int
	MaxWaves            int
	Review              func(ctx context.Context, task schema.Task, result Result) Verdict
	PromptFor           func(task schema.Task) string
	WorkerCommand       string   // override the child-process binary; defaults to the host runtime's own executable
	WorkerArgs          []string // override the constructed arg pattern entirely
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxAttemptsPerTask <= 0 {
		c.MaxAttemptsPerTask = 5
	}
	if c.MaxWaves <= 0 {
		c.MaxWaves = 50
	}
	return c
}

// WaveResult summarizes one pass of the orchestration loop.
type WaveResult struct {
	Wave      int
	Started   []string
	Completed []string
	Blocked   []string
}

// Orchestrator drives the autonomous "work" action: repeatedly compute the
// ready-set, run up to Concurrency workers, record outcomes, and terminate
// when every task is done or blocked (or after MaxWaves).
type Orchestrator struct {
	engine   *crew.Engine
	executor *Executor
	cfg      OrchestratorConfig
}

// NewOrchestrator builds an Orchestrator over engine and executor.
func NewOrchestrator(engine *crew.Engine, ex *Executor, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{engine: engine, executor: ex, cfg: cfg.withDefaults()}
}

// Run drives waves until the epic is fully done/blocked, MaxWaves is
// reached, or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, epicID string) ([]WaveResult, error) {
	var waves []WaveResult

	for w := 1; w <= o.cfg.MaxWaves; w++ {
		if ctx.Err() != nil {
			return waves, ctx.Err()
		}

		ready, err := o.engine.ReadyTasks(epicID)
		if err != nil {
			return waves, err
		}
		tasks, err := o.engine.ListTasks(epicID)
		if err != nil {
			return waves, err
		}
		if len(ready) == 0 {
			if allTerminal(tasks) {
				return waves, nil
			}
			// Nothing ready but some tasks are still in_progress elsewhere
			// (or the graph genuinely stalled); stop rather than spin.
			return waves, nil
		}

		result := o.runWave(ctx, w, ready)
		waves = append(waves, result)
	}

	return waves, nil
}

func allTerminal(tasks []schema.Task) bool {
	for _, t := range tasks {
		if t.Status != schema.TaskDone && t.Status != schema.TaskBlocked {
			return false
		}
	}
	return true
}

func (o *Orchestrator) runWave(ctx context.Context, wave int, ready []schema.Task) WaveResult {
	result := WaveResult{Wave: wave}
	sem := make(chan struct{}, o.cfg.Concurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, task := range ready {
		sem <- struct{}{}
		wg.Add(1)
		go func(t schema.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runOne(ctx, t, &result, &mu)
		}(task)
	}
	wg.Wait()
	return result
}

func (o *Orchestrator) runOne(ctx context.Context, task schema.Task, result *WaveResult, mu *sync.Mutex) {
	agentName := fmt.Sprintf("worker-%s", task.ID)
	started, err := o.engine.StartTask(ctx, task.ID, agentName)
	if err != nil {
		return
	}

	mu.Lock()
	result.Started = append(result.Started, started.ID)
	mu.Unlock()

	prompt := task.Title
	if o.cfg.PromptFor != nil {
		prompt = o.cfg.PromptFor(task)
	}

	runResult, err := o.executor.Run(ctx, Task{
		AgentName: agentName,
		Prompt:    prompt,
		Command:   o.cfg.WorkerCommand,
		RawArgs:   o.cfg.WorkerArgs,
	}, nil)

	verdict := VerdictShip
	if o.cfg.Review != nil {
		verdict = o.cfg.Review(ctx, started, runResult)
	} else if err != nil || runResult.ExitErr != nil {
		verdict = VerdictNeedsWork
	}

	mu.Lock()
	defer mu.Unlock()

	switch verdict {
	case VerdictShip:
		if _, cerr := o.engine.CompleteTask(ctx, task.ID, "completed by autonomous worker", nil); cerr == nil {
			result.Completed = append(result.Completed, task.ID)
		}
	default:
		current, _, _ := o.engine.GetTask(task.ID)
		if current.AttemptCount >= o.cfg.MaxAttemptsPerTask {
			if _, berr := o.engine.BlockTask(ctx, task.ID, "exceeded max attempts without a SHIP verdict"); berr == nil {
				result.Blocked = append(result.Blocked, task.ID)
			}
		} else {
			_, _ = o.engine.ResetTask(ctx, task.ID, false)
		}
	}
}
