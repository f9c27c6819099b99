package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/pi-agent/messenger/internal/executor"
	"github.com/pi-agent/messenger/internal/schema"
)

// resolveEpic finds an epic by id (if target looks like one, "c-<N>-<sss>")
// or by exact title match against the most recently updated non-terminal
// epic with that title, creating a new planning epic if neither exists.
func (d *Dispatcher) resolveEpic(ctx context.Context, target string) (schema.Epic, error) {
	if epic, ok, err := d.Crew.GetEpic(target); err == nil && ok {
		return epic, nil
	}

	epics, err := d.Crew.ListEpics()
	if err != nil {
		return schema.Epic{}, err
	}
	var best schema.Epic
	found := false
	for _, e := range epics {
		if e.Title == target && e.Status != schema.EpicCompleted && e.Status != schema.EpicArchived {
			if !found || e.UpdatedAt.After(best.UpdatedAt) {
				best, found = e, true
			}
		}
	}
	if found {
		return best, nil
	}
	return d.Crew.CreateEpic(ctx, target)
}

// handlePlan implements the "plan" action of spec §4.6/§6: spawn scouts up
// to the configured concurrency, feed their findings to an analyst step,
// parse the task blocks the analyst emits, and create the tasks (wiring
// depends_on by title resolution within the batch).
func (d *Dispatcher) handlePlan(ctx context.Context, p Params) (Result, error) {
	target := getString(p, "target")
	if target == "" {
		return Result{}, errOf(KindMissingTitle)
	}
	idea := getBool(p, "idea")

	epic, err := d.resolveEpic(ctx, target)
	if err != nil {
		return Result{}, err
	}

	scouts := d.Config.Crew.Concurrency.Scouts
	if scouts <= 0 {
		return Result{}, errOf(KindNoScouts)
	}

	findings := d.runScouts(ctx, scouts, target, idea)
	if len(findings) == 0 {
		return Result{}, errOf(KindGeneratorFailed)
	}

	analystResult, err := d.Executor.Run(ctx, executor.Task{
		AgentName: "analyst",
		Prompt:    analystPrompt(target, findings),
	}, nil)
	if err != nil {
		return Result{}, errKind(KindAnalystFailed, err)
	}

	blocks := parsePlanBlocks(analystResult.RawOutput)
	if len(blocks) == 0 {
		return Result{}, errOf(KindAnalystFailed)
	}

	titleToID := make(map[string]string, len(blocks))
	created := make([]schema.Task, 0, len(blocks))
	for _, b := range blocks {
		task, err := d.Crew.CreateTask(ctx, epic.ID, b.Title, b.Description, nil)
		if err != nil {
			return Result{}, err
		}
		titleToID[b.Title] = task.ID
		created = append(created, task)
	}

	for i, b := range blocks {
		if len(b.DependsOn) == 0 {
			continue
		}
		deps := make([]string, 0, len(b.DependsOn))
		for _, depTitle := range b.DependsOn {
			if id, ok := titleToID[depTitle]; ok {
				deps = append(deps, id)
			}
		}
		if len(deps) == 0 {
			continue
		}
		task, err := d.Crew.SetDependsOn(ctx, created[i].ID, deps)
		if err != nil {
			return Result{}, err
		}
		created[i] = task
	}

	_ = d.Feed.Append(d.currentName(), "plan.done", epic.ID, target)

	return textResult("plan", fmt.Sprintf("Planned %s for %q.", fmtCount(len(created), "task"), target), map[string]any{
		"epicId": epic.ID,
		"tasks":  created,
	}), nil
}

// runScouts launches n scout workers concurrently and returns the raw
// output of every one that exited without error. A scout that errors
// contributes nothing; plan only fails outright (generator_failed) if
// every scout fails.
func (d *Dispatcher) runScouts(ctx context.Context, n int, target string, idea bool) []string {
	var (
		mu       sync.Mutex
		findings []string
		wg       sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := d.Executor.Run(ctx, executor.Task{
				AgentName: fmt.Sprintf("scout-%d", i+1),
				Prompt:    scoutPrompt(target, idea, i+1),
			}, nil)
			if err != nil || res.ExitErr != nil {
				return
			}
			mu.Lock()
			findings = append(findings, res.RawOutput)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return findings
}

func scoutPrompt(target string, idea bool, scoutNum int) string {
	if idea {
		return fmt.Sprintf("Scout #%d: explore the codebase for context relevant to the idea %q. Report findings as plain text.", scoutNum, target)
	}
	return fmt.Sprintf("Scout #%d: explore the codebase for context relevant to %q. Report findings as plain text.", scoutNum, target)
}

func analystPrompt(target string, findings []string) string {
	prompt := fmt.Sprintf("Synthesize %d scout reports for %q into a task breakdown.\n"+
		"Emit each task as:\nTASK: <title>\nDEPENDS_ON: <other task titles, comma separated, optional>\n<description>\n\n", len(findings), target)
	for i, f := range findings {
		prompt += fmt.Sprintf("--- scout %d ---\n%s\n", i+1, f)
	}
	return prompt
}

// handleWork implements the "work" action: runs ready tasks through the
// bounded-concurrency orchestrator. A single (non-autonomous) invocation
// runs exactly one wave; autonomous runs repeat waves until every task is
// done/blocked or maxWaves is reached, per spec §4.6.
func (d *Dispatcher) handleWork(ctx context.Context, p Params) (Result, error) {
	target := getString(p, "target")
	if target == "" {
		return Result{}, errOf(KindMissingTitle)
	}
	epic, ok, err := d.Crew.GetEpic(target)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotFound)
	}

	autonomous := getBool(p, "autonomous")
	concurrency := getInt(p, "concurrency", d.Config.Crew.Concurrency.Workers)

	cfg := executor.OrchestratorConfig{
		Concurrency:        concurrency,
		MaxAttemptsPerTask: d.Config.Crew.Work.MaxAttemptsPerTask,
		MaxWaves:           d.Config.Crew.Work.MaxWaves,
		Review: func(_ context.Context, _ schema.Task, result executor.Result) executor.Verdict {
			if v, ok := parseVerdict(result.RawOutput); ok {
				return v
			}
			if result.ExitErr != nil {
				return executor.VerdictNeedsWork
			}
			return executor.VerdictShip
		},
	}
	if !autonomous {
		cfg.MaxWaves = 1
	}

	orch := executor.NewOrchestrator(d.Crew, d.Executor, cfg)
	waves, err := orch.Run(ctx, epic.ID)
	if err != nil {
		return Result{}, err
	}

	started, completed, blocked := 0, 0, 0
	for _, w := range waves {
		started += len(w.Started)
		completed += len(w.Completed)
		blocked += len(w.Blocked)
	}

	_ = d.Feed.Append(d.currentName(), "plan.start", epic.ID, fmt.Sprintf("%d waves", len(waves)))

	return textResult("work", fmt.Sprintf("%s: %d started, %d completed, %d blocked across %d wave(s).",
		epic.ID, started, completed, blocked, len(waves)), map[string]any{
		"epicId": epic.ID,
		"waves":  waves,
	}), nil
}

// handleReview implements the "review" action: runs a single reviewer
// worker over target (a plan/epic or an implementation) and records the
// authoritative verdict tag it emits.
func (d *Dispatcher) handleReview(ctx context.Context, p Params) (Result, error) {
	target := getString(p, "target")
	if target == "" {
		return Result{}, errOf(KindMissingTitle)
	}
	reviewType := getString(p, "type")
	if reviewType == "" {
		reviewType = "impl"
	}

	epic, err := d.resolveEpic(ctx, target)
	if err != nil {
		return Result{}, err
	}

	prompt := fmt.Sprintf("Review the %s for %q (epic %s). Emit your authoritative verdict as a final line:\nVERDICT: SHIP | NEEDS_WORK | MAJOR_RETHINK\n", reviewType, target, epic.ID)
	res, err := d.Executor.Run(ctx, executor.Task{AgentName: "reviewer", Prompt: prompt}, nil)
	if err != nil {
		return Result{}, errKind(KindAnalystFailed, err)
	}

	verdict, ok := parseVerdict(res.RawOutput)
	if !ok {
		verdict = executor.VerdictNeedsWork
	}

	eventType := "plan.done"
	if verdict != executor.VerdictShip {
		eventType = "plan.failed"
	}
	_ = d.Feed.Append(d.currentName(), eventType, epic.ID, string(verdict))

	return textResult("review", fmt.Sprintf("%s: %s.", epic.ID, verdict), map[string]any{
		"epicId":  epic.ID,
		"verdict": string(verdict),
	}), nil
}
