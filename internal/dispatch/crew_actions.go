package dispatch

import (
	"context"
	"fmt"

	"github.com/pi-agent/messenger/internal/crew"
)

func (d *Dispatcher) handleEpicAction(ctx context.Context, sub string, p Params) (Result, error) {
	switch sub {
	case "create":
		title := getString(p, "title")
		if title == "" {
			return Result{}, errOf(KindMissingTitle)
		}
		epic, err := d.Crew.CreateEpic(ctx, title)
		if err != nil {
			return Result{}, err
		}
		_ = d.Feed.Append(d.currentName(), "task.start", epic.ID, title)
		return textResult("epic.create", fmt.Sprintf("Created epic %s.", epic.ID), map[string]any{
			"epic": epic,
		}), nil

	case "show":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		epic, ok, err := d.Crew.GetEpic(id)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, errOf(KindNotFound)
		}
		spec, _ := d.Crew.GetEpicSpec(id)
		return textResult("epic.show", fmt.Sprintf("%s: %s (%s)", epic.ID, epic.Title, epic.Status), map[string]any{
			"epic": epic,
			"spec": spec,
		}), nil

	case "list":
		epics, err := d.Crew.ListEpics()
		if err != nil {
			return Result{}, err
		}
		return textResult("epic.list", fmt.Sprintf("%s.", fmtCount(len(epics), "epic")), map[string]any{
			"epics": epics,
		}), nil

	case "close":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		epic, err := d.Crew.CloseEpic(ctx, id)
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		return textResult("epic.close", fmt.Sprintf("Closed %s.", epic.ID), map[string]any{
			"epic": epic,
		}), nil

	case "set_spec":
		id := getString(p, "id")
		content := getString(p, "content")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		if content == "" {
			return Result{}, errOf(KindMissingContent)
		}
		if err := d.Crew.SetEpicSpec(id, content); err != nil {
			return Result{}, mapCrewErr(err)
		}
		return textResult("epic.set_spec", fmt.Sprintf("Spec updated for %s.", id), nil), nil

	default:
		return Result{}, errOf(KindUnknownOperation)
	}
}

func (d *Dispatcher) handleTaskAction(ctx context.Context, sub string, p Params) (Result, error) {
	switch sub {
	case "create":
		epicID := getString(p, "epicId")
		title := getString(p, "title")
		if epicID == "" {
			return Result{}, errOf(KindMissingID)
		}
		if title == "" {
			return Result{}, errOf(KindMissingTitle)
		}
		task, err := d.Crew.CreateTask(ctx, epicID, title, getString(p, "description"), getStringSlice(p, "dependsOn"))
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		return textResult("task.create", fmt.Sprintf("Created task %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	case "show":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		task, ok, err := d.Crew.GetTask(id)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, errOf(KindNotFound)
		}
		return textResult("task.show", fmt.Sprintf("%s: %s (%s)", task.ID, task.Title, task.Status), map[string]any{
			"task": task,
		}), nil

	case "list":
		epicID := getString(p, "epicId")
		tasks, err := d.Crew.ListTasks(epicID)
		if err != nil {
			return Result{}, err
		}
		return textResult("task.list", fmt.Sprintf("%s.", fmtCount(len(tasks), "task")), map[string]any{
			"tasks": tasks,
		}), nil

	case "start":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		agent := d.currentName()
		task, err := d.Crew.StartTask(ctx, id, agent)
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		_ = d.Feed.Append(agent, "task.start", task.ID, task.Title)
		return textResult("task.start", fmt.Sprintf("Started %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	case "done":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		task, err := d.Crew.CompleteTask(ctx, id, getString(p, "summary"), nil)
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		_ = d.Feed.Append(d.currentName(), "task.done", task.ID, task.Summary)
		return textResult("task.done", fmt.Sprintf("Completed %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	case "block":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		task, err := d.Crew.BlockTask(ctx, id, getString(p, "reason"))
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		_ = d.Feed.Append(d.currentName(), "task.block", task.ID, task.BlockedReason)
		return textResult("task.block", fmt.Sprintf("Blocked %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	case "unblock":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		task, err := d.Crew.UnblockTask(ctx, id)
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		_ = d.Feed.Append(d.currentName(), "task.unblock", task.ID, "")
		return textResult("task.unblock", fmt.Sprintf("Unblocked %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	case "ready":
		epicID := getString(p, "epicId")
		if epicID == "" {
			return Result{}, errOf(KindMissingID)
		}
		tasks, err := d.Crew.ReadyTasks(epicID)
		if err != nil {
			return Result{}, err
		}
		return textResult("task.ready", fmt.Sprintf("%s ready.", fmtCount(len(tasks), "task")), map[string]any{
			"tasks": tasks,
		}), nil

	case "reset":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		task, err := d.Crew.ResetTask(ctx, id, getBool(p, "cascade"))
		if err != nil {
			return Result{}, mapCrewErr(err)
		}
		_ = d.Feed.Append(d.currentName(), "task.reset", task.ID, "")
		return textResult("task.reset", fmt.Sprintf("Reset %s.", task.ID), map[string]any{
			"task": task,
		}), nil

	default:
		return Result{}, errOf(KindUnknownOperation)
	}
}

func (d *Dispatcher) currentName() string {
	name, _, _, _ := d.id.snapshot()
	return name
}

func mapCrewErr(err error) error {
	switch err {
	case crew.ErrEpicNotFound, crew.ErrTaskNotFound:
		return errKind(KindNotFound, err)
	case crew.ErrIncompleteTasks:
		return errKind(KindIncompleteTasks, err)
	case crew.ErrCircularDependency:
		return errKind(KindCircularDependency, err)
	case crew.ErrOrphanDependency:
		return errKind(KindOrphanDependency, err)
	default:
		return err
	}
}
