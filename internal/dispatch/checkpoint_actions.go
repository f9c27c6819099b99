package dispatch

import (
	"context"
	"fmt"

	"github.com/pi-agent/messenger/internal/checkpoint"
)

func (d *Dispatcher) handleCheckpointAction(ctx context.Context, sub string, p Params) (Result, error) {
	switch sub {
	case "save":
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
		tasks, err := d.Crew.ListTasks(id)
		if err != nil {
			return Result{}, err
		}
		cp, err := d.Checkpoint.Save(epic, tasks)
		if err != nil {
			return Result{}, err
		}
		return textResult("checkpoint.save", fmt.Sprintf("Saved checkpoint %s for %s.", cp.ID, id), map[string]any{
			"checkpoint": cp,
		}), nil

	case "restore":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		cp, err := d.Checkpoint.Restore(id)
		if err != nil {
			return Result{}, mapCheckpointErr(err)
		}
		return textResult("checkpoint.restore", fmt.Sprintf("Restored %s from checkpoint %s.", id, cp.ID), map[string]any{
			"checkpoint": cp,
		}), nil

	case "delete":
		id := getString(p, "id")
		if id == "" {
			return Result{}, errOf(KindMissingID)
		}
		if err := d.Checkpoint.Delete(id); err != nil {
			return Result{}, err
		}
		return textResult("checkpoint.delete", fmt.Sprintf("Deleted checkpoint for %s.", id), nil), nil

	case "list":
		ids, err := d.Checkpoint.List()
		if err != nil {
			return Result{}, err
		}
		return textResult("checkpoint.list", fmt.Sprintf("%s.", fmtCount(len(ids), "checkpoint")), map[string]any{
			"ids": ids,
		}), nil

	default:
		return Result{}, errOf(KindUnknownOperation)
	}
}

func mapCheckpointErr(err error) error {
	if err == checkpoint.ErrNotFound {
		return errKind(KindNotFound, err)
	}
	return err
}
