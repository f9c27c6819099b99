package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/pi-agent/messenger/internal/claimstore"
)

func (d *Dispatcher) handleClaim(ctx context.Context, p Params) (Result, error) {
	name, sessionID, pid, err := d.claimIdentity()
	if err != nil {
		return Result{}, err
	}

	taskID := getString(p, "taskId")
	if taskID == "" {
		return Result{}, errOf(KindMissingID)
	}
	spec := getString(p, "spec")
	reason := getString(p, "reason")

	claim, err := d.Claims.Claim(ctx, spec, taskID, name, sessionID, pid, reason)
	if err != nil {
		return Result{}, mapClaimErr(err)
	}

	return textResult("claim", fmt.Sprintf("Claimed %s.", taskID), map[string]any{
		"taskId": taskID,
		"claim":  claim,
	}), nil
}

func (d *Dispatcher) handleUnclaim(ctx context.Context, p Params) (Result, error) {
	name, _, _, err := d.claimIdentity()
	if err != nil {
		return Result{}, err
	}

	taskID := getString(p, "taskId")
	if taskID == "" {
		return Result{}, errOf(KindMissingID)
	}
	spec := getString(p, "spec")

	if err := d.Claims.Unclaim(ctx, spec, taskID, name); err != nil {
		return Result{}, mapClaimErr(err)
	}

	return textResult("unclaim", fmt.Sprintf("Unclaimed %s.", taskID), map[string]any{
		"taskId": taskID,
	}), nil
}

func (d *Dispatcher) handleCompleteClaim(ctx context.Context, p Params) (Result, error) {
	name, _, _, err := d.claimIdentity()
	if err != nil {
		return Result{}, err
	}

	taskID := getString(p, "taskId")
	if taskID == "" {
		return Result{}, errOf(KindMissingID)
	}
	spec := getString(p, "spec")
	notes := getString(p, "notes")

	if err := d.Claims.Complete(ctx, spec, taskID, name, notes); err != nil {
		return Result{}, mapClaimErr(err)
	}

	return textResult("complete", fmt.Sprintf("Completed %s.", taskID), map[string]any{
		"taskId": taskID,
	}), nil
}

func (d *Dispatcher) claimIdentity() (name, sessionID string, pid int, err error) {
	n, sid, p, registered := d.id.snapshot()
	if !registered {
		return "", "", 0, errOf(KindNotRegistered)
	}
	return n, sid, p, nil
}

func mapClaimErr(err error) error {
	var conflict *claimstore.ConflictError
	if errors.As(err, &conflict) {
		switch {
		case errors.Is(conflict.Err, claimstore.ErrAlreadyClaimed):
			return errKindDetails(KindAlreadyClaimed, err, map[string]any{
				"conflict": map[string]any{
					"agent":     conflict.Existing.Agent,
					"claimedAt": conflict.Existing.ClaimedAt,
				},
			})
		case errors.Is(conflict.Err, claimstore.ErrAlreadyHaveClaim):
			return errKindDetails(KindAlreadyHaveClaim, err, map[string]any{
				"existing": map[string]any{
					"taskId":    conflict.TaskID,
					"spec":      conflict.SpecPath,
					"claimedAt": conflict.Existing.ClaimedAt,
				},
			})
		}
	}

	switch {
	case errors.Is(err, claimstore.ErrNotClaimed):
		return errKind(KindNotClaimed, err)
	case errors.Is(err, claimstore.ErrNotYourClaim):
		return errKind(KindNotYourClaim, err)
	case errors.Is(err, claimstore.ErrAlreadyCompleted):
		return errKind(KindAlreadyCompleted, err)
	default:
		return err
	}
}
