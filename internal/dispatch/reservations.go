package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/registry"
	"github.com/pi-agent/messenger/internal/reserve"
	"github.com/pi-agent/messenger/internal/schema"
)

func (d *Dispatcher) handleReserve(ctx context.Context, p Params) (Result, error) {
	name, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}

	patterns := getStringSlice(p, "paths")
	if len(patterns) == 0 {
		return Result{}, errOf(KindEmptyPatterns)
	}

	agents, err := d.Registry.GetActiveAgents(registry.DiscoverOptions{})
	if err != nil {
		return Result{}, err
	}

	var conflicts []reserve.Conflict
	for _, pattern := range patterns {
		conflicts = append(conflicts, reserve.FindAll(pattern, name, agents)...)
	}
	if len(conflicts) > 0 {
		return textResult("reserve", fmt.Sprintf("%s in conflict with existing reservations.", fmtCount(len(conflicts), "pattern")), map[string]any{
			"conflicts": conflicts,
		}), nil
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotRegistered)
	}

	reason := getString(p, "reason")
	now := time.Now().UTC()
	for _, pattern := range patterns {
		rec.Reservations = append(rec.Reservations, schema.Reservation{
			Pattern: pattern,
			Reason:  reason,
			Since:   now,
		})
		_ = d.Feed.Append(name, "reserve", pattern, reason)
	}
	if err := atomicio.WriteJSON(paths.RegistryFile(d.Base, name), rec); err != nil {
		return Result{}, err
	}
	d.Registry.InvalidateCache()

	return textResult("reserve", fmt.Sprintf("Reserved %s.", fmtCount(len(patterns), "path")), map[string]any{
		"reserved": patterns,
	}), nil
}

func (d *Dispatcher) handleRelease(ctx context.Context, p Params) (Result, error) {
	name, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotRegistered)
	}

	patterns := getStringSlice(p, "paths")
	if len(patterns) == 0 {
		rec.Reservations = nil
		_ = d.Feed.Append(name, "release", "*", "")
	} else {
		keep := rec.Reservations[:0]
		remove := map[string]bool{}
		for _, pat := range patterns {
			remove[pat] = true
		}
		for _, r := range rec.Reservations {
			if remove[r.Pattern] {
				_ = d.Feed.Append(name, "release", r.Pattern, "")
				continue
			}
			keep = append(keep, r)
		}
		rec.Reservations = keep
	}

	if err := atomicio.WriteJSON(paths.RegistryFile(d.Base, name), rec); err != nil {
		return Result{}, err
	}
	d.Registry.InvalidateCache()

	return textResult("release", "Reservations released.", nil), nil
}
