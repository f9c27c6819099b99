// Package claimstore implements the claims and completions tables of spec
// §4.5: one in-flight claim per agent across all spec paths, guarded by
// the swarm lock.
package claimstore

import (
	"context"
	"errors"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/procutil"
	"github.com/pi-agent/messenger/internal/schema"
	"github.com/pi-agent/messenger/internal/swarmlock"
)

var (
	// ErrAlreadyClaimed: the spec/task pair already has a claim (by anyone).
	ErrAlreadyClaimed = errors.New("already_claimed")
	// ErrAlreadyHaveClaim: the requesting agent already holds a claim
	// somewhere else in the table — one in-flight claim per agent.
	ErrAlreadyHaveClaim = errors.New("already_have_claim")
	// ErrNotClaimed: there is no claim on this spec/task pair at all.
	ErrNotClaimed = errors.New("not_claimed")
	// ErrNotYourClaim: a claim exists but is owned by a different agent.
	ErrNotYourClaim = errors.New("not_your_claim")
	// ErrAlreadyCompleted: a completion entry already exists; first
	// completer wins.
	ErrAlreadyCompleted = errors.New("already_completed")
)

// ConflictError wraps ErrAlreadyClaimed/ErrAlreadyHaveClaim with the
// conflicting claim a caller needs to report (spec §8 S2/S3: the loser
// learns who won, and the one-in-flight rejection names the claim already
// held).
type ConflictError struct {
	Err      error // ErrAlreadyClaimed or ErrAlreadyHaveClaim
	Existing schema.Claim
	SpecPath string // spec path of Existing; only meaningful for ErrAlreadyHaveClaim
	TaskID   string // task id of Existing; only meaningful for ErrAlreadyHaveClaim
}

func (e *ConflictError) Error() string { return e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

// Store manages B/claims.json and B/completions.json.
type Store struct {
	base string
}

// New creates a Store rooted at base (typically paths.BaseDir()).
func New(base string) *Store {
	return &Store{base: base}
}

// Claim records agent's claim on taskID within specPath.
func (s *Store) Claim(ctx context.Context, specPath, taskID, agent, sessionID string, pid int, reason string) (schema.Claim, error) {
	var result schema.Claim
	err := swarmlock.With(ctx, paths.SwarmLockFile(s.base), func() error {
		table, err := s.load()
		if err != nil {
			return err
		}
		pruneStale(table)

		if existing, ok := tableGet(table, specPath, taskID); ok {
			return &ConflictError{Err: ErrAlreadyClaimed, Existing: existing, SpecPath: specPath, TaskID: taskID}
		}
		if sp, tid, ok := findAgentClaim(table, agent); ok {
			existing, _ := tableGet(table, sp, tid)
			return &ConflictError{Err: ErrAlreadyHaveClaim, Existing: existing, SpecPath: sp, TaskID: tid}
		}

		claim := schema.Claim{
			Agent:     agent,
			SessionID: sessionID,
			PID:       pid,
			ClaimedAt: time.Now().UTC(),
			Reason:    reason,
		}
		tableSet(table, specPath, taskID, claim)
		if err := s.save(table); err != nil {
			return err
		}
		result = claim
		return nil
	})
	return result, err
}

// Unclaim removes agent's claim on taskID.
func (s *Store) Unclaim(ctx context.Context, specPath, taskID, agent string) error {
	return swarmlock.With(ctx, paths.SwarmLockFile(s.base), func() error {
		table, err := s.load()
		if err != nil {
			return err
		}
		pruneStale(table)

		existing, ok := tableGet(table, specPath, taskID)
		if !ok {
			return ErrNotClaimed
		}
		if existing.Agent != agent {
			return ErrNotYourClaim
		}
		tableDelete(table, specPath, taskID)
		return s.save(table)
	})
}

// Complete records completedBy's completion of taskID and clears its
// claim. Ordering follows spec §4.5 exactly: already-completed beats
// ownership beats absence.
func (s *Store) Complete(ctx context.Context, specPath, taskID, completedBy, notes string) error {
	return swarmlock.With(ctx, paths.SwarmLockFile(s.base), func() error {
		completions, err := s.loadCompletions()
		if err != nil {
			return err
		}
		if _, ok := completions[specPath][taskID]; ok {
			return ErrAlreadyCompleted
		}

		claims, err := s.load()
		if err != nil {
			return err
		}
		pruneStale(claims)

		existing, ok := tableGet(claims, specPath, taskID)
		if ok && existing.Agent != completedBy {
			return ErrNotYourClaim
		}
		if !ok {
			return ErrNotClaimed
		}

		tableDelete(claims, specPath, taskID)
		if err := s.save(claims); err != nil {
			return err
		}

		if completions[specPath] == nil {
			completions[specPath] = map[string]schema.Completion{}
		}
		completions[specPath][taskID] = schema.Completion{
			CompletedBy: completedBy,
			CompletedAt: time.Now().UTC(),
			Notes:       notes,
		}
		return s.saveCompletions(completions)
	})
}

// Get returns the current claim on taskID, if any. Consistent with spec
// §4.5, a read outside the lock still prunes dead-PID entries in the
// returned view but does not persist the prune.
func (s *Store) Get(specPath, taskID string) (schema.Claim, bool, error) {
	table, err := s.load()
	if err != nil {
		return schema.Claim{}, false, err
	}
	pruneStale(table)
	claim, ok := tableGet(table, specPath, taskID)
	return claim, ok, nil
}

// ListBySpec returns every live claim recorded for specPath, keyed by task
// ID, pruning dead-PID entries from the returned view only.
func (s *Store) ListBySpec(specPath string) (map[string]schema.Claim, error) {
	table, err := s.load()
	if err != nil {
		return nil, err
	}
	pruneStale(table)
	return table[specPath], nil
}

// PruneStale removes claims held by agents whose PID is no longer alive
// and persists the result, under the swarm lock.
func (s *Store) PruneStale(ctx context.Context) (int, error) {
	removed := 0
	err := swarmlock.With(ctx, paths.SwarmLockFile(s.base), func() error {
		table, err := s.load()
		if err != nil {
			return err
		}
		removed = pruneStale(table)
		if removed == 0 {
			return nil
		}
		return s.save(table)
	})
	return removed, err
}

func (s *Store) load() (schema.ClaimsTable, error) {
	var table schema.ClaimsTable
	ok, err := atomicio.ReadJSON(paths.ClaimsFile(s.base), &table)
	if err != nil {
		return nil, err
	}
	if !ok || table == nil {
		table = schema.ClaimsTable{}
	}
	return table, nil
}

func (s *Store) save(table schema.ClaimsTable) error {
	return atomicio.WriteJSON(paths.ClaimsFile(s.base), table)
}

func (s *Store) loadCompletions() (schema.CompletionsTable, error) {
	var table schema.CompletionsTable
	ok, err := atomicio.ReadJSON(paths.CompletionsFile(s.base), &table)
	if err != nil {
		return nil, err
	}
	if !ok || table == nil {
		table = schema.CompletionsTable{}
	}
	return table, nil
}

func (s *Store) saveCompletions(table schema.CompletionsTable) error {
	return atomicio.WriteJSON(paths.CompletionsFile(s.base), table)
}

func tableGet(t schema.ClaimsTable, specPath, taskID string) (schema.Claim, bool) {
	tasks, ok := t[specPath]
	if !ok {
		return schema.Claim{}, false
	}
	claim, ok := tasks[taskID]
	return claim, ok
}

func tableSet(t schema.ClaimsTable, specPath, taskID string, claim schema.Claim) {
	if t[specPath] == nil {
		t[specPath] = map[string]schema.Claim{}
	}
	t[specPath][taskID] = claim
}

func tableDelete(t schema.ClaimsTable, specPath, taskID string) {
	if tasks, ok := t[specPath]; ok {
		delete(tasks, taskID)
		if len(tasks) == 0 {
			delete(t, specPath)
		}
	}
}

func findAgentClaim(t schema.ClaimsTable, agent string) (specPath, taskID string, ok bool) {
	for sp, tasks := range t {
		for tid, claim := range tasks {
			if claim.Agent == agent {
				return sp, tid, true
			}
		}
	}
	return "", "", false
}

// pruneStale removes claims whose PID is no longer alive and returns how
// many were removed. Caller must already hold the table under lock (for a
// persisted prune) or accept that the removal is view-only (for a plain
// read like Get/ListBySpec).
func pruneStale(t schema.ClaimsTable) int {
	removed := 0
	for sp, tasks := range t {
		for tid, claim := range tasks {
			if !procutil.Alive(claim.PID) {
				delete(tasks, tid)
				removed++
			}
		}
		if len(tasks) == 0 {
			delete(t, sp)
		}
	}
	return removed
}
