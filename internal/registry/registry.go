// Package registry implements the presence registry: agent join/leave,
// rename, and TTL-cached discovery of the mesh (spec §4.3).
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/names"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/procutil"
	"github.com/pi-agent/messenger/internal/schema"
	"github.com/pi-agent/messenger/internal/swarmlock"
)

// Error kinds returned by registry operations, matching spec §7 tags.
var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrNameTaken      = errors.New("name_taken")
	ErrRaceLost       = errors.New("race_lost")
	ErrSameName       = errors.New("same_name")
	ErrNotRegistered  = errors.New("not_registered")
)

const (
	discoveryTTL    = 1 * time.Second
	maxJoinAttempts = 20
)

// JoinRequest carries the fields a caller supplies when registering.
type JoinRequest struct {
	Name      string // optional override, e.g. from PI_AGENT_NAME
	PID       int
	SessionID string
	CWD       string
	Model     string
	GitBranch string
	Spec      string
	IsHuman   bool
	Theme     names.Theme
}

// DiscoverOptions controls GetActiveAgents filtering.
type DiscoverOptions struct {
	ScopeToFolder string // if non-empty, only agents with this CWD are returned
}

// Registry manages presence records under base/registry.
type Registry struct {
	base string

	mu        sync.Mutex
	cache     []schema.Presence
	cachedAt  time.Time
}

// New creates a Registry rooted at base (typically paths.BaseDir()).
func New(base string) *Registry {
	return &Registry{base: base}
}

// Register joins the mesh. If req.Name is set (PI_AGENT_NAME), registration
// fails with ErrNameTaken if that exact name is already live; otherwise a
// themed name is generated and retried up to maxJoinAttempts times until an
// unclaimed one is found.
func (r *Registry) Register(req JoinRequest) (*schema.Presence, error) {
	if req.Name != "" {
		name := names.Sanitize(req.Name)
		if !names.Valid(name) {
			return nil, ErrInvalidName
		}
		rec, err := r.writeAndVerify(name, req)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		candidate := names.Generate(req.Theme, attempt)
		rec, err := r.writeAndVerify(candidate, req)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRaceLost) {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = ErrNameTaken
	}
	return nil, ErrNameTaken
}

// writeAndVerify writes a presence record for name and reads it back; if
// the sessionId on disk doesn't match ours, another process won the race
// for that name.
func (r *Registry) writeAndVerify(name string, req JoinRequest) (*schema.Presence, error) {
	path := paths.RegistryFile(r.base, name)

	// If a live record already claims this name, don't even attempt the
	// write — avoids clobbering an active agent's record.
	var existing schema.Presence
	if ok, _ := atomicio.ReadJSON(path, &existing); ok && procutil.Alive(existing.PID) {
		if req.Name != "" {
			return nil, ErrNameTaken
		}
		return nil, ErrRaceLost
	}

	now := time.Now().UTC()
	rec := schema.Presence{
		Name:      name,
		PID:       req.PID,
		SessionID: req.SessionID,
		CWD:       req.CWD,
		Model:     req.Model,
		GitBranch: req.GitBranch,
		Spec:      req.Spec,
		StartedAt: now,
		IsHuman:   req.IsHuman,
		Activity:  schema.Activity{LastActivityAt: now},
	}
	if err := atomicio.WriteJSON(path, rec); err != nil {
		return nil, fmt.Errorf("writing presence record: %w", err)
	}

	var readBack schema.Presence
	ok, err := atomicio.ReadJSON(path, &readBack)
	if err != nil {
		return nil, err
	}
	if !ok || readBack.SessionID != req.SessionID {
		return nil, ErrRaceLost
	}

	if err := os.MkdirAll(paths.InboxDir(r.base, name), 0755); err != nil {
		return nil, fmt.Errorf("creating inbox directory: %w", err)
	}

	return &readBack, nil
}

// Unregister removes the presence file and the agent's inbox directory.
// Claim cleanup is the caller's responsibility (it lives in claimstore,
// which depends on registry rather than the reverse).
func (r *Registry) Unregister(name string) error {
	path := paths.RegistryFile(r.base, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	_ = os.RemoveAll(paths.InboxDir(r.base, name))
	return nil
}

// Get reads a single presence record without consulting the cache.
func (r *Registry) Get(name string) (*schema.Presence, bool, error) {
	path := paths.RegistryFile(r.base, name)
	var rec schema.Presence
	ok, err := atomicio.ReadJSON(path, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// Rename changes name under the swarm lock: validates the new name,
// verifies it is free (or stale), writes the new record, removes the old
// one, and moves the inbox directory.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) error {
	newName = names.Sanitize(newName)
	if !names.Valid(newName) {
		return ErrInvalidName
	}
	if newName == oldName {
		return ErrSameName
	}

	lockPath := paths.SwarmLockFile(r.base)
	return swarmlock.With(ctx, lockPath, func() error {
		oldRec, ok, err := r.Get(oldName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotRegistered
		}

		if existing, exists, _ := r.Get(newName); exists && procutil.Alive(existing.PID) {
			return ErrNameTaken
		}

		newRec := *oldRec
		newRec.Name = newName
		if err := atomicio.WriteJSON(paths.RegistryFile(r.base, newName), newRec); err != nil {
			return err
		}
		if err := os.MkdirAll(paths.InboxDir(r.base, newName), 0755); err != nil {
			return err
		}

		oldInbox := paths.InboxDir(r.base, oldName)
		newInbox := paths.InboxDir(r.base, newName)
		entries, _ := os.ReadDir(oldInbox)
		for _, e := range entries {
			_ = os.Rename(filepath.Join(oldInbox, e.Name()), filepath.Join(newInbox, e.Name()))
		}
		_ = os.RemoveAll(oldInbox)
		_ = os.Remove(paths.RegistryFile(r.base, oldName))
		return nil
	})
}

// GetActiveAgents returns the live mesh, refreshing the cache if it is
// older than discoveryTTL. Dead records observed during refresh are pruned
// (unlinked) best-effort.
func (r *Registry) GetActiveAgents(opts DiscoverOptions) ([]schema.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.cachedAt) < discoveryTTL && r.cache != nil {
		return filterScope(r.cache, opts), nil
	}

	dir := paths.Registry(r.base)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.cache = nil
			r.cachedAt = time.Now()
			return nil, nil
		}
		return nil, err
	}

	var live []schema.Presence
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var rec schema.Presence
		ok, err := atomicio.ReadJSON(path, &rec)
		if err != nil || !ok {
			continue
		}
		if !procutil.Alive(rec.PID) {
			_ = os.Remove(path) // best-effort: next scanner observes the same condition if this fails
			continue
		}
		live = append(live, rec)
	}

	r.cache = live
	r.cachedAt = time.Now()
	return filterScope(live, opts), nil
}

func filterScope(recs []schema.Presence, opts DiscoverOptions) []schema.Presence {
	if opts.ScopeToFolder == "" {
		return recs
	}
	var out []schema.Presence
	for _, rec := range recs {
		if rec.CWD == opts.ScopeToFolder {
			out = append(out, rec)
		}
	}
	return out
}

// InvalidateCache forces the next GetActiveAgents call to re-scan the
// registry directory, for callers that just mutated a presence record and
// need the next read to observe it.
func (r *Registry) InvalidateCache() {
	r.mu.Lock()
	r.cachedAt = time.Time{}
	r.mu.Unlock()
}
