package registry

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// StatusTier is the coarse liveness bucket derived from how long it has
// been since an agent's last recorded activity.
type StatusTier string

const (
	StatusActive StatusTier = "active"
	StatusIdle   StatusTier = "idle"
	StatusAway   StatusTier = "away"
	StatusStuck  StatusTier = "stuck"
)

// Status tier thresholds, measured against Activity.LastActivityAt.
const (
	idleAfter  = 2 * time.Minute
	awayAfter  = 10 * time.Minute
	stuckAfter = 30 * time.Minute
)

// Tier classifies a presence record's activity recency into a StatusTier.
// A record whose CustomStatus is "stuck" (as set_status can set it) is
// always reported stuck regardless of recency.
func Tier(rec schema.Presence, now time.Time) StatusTier {
	if rec.CustomStatus == "stuck" {
		return StatusStuck
	}
	age := now.Sub(rec.Activity.LastActivityAt)
	switch {
	case age < idleAfter:
		return StatusActive
	case age < awayAfter:
		return StatusIdle
	case age < stuckAfter:
		return StatusAway
	default:
		return StatusStuck
	}
}

// AutoStatus derives a human-readable status line from the last tool call
// and counters, per the rules of spec §4.3. Explicit CustomStatus always
// wins when set.
func AutoStatus(rec schema.Presence, now time.Time) string {
	if rec.CustomStatus != "" {
		return rec.CustomStatus
	}

	switch {
	case now.Sub(rec.StartedAt) < 30*time.Second && rec.Activity.LastToolCall == "":
		return "just arrived"
	case strings.HasPrefix(rec.Activity.LastToolCall, "git commit"):
		return "just shipped"
	case isDebugCall(rec.Activity.LastToolCall):
		return "debugging..."
	case len(rec.Session.FilesModified) > 10:
		return "on fire"
	case rec.Activity.LastToolCall == "" || isReadCall(rec.Activity.LastToolCall):
		return "exploring the codebase"
	default:
		return rec.Activity.CurrentActivity
	}
}

func isDebugCall(call string) bool {
	for _, needle := range []string{"grep", "log", "test", "debug"} {
		if strings.Contains(strings.ToLower(call), needle) {
			return true
		}
	}
	return false
}

func isReadCall(call string) bool {
	for _, needle := range []string{"read", "grep", "glob", "ls"} {
		if strings.Contains(strings.ToLower(call), needle) {
			return true
		}
	}
	return false
}

// ActivityFlusher coalesces frequent Touch calls into infrequent writes: a
// write happens immediately if flushInterval has elapsed since the last
// one, and the presence record written at join counts as the first.
// heartbeatInterval is only reported through DueForHeartbeat: the flusher
// runs no timer of its own, so a heartbeat write happens only when a
// caller calls Flush(true).
type ActivityFlusher struct {
	reg  *Registry
	name string

	flushInterval     time.Duration
	heartbeatInterval time.Duration

	mu         sync.Mutex
	lastFlush  time.Time
	pending    *schema.Activity
}

const (
	defaultFlushInterval     = 10 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
)

// NewActivityFlusher builds a flusher for name, writing through reg.
func NewActivityFlusher(reg *Registry, name string) *ActivityFlusher {
	return &ActivityFlusher{
		reg:               reg,
		name:              name,
		flushInterval:     defaultFlushInterval,
		heartbeatInterval: defaultHeartbeatInterval,
		lastFlush:         time.Now(),
	}
}

// Touch records a fresh activity snapshot, flushing immediately only if
// flushInterval has elapsed since the previous flush. Callers that need a
// guaranteed-fresh on-disk timestamp (e.g. before reporting status) should
// call Flush(true) explicitly.
func (a *ActivityFlusher) Touch(act schema.Activity) error {
	a.mu.Lock()
	a.pending = &act
	due := time.Since(a.lastFlush) >= a.flushInterval
	a.mu.Unlock()

	if due {
		return a.Flush(false)
	}
	return nil
}

// Flush writes the pending activity snapshot (or, if force, a bare
// timestamp heartbeat even with nothing pending) to the presence file.
func (a *ActivityFlusher) Flush(force bool) error {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending == nil {
		if !force {
			return nil
		}
		pending = &schema.Activity{LastActivityAt: time.Now().UTC()}
	}

	path := paths.RegistryFile(a.reg.base, a.name)
	var rec schema.Presence
	ok, err := atomicio.ReadJSON(path, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return os.ErrNotExist
	}

	rec.Activity = *pending
	if err := atomicio.WriteJSON(path, rec); err != nil {
		return err
	}

	a.mu.Lock()
	a.lastFlush = time.Now()
	a.mu.Unlock()
	a.reg.InvalidateCache()
	return nil
}

// DueForHeartbeat reports whether heartbeatInterval has elapsed since the
// last flush, meaning the caller's poll loop should force one even without
// new activity to report.
func (a *ActivityFlusher) DueForHeartbeat() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Since(a.lastFlush) >= a.heartbeatInterval
}
