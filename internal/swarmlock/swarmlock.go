// Package swarmlock implements the machine-scope filesystem mutex that
// serializes mutations of the cross-agent claim/completion tables and
// epic/task id allocation.
//
// The lock is a single file created with O_EXCL, holding the owning PID as
// its body. It is not reentrant: a holder must never call back into
// Acquire/With from inside its own critical section. Unlike an advisory
// flock, the lock recovers from a holder that crashed without releasing —
// a stale PID or a lock file older than the staleness threshold is
// unlinked and retried, so the lock survives a crashing holder the same
// way on every POSIX filesystem.
package swarmlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pi-agent/messenger/internal/procutil"
)

// ErrTimeout is returned when the lock could not be acquired within the
// retry budget.
var ErrTimeout = errors.New("lock_timeout")

// ErrCancelled is returned when the context is cancelled while waiting.
var ErrCancelled = errors.New("cancelled")

const (
	retryInterval   = 100 * time.Millisecond
	maxRetries      = 50
	staleAfter      = 10 * time.Second
)

// Lock represents the swarm lock file at path.
type Lock struct {
	path string
}

// New creates a Lock for the given lock file path (typically
// paths.SwarmLockFile(base)).
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire blocks until the lock is held by this process, the context is
// cancelled, or the retry budget (≈5s) is exhausted.
func (l *Lock) Acquire(ctx context.Context) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ErrCancelled
		default:
		}

		ok, err := l.tryCreate()
		if err != nil {
			return fmt.Errorf("creating lock file: %w", err)
		}
		if ok {
			return nil
		}

		stale, readErr := l.isStale()
		if readErr == nil && stale {
			_ = os.Remove(l.path)
			continue // retry immediately after clearing a stale lock
		}

		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-time.After(retryInterval):
		}
	}
	return ErrTimeout
}

// Release unlinks the lock file. Best effort: the next scanner recovers
// from a leftover lock via the staleness rule, so a failed unlink here is
// not propagated as an error to callers that already completed their
// critical section.
func (l *Lock) Release() {
	_ = os.Remove(l.path)
}

// With acquires the lock, runs fn, and guarantees release even if fn panics
// or returns an error.
func With(ctx context.Context, path string, fn func() error) error {
	l := New(path)
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// tryCreate attempts the exclusive create; ok=false (no error) means
// another process currently holds the file.
func (l *Lock) tryCreate() (ok bool, err error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err == nil, err
}

// isStale reports whether the existing lock file's holder is dead, or the
// file itself is older than the staleness threshold (clock skew, a holder
// wedged before writing its PID, or a PID later reused by an unrelated
// process).
func (l *Lock) isStale() (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return false, err
	}
	if time.Since(info.ModTime()) >= staleAfter {
		return true, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return false, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Unparseable body: treat conservatively as not yet stale unless
		// the age check above already caught it.
		return false, nil
	}
	return !procutil.Alive(pid), nil
}

// Holder returns the PID currently recorded in the lock file, or 0 if the
// lock is not held or unreadable.
func (l *Lock) Holder() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
