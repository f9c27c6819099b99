package crew

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/swarmlock"
)

// artifactsLockTimeout bounds how long CleanupArtifacts waits for the
// cross-process artifacts lock before giving up.
const artifactsLockTimeout = 5 * time.Second

// CleanupArtifacts removes worker-run artifact directories under
// P/.pi/messenger/crew/artifacts older than olderThan, serialized across
// processes by an advisory flock on a sibling lock file. Unlike the swarm
// lock (§4.2), artifact cleanup has no crash-recovery requirement — a
// crashed holder simply leaves the lock held until its process exits and
// the OS releases it, which is exactly what flock.Flock provides and the
// PID-stamp swarm lock protocol deliberately does not rely on.
func (e *Engine) CleanupArtifacts(olderThan time.Duration) (removed int, err error) {
	root := paths.ArtifactsDir(e.project)
	if err := os.MkdirAll(root, 0755); err != nil {
		return 0, err
	}

	lockPath := filepath.Join(root, ".cleanup.lock")
	lock := flock.New(lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), artifactsLockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return 0, err
	}
	if !locked {
		return 0, swarmlock.ErrTimeout
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now().Add(-olderThan)
	for _, ent := range entries {
		if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, ent.Name())); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}
