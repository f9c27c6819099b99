package crew

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pi-agent/messenger/internal/paths"
)

func TestCleanupArtifactsRemovesOnlyStaleDirs(t *testing.T) {
	e := newEngine(t)
	root := paths.ArtifactsDir(e.project)
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	stale := filepath.Join(root, "run-old")
	fresh := filepath.Join(root, "run-new")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll %s: %v", dir, err)
		}
	}

	oldTime := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	removed, err := e.CleanupArtifacts(14 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupArtifacts: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh dir kept, stat err=%v", err)
	}
}

func TestCleanupArtifactsNoDirIsNotError(t *testing.T) {
	e := newEngine(t)
	removed, err := e.CleanupArtifacts(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupArtifacts on empty project: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
}
