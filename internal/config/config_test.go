package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadReturnsDefaultsWhenNoFilesPresent(t *testing.T) {
	cfg, err := Load(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AutoRegister {
		t.Fatalf("expected autoRegister default false")
	}
	if cfg.StuckThreshold != 1800 {
		t.Fatalf("expected default stuckThreshold 1800, got %d", cfg.StuckThreshold)
	}
	if cfg.Crew.Concurrency.Workers != 3 {
		t.Fatalf("expected default crew.concurrency.workers 3, got %d", cfg.Crew.Concurrency.Workers)
	}
}

func TestLoadMergesSettingsThenUserThenProject(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()

	writeJSON(t, filepath.Join(home, ".pi", "agent", "settings.json"),
		`{"messenger": {"stuckThreshold": 600, "autoStatus": false}}`)
	writeJSON(t, filepath.Join(home, ".pi", "agent", "pi-messenger.json"),
		`{"stuckThreshold": 900, "nameTheme": "custom"}`)
	writeJSON(t, filepath.Join(project, ".pi", "pi-messenger.json"),
		`{"stuckThreshold": 120}`)

	cfg, err := Load(project, home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Project layer wins on the field all three set.
	if cfg.StuckThreshold != 120 {
		t.Fatalf("expected project override 120, got %d", cfg.StuckThreshold)
	}
	// User layer wins on a field only settings and user set.
	if cfg.NameTheme != "custom" {
		t.Fatalf("expected user override custom, got %q", cfg.NameTheme)
	}
	// Settings layer's autoStatus survives since neither later layer touches it.
	if cfg.AutoStatus {
		t.Fatalf("expected autoStatus false from settings.json:messenger")
	}
}

func TestContextModeShorthandExpandsToThreeFlags(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()
	writeJSON(t, filepath.Join(project, ".pi", "pi-messenger.json"), `{"contextMode": "minimal"}`)

	cfg, err := Load(project, home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.RegistrationContext || cfg.ReplyHint || cfg.SenderDetailsOnFirstContact {
		t.Fatalf("expected minimal context mode to produce registrationContext=true, replyHint=false, senderDetails=false, got %+v", cfg)
	}
}

func TestContextModeNoneDisablesAllThree(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()
	writeJSON(t, filepath.Join(project, ".pi", "pi-messenger.json"), `{"contextMode": "none"}`)

	cfg, err := Load(project, home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RegistrationContext || cfg.ReplyHint || cfg.SenderDetailsOnFirstContact {
		t.Fatalf("expected none context mode to disable all three, got %+v", cfg)
	}
}

func TestApplyOperatorTOMLOverridesJSONMerge(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()
	writeJSON(t, filepath.Join(project, ".pi", "pi-messenger.json"), `{"stuckThreshold": 120}`)

	cfg, err := Load(project, home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tomlPath := filepath.Join(home, "operator.toml")
	if err := os.WriteFile(tomlPath, []byte("stuck_threshold = 42\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err = ApplyOperatorTOML(cfg, tomlPath)
	if err != nil {
		t.Fatalf("ApplyOperatorTOML: %v", err)
	}
	if cfg.StuckThreshold != 42 {
		t.Fatalf("expected TOML override to win, got %d", cfg.StuckThreshold)
	}
}

func TestApplyOperatorTOMLMissingFileIsNoop(t *testing.T) {
	cfg := Defaults()
	out, err := ApplyOperatorTOML(cfg, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("ApplyOperatorTOML: %v", err)
	}
	if out.StuckThreshold != cfg.StuckThreshold || out.NameTheme != cfg.NameTheme {
		t.Fatalf("expected no changes when override file is absent, got %+v", out)
	}
}

func TestResolveAutoRegisterPathsExpandsTilde(t *testing.T) {
	home := t.TempDir()
	resolved := ResolveAutoRegisterPaths([]string{"~/projects/foo"}, home)
	want := filepath.Join(home, "projects", "foo")
	if len(resolved) != 1 || resolved[0] != want {
		t.Fatalf("expected %q, got %+v", want, resolved)
	}
}

func TestResolveAutoRegisterPathsExpandsTrailingSlashStar(t *testing.T) {
	home := t.TempDir()
	parent := filepath.Join(home, "work")
	for _, name := range []string{"alpha", "beta"} {
		if err := os.MkdirAll(filepath.Join(parent, name), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(parent, "notadir"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resolved := ResolveAutoRegisterPaths([]string{parent + "/*"}, home)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 child directories, got %+v", resolved)
	}
}

func TestResolveAutoRegisterPathsExpandsPrefixStar(t *testing.T) {
	home := t.TempDir()
	parent := filepath.Join(home, "work")
	for _, name := range []string{"rig-one", "rig-two", "other"} {
		if err := os.MkdirAll(filepath.Join(parent, name), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}

	resolved := ResolveAutoRegisterPaths([]string{filepath.Join(parent, "rig-") + "*"}, home)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 rig- prefixed directories, got %+v", resolved)
	}
}

func TestMatchesAutoRegisterDetectsSubdirectory(t *testing.T) {
	resolved := []string{"/home/user/projects/foo"}
	if !MatchesAutoRegister("/home/user/projects/foo/sub", resolved) {
		t.Fatalf("expected subdirectory to match")
	}
	if MatchesAutoRegister("/home/user/projects/foobar", resolved) {
		t.Fatalf("expected sibling with shared prefix not to match")
	}
}
