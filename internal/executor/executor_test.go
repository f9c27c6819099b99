package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pi-agent/messenger/internal/inbox"
)

func TestRunCapturesStdoutAndWritesArtifacts(t *testing.T) {
	ib := inbox.New(t.TempDir())
	ex := New(2, t.TempDir(), ib, Config{})

	task := Task{
		AgentName: "nimble-otter",
		Command:   "/bin/sh",
		RawArgs:   []string{"-c", `echo '{"type":"progress","pct":50}'; echo '{"type":"done"}'`},
	}

	var events []ProgressEvent
	result, err := ex.Run(context.Background(), task, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitErr != nil {
		t.Fatalf("expected clean exit, got %v", result.ExitErr)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 progress events, got %d", len(events))
	}
	if events[0].Data["type"] != "progress" {
		t.Fatalf("expected first event parsed as JSON, got %+v", events[0])
	}
	if !strings.Contains(result.RawOutput, "done") {
		t.Fatalf("expected raw output to contain both lines, got %q", result.RawOutput)
	}
	if result.ArtifactsPath == "" {
		t.Fatalf("expected artifacts path to be set")
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	ib := inbox.New(t.TempDir())
	ex := New(1, t.TempDir(), ib, Config{})

	task := func() Task {
		return Task{AgentName: "a", Command: "/bin/sh", RawArgs: []string{"-c", "sleep 0.05"}}
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = ex.Run(context.Background(), task(), nil)
		done <- struct{}{}
	}()
	go func() {
		_, _ = ex.Run(context.Background(), task(), nil)
		done <- struct{}{}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first run")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for second run")
	}
}

func TestRunGracefulShutdownSendsSteerMessage(t *testing.T) {
	ib := inbox.New(t.TempDir())
	ex := New(1, t.TempDir(), ib, Config{
		ShutdownGracePeriod: 20 * time.Millisecond,
		TerminateGracePeriod: 20 * time.Millisecond,
	})

	task := Task{AgentName: "bold-marten", Command: "/bin/sh", RawArgs: []string{"-c", "sleep 5"}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, err := ex.Run(ctx, task, nil); err == nil {
		t.Log("process exited without error during shutdown, acceptable for a killed sleep")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("expected graceful shutdown to complete quickly, took %v", time.Since(start))
	}

	pending, err := ib.Pending("bold-marten")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Text != "wrap up" {
		t.Fatalf("expected a 'wrap up' steer message, got %+v", pending)
	}
}
