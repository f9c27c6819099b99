package inbox

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pi-agent/messenger/internal/schema"
)

func TestWatcherDeliversExistingAndNewMessages(t *testing.T) {
	base := t.TempDir()
	ib := New(base)
	if _, err := ib.Send("a", "watched", "before-watch", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	w := NewWatcher(ib, "watched")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []string
	done := make(chan struct{})

	go func() {
		_ = w.Run(ctx, func(msg schema.Message, suppressed bool) error {
			mu.Lock()
			received = append(received, msg.Text)
			n := len(received)
			mu.Unlock()
			if n == 2 {
				close(done)
			}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := ib.Send("a", "watched", "after-watch", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for both messages, got %v", received)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 || received[0] != "before-watch" || received[1] != "after-watch" {
		t.Fatalf("unexpected delivery order: %v", received)
	}
}

func TestEchoSuppressionMarksPastThresholdWithoutDropping(t *testing.T) {
	w := &Watcher{name: "watched", echoes: make(map[string][]time.Time)}
	base := time.Now()

	for i := 0; i < echoThreshold; i++ {
		msg := schema.Message{From: "spammy", Timestamp: base.Add(time.Duration(i) * time.Second)}
		if w.isEcho(msg) {
			t.Fatalf("message %d should not be an echo yet", i)
		}
		w.record(msg)
	}

	next := schema.Message{From: "spammy", Timestamp: base.Add(time.Duration(echoThreshold) * time.Second)}
	if !w.isEcho(next) {
		t.Fatalf("expected message past the burst threshold to be suppressed")
	}
}

func TestDrainNowDeliversSuppressedMessagesInsteadOfDropping(t *testing.T) {
	base := t.TempDir()
	ib := New(base)
	for i := 0; i < echoThreshold+1; i++ {
		if _, err := ib.Send("spammy", "watched", fmt.Sprintf("msg-%d", i), nil); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	w := NewWatcher(ib, "watched")

	var mu sync.Mutex
	var suppressedFlags []bool
	var texts []string
	w.drainNow(func(msg schema.Message, suppressed bool) error {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, msg.Text)
		suppressedFlags = append(suppressedFlags, suppressed)
		return nil
	})

	if len(texts) != echoThreshold+1 {
		t.Fatalf("expected all %d messages to be delivered, got %d: %v", echoThreshold+1, len(texts), texts)
	}
	for i, s := range suppressedFlags {
		want := i >= echoThreshold
		if s != want {
			t.Fatalf("message %d (%s): suppressed=%v, want %v", i, texts[i], s, want)
		}
	}

	pending, err := ib.Pending("watched")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected inbox drained even for suppressed messages, got %d remaining", len(pending))
	}
}

func TestEchoSuppressionRollsOffWindow(t *testing.T) {
	w := &Watcher{name: "watched", echoes: make(map[string][]time.Time)}
	base := time.Now()
	for i := 0; i < echoThreshold; i++ {
		w.record(schema.Message{From: "spammy", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	later := schema.Message{From: "spammy", Timestamp: base.Add(echoWindow + time.Minute)}
	if w.isEcho(later) {
		t.Fatalf("expected message outside the echo window to not be suppressed")
	}
}

func TestHistoryCapBounds(t *testing.T) {
	w := &Watcher{name: "watched", echoes: make(map[string][]time.Time)}
	base := time.Now()
	for i := 0; i < historyCap+10; i++ {
		w.record(schema.Message{From: "a", Text: "m", Timestamp: base.Add(time.Duration(i) * time.Millisecond)})
	}
	if len(w.History()) != historyCap {
		t.Fatalf("expected history capped at %d, got %d", historyCap, len(w.History()))
	}
}
