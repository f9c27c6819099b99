package inbox

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

const (
	debounceWindow   = 50 * time.Millisecond
	maxReattachTries = 5
	maxBackoff       = 30 * time.Second
	historyCap       = 50
	echoWindow       = 60 * time.Second
	echoThreshold    = 3
)

// Watcher watches one recipient's inbox directory and drains it into a
// delivery callback whenever fsnotify reports a new file, debounced so a
// burst of sends triggers a single drain.
type Watcher struct {
	ib   *Inbox
	name string

	mu      sync.Mutex
	history []schema.Message
	echoes  map[string][]time.Time // sender -> recent delivery timestamps, for loop suppression

	busy    bool
	pending bool
}

// NewWatcher builds a Watcher over name's inbox, rooted at the same base
// as ib.
func NewWatcher(ib *Inbox, name string) *Watcher {
	return &Watcher{ib: ib, name: name, echoes: make(map[string][]time.Time)}
}

// Run watches until ctx is cancelled, calling deliver for each message as
// it drains. deliver's second argument reports echo-loop suppression: a
// sender who has delivered echoThreshold messages within echoWindow has
// every further message within that window still delivered for display,
// but with suppressed=true so the caller skips the wake-up and surfaces
// SuppressionNote instead of treating it as steering input (spec §4.4).
//
// On a watch error the reattach loop retries with exponential backoff
// (capped at maxBackoff) up to maxReattachTries before giving up; callers
// that need the watcher to keep trying indefinitely should call Run again.
func (w *Watcher) Run(ctx context.Context, deliver func(msg schema.Message, suppressed bool) error) error {
	dir := paths.InboxDir(w.ib.base, w.name)

	backoff := 1000 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := w.watchOnce(ctx, dir, deliver)
		if err == nil {
			return nil // ctx cancelled cleanly
		}
		if ctx.Err() != nil {
			return nil
		}
		if attempt == maxReattachTries {
			return errExhaustedRetries
		}
		log.Printf("inbox watcher for %s: %v (retry %d/%d in %s)", w.name, err, attempt+1, maxReattachTries, backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (w *Watcher) watchOnce(ctx context.Context, dir string, deliver func(msg schema.Message, suppressed bool) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.drainNow(deliver) // catch messages that arrived before the watch attached

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return errWatchClosed
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					<-timerC
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.drainNow(deliver)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errWatchClosed
			}
			return err
		}
	}
}

// drainNow runs one drain pass, guarded so a slow deliver callback can't
// overlap with itself: if a drain is already in flight, this call just
// flags that another pass is owed and returns.
func (w *Watcher) drainNow(deliver func(msg schema.Message, suppressed bool) error) {
	w.mu.Lock()
	if w.busy {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.busy = true
	w.mu.Unlock()

	for {
		_, _ = w.ib.Drain(w.name, func(msg schema.Message) error {
			// isEcho is evaluated against the window as it stood before this
			// message; record then folds this message's own timestamp in,
			// so a burst that holds at/above threshold keeps every further
			// message in the window suppressed until it ages out.
			suppressed := w.isEcho(msg)
			w.record(msg)
			return deliver(msg, suppressed)
		})

		w.mu.Lock()
		if !w.pending {
			w.busy = false
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

// SuppressionNote is the one-line note appended when a message is
// delivered with its wake-up flag suppressed (spec §4.4/S7): "loop
// suppressed — too many rapid exchanges with X, no reply needed".
func SuppressionNote(sender string) string {
	return fmt.Sprintf("loop suppressed — too many rapid exchanges with %s, no reply needed", sender)
}

func (w *Watcher) record(msg schema.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history = append(w.history, msg)
	if len(w.history) > historyCap {
		w.history = w.history[len(w.history)-historyCap:]
	}

	now := msg.Timestamp
	times := w.echoes[msg.From]
	cutoff := now.Add(-echoWindow)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.echoes[msg.From] = append(kept, now)
}

func (w *Watcher) isEcho(msg schema.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	times := w.echoes[msg.From]
	cutoff := msg.Timestamp.Add(-echoWindow)
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}
	return count >= echoThreshold
}

// History returns up to the last historyCap delivered messages.
func (w *Watcher) History() []schema.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]schema.Message, len(w.history))
	copy(out, w.history)
	return out
}

// UnreadCount reports how many messages are currently sitting undelivered
// in the watched inbox directory.
func (w *Watcher) UnreadCount() (int, error) {
	msgs, err := w.ib.Pending(w.name)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

type watchErr string

func (e watchErr) Error() string { return string(e) }

const (
	errWatchClosed      = watchErr("fsnotify watcher closed unexpectedly")
	errExhaustedRetries = watchErr("exhausted reattach retries")
)
