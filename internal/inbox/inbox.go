// Package inbox implements per-recipient message delivery: send/broadcast
// into B/inbox/<name>/, and an fsnotify-backed watcher that drains new
// messages as they land (spec §4.4).
package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/schema"
)

// Inbox sends and drains messages rooted at base/inbox.
type Inbox struct {
	base string
}

// New creates an Inbox rooted at base (typically paths.BaseDir()).
func New(base string) *Inbox {
	return &Inbox{base: base}
}

// Send writes a message file into the recipient's inbox directory. The
// filename is timestamp-prefixed so a directory listing sorts in delivery
// order; replyTo, if non-nil, links to an earlier message's ID.
func (ib *Inbox) Send(from, to, text string, replyTo *string) (*schema.Message, error) {
	dir := paths.InboxDir(ib.base, to)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating inbox for %s: %w", to, err)
	}

	now := time.Now().UTC()
	msg := schema.Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: now,
		ReplyTo:   replyTo,
	}

	filename := fmt.Sprintf("%s-%s.json", now.Format("20060102T150405.000000000"), msg.ID[:8])
	path := filepath.Join(dir, filename)
	if err := atomicio.WriteJSON(path, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Broadcast sends the same text to every recipient in to, skipping any
// entry equal to from (an agent never messages itself via broadcast).
func (ib *Inbox) Broadcast(from string, to []string, text string) ([]schema.Message, error) {
	var sent []schema.Message
	for _, recipient := range to {
		if recipient == from {
			continue
		}
		msg, err := ib.Send(from, recipient, text, nil)
		if err != nil {
			return sent, err
		}
		sent = append(sent, *msg)
	}
	return sent, nil
}

// pendingEntry pairs a message with the file it was read from, so Drain's
// caller can delete it once delivery is acknowledged.
type pendingEntry struct {
	path string
	msg  schema.Message
}

// Pending lists the undelivered messages in name's inbox directory, oldest
// first, without removing them.
func (ib *Inbox) Pending(name string) ([]schema.Message, error) {
	entries, err := ib.listSorted(name)
	if err != nil {
		return nil, err
	}
	msgs := make([]schema.Message, len(entries))
	for i, e := range entries {
		msgs[i] = e.msg
	}
	return msgs, nil
}

// Drain reads every pending message for name in arrival order, invokes
// deliver for each, and removes the file once deliver returns nil. If
// deliver returns an error for a message, Drain stops and leaves that
// message (and anything after it) in place so a later Drain retries it.
func (ib *Inbox) Drain(name string, deliver func(schema.Message) error) (int, error) {
	entries, err := ib.listSorted(name)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range entries {
		if err := deliver(e.msg); err != nil {
			return delivered, err
		}
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

func (ib *Inbox) listSorted(name string) ([]pendingEntry, error) {
	dir := paths.InboxDir(ib.base, name)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names) // filenames are timestamp-prefixed, so lexical sort is chronological

	entries := make([]pendingEntry, 0, len(names))
	for _, n := range names {
		path := filepath.Join(dir, n)
		var msg schema.Message
		ok, err := atomicio.ReadJSON(path, &msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Torn or malformed message files are not retry-safe (spec
			// §4.4): remove it so it doesn't sit undrained forever.
			_ = os.Remove(path)
			continue
		}
		entries = append(entries, pendingEntry{path: path, msg: msg})
	}
	return entries, nil
}
