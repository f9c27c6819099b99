// Package feed implements the append-only activity feed written to
// P/.pi/messenger/feed.jsonl, bounded by a retention count. It is the
// local audit trail the dispatcher's "feed" action reads from.
package feed

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/schema"
)

// Recognized feed event types, per spec §6.
const (
	TypeJoin         = "join"
	TypeLeave        = "leave"
	TypeReserve      = "reserve"
	TypeRelease      = "release"
	TypeMessage      = "message"
	TypeCommit       = "commit"
	TypeTest         = "test"
	TypeEdit         = "edit"
	TypeStuck        = "stuck"
	TypeTaskStart    = "task.start"
	TypeTaskDone     = "task.done"
	TypeTaskBlock    = "task.block"
	TypeTaskUnblock  = "task.unblock"
	TypeTaskReset    = "task.reset"
	TypePlanStart    = "plan.start"
	TypePlanDone     = "plan.done"
	TypePlanCancel   = "plan.cancel"
	TypePlanFailed   = "plan.failed"
)

// DefaultRetention is used when config does not set feedRetention.
const DefaultRetention = 500

// Feed appends events to path and can compact it to the last N entries.
type Feed struct {
	mu   sync.Mutex
	path string
}

// New creates a Feed writing to path (typically paths.FeedFile(project)).
func New(path string) *Feed {
	return &Feed{path: path}
}

// Append records a new event with the current time.
func (f *Feed) Append(agent, eventType, target, preview string) error {
	return f.appendAt(time.Now().UTC(), agent, eventType, target, preview)
}

func (f *Feed) appendAt(ts time.Time, agent, eventType, target, preview string) error {
	ev := schema.FeedEvent{
		Timestamp: ts,
		Agent:     agent,
		Type:      eventType,
		Target:    target,
		Preview:   preview,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return atomicio.AppendLine(f.path, string(data))
}

// Recent returns up to limit most-recent events, oldest first within the
// returned slice. limit<=0 means "no limit" (return everything available).
func (f *Feed) Recent(limit int) ([]schema.FeedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []schema.FeedEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev schema.FeedEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue // skip unparseable line, consistent with best-effort feed reads
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Compact rewrites the feed file to hold at most retention of the most
// recent entries. Call periodically (e.g. after Append) to bound growth;
// it is not required for correctness since Recent already limits reads.
func (f *Feed) Compact(retention int) error {
	if retention <= 0 {
		retention = DefaultRetention
	}

	events, err := f.Recent(0)
	if err != nil {
		return err
	}
	if len(events) <= retention {
		return nil
	}
	kept := events[len(events)-retention:]

	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	for _, ev := range kept {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return atomicio.WriteText(f.path, b.String())
}
