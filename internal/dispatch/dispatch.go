// Package dispatch implements the single externally-invoked action
// dispatcher described in spec §6: a record goes in, the "action" field
// selects an operation, and every call returns {text, details}.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pi-agent/messenger/internal/checkpoint"
	"github.com/pi-agent/messenger/internal/claimstore"
	"github.com/pi-agent/messenger/internal/config"
	"github.com/pi-agent/messenger/internal/crew"
	"github.com/pi-agent/messenger/internal/executor"
	"github.com/pi-agent/messenger/internal/feed"
	"github.com/pi-agent/messenger/internal/inbox"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/registry"
)

// Params is the loosely-typed input record the dispatcher accepts; field
// names match the table in spec §6 exactly.
type Params map[string]any

// Result is the uniform dispatcher response shape.
type Result struct {
	Text    string         `json:"text"`
	Details map[string]any `json:"details"`
}

func textResult(mode, text string, extra map[string]any) Result {
	details := map[string]any{"mode": mode}
	for k, v := range extra {
		details[k] = v
	}
	return Result{Text: text, Details: details}
}

func errResult(mode string, err error) Result {
	kind := KindUnknownAction
	var ce *CoreError
	if asCoreError(err, &ce) {
		kind = ce.Kind
	}
	details := map[string]any{
		"mode":  mode,
		"error": string(kind),
	}
	if ce != nil {
		for k, v := range ce.Details {
			details[k] = v
		}
	}
	return Result{
		Text:    "Error: " + err.Error(),
		Details: details,
	}
}

func asCoreError(err error, out **CoreError) bool {
	if ce, ok := err.(*CoreError); ok {
		*out = ce
		return true
	}
	return false
}

// identity is the mutable state established by a successful "join" and
// consulted by every subsequent action in the same process.
type identity struct {
	mu        sync.Mutex
	name      string
	sessionID string
	pid       int
	cwd       string
	registered bool
}

func (id *identity) snapshot() (name, sessionID string, pid int, registered bool) {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.name, id.sessionID, id.pid, id.registered
}

func (id *identity) set(name, sessionID string, pid int) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.name, id.sessionID, id.pid, id.registered = name, sessionID, pid, true
}

func (id *identity) rename(name string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.name = name
}

func (id *identity) clear() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.registered = false
}

// Dispatcher wires every component package behind the single action table.
// One Dispatcher corresponds to one running agent process rooted at a
// single project directory P and machine-scope base directory B.
type Dispatcher struct {
	Base    string
	Project string
	Config  config.Config

	Registry   *registry.Registry
	Inbox      *inbox.Inbox
	Watcher    *inbox.Watcher
	Claims     *claimstore.Store
	Crew       *crew.Engine
	Checkpoint *checkpoint.Store
	Feed       *feed.Feed
	Executor   *executor.Executor

	flusher *registry.ActivityFlusher
	id      identity
}

// New builds a Dispatcher rooted at base (machine scope, typically
// paths.BaseDir()) and project (typically paths.ProjectDir(cwd)).
func New(base, project string, cfg config.Config) *Dispatcher {
	ib := inbox.New(base)
	return &Dispatcher{
		Base:       base,
		Project:    project,
		Config:     cfg,
		Registry:   registry.New(base),
		Inbox:      ib,
		Claims:     claimstore.New(base),
		Crew:       crew.New(project, base),
		Checkpoint: checkpoint.New(project),
		Feed:       feed.New(paths.FeedFile(project)),
		Executor:   executor.New(cfg.Crew.Concurrency.Workers, paths.ArtifactsDir(project), ib, executor.Config{}),
	}
}

// Dispatch routes a single action record to its handler. An unrecognized
// or empty action returns a "status" result, per spec §6.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, p Params) Result {
	if action == "" {
		action = "status"
	}

	var (
		res Result
		err error
	)

	switch action {
	case "join":
		res, err = d.handleJoin(ctx, p)
	case "status":
		res, err = d.handleStatus(ctx, p)
	case "list":
		res, err = d.handleList(ctx, p)
	case "feed":
		res, err = d.handleFeed(ctx, p)
	case "whois":
		res, err = d.handleWhois(ctx, p)
	case "set_status":
		res, err = d.handleSetStatus(ctx, p)
	case "spec":
		res, err = d.handleSpec(ctx, p)
	case "send":
		res, err = d.handleSend(ctx, p)
	case "broadcast":
		res, err = d.handleBroadcast(ctx, p)
	case "reserve":
		res, err = d.handleReserve(ctx, p)
	case "release":
		res, err = d.handleRelease(ctx, p)
	case "rename":
		res, err = d.handleRename(ctx, p)
	case "swarm":
		res, err = d.handleSwarmView(ctx, p)
	case "claim":
		res, err = d.handleClaim(ctx, p)
	case "unclaim":
		res, err = d.handleUnclaim(ctx, p)
	case "complete":
		res, err = d.handleCompleteClaim(ctx, p)
	case "autoRegisterPath":
		res, err = d.handleAutoRegisterPath(ctx, p)
	case "plan":
		res, err = d.handlePlan(ctx, p)
	case "work":
		res, err = d.handleWork(ctx, p)
	case "review":
		res, err = d.handleReview(ctx, p)
	default:
		if kind, sub, ok := splitNamespace(action); ok {
			switch kind {
			case "epic":
				res, err = d.handleEpicAction(ctx, sub, p)
			case "task":
				res, err = d.handleTaskAction(ctx, sub, p)
			case "checkpoint":
				res, err = d.handleCheckpointAction(ctx, sub, p)
			case "crew":
				res, err = d.handleCrewAction(ctx, sub, p)
			default:
				res, err = d.handleStatus(ctx, p)
			}
		} else {
			res, err = d.handleStatus(ctx, p)
		}
	}

	if err != nil {
		return errResult(action, err)
	}
	return res
}

// splitNamespace splits "epic.create" into ("epic", "create", true).
func splitNamespace(action string) (kind, sub string, ok bool) {
	for i := 0; i < len(action); i++ {
		if action[i] == '.' {
			return action[:i], action[i+1:], true
		}
	}
	return "", "", false
}

func (d *Dispatcher) requireRegistered() (string, error) {
	name, _, _, registered := d.id.snapshot()
	if !registered {
		return "", errOf(KindNotRegistered)
	}
	return name, nil
}

func currentPID() int { return os.Getpid() }

func getString(p Params, key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getStringPtr(p Params, key string) *string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func getBool(p Params, key string) bool {
	v, ok := p[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getInt(p Params, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func getStringSlice(p Params, key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func fmtCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// pluralY returns "y" for a count of 1 and "ies" otherwise, for nouns like
// "directory" whose plural isn't a bare "+s".
func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
