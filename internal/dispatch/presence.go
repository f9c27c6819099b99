package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pi-agent/messenger/internal/atomicio"
	"github.com/pi-agent/messenger/internal/inbox"
	"github.com/pi-agent/messenger/internal/names"
	"github.com/pi-agent/messenger/internal/paths"
	"github.com/pi-agent/messenger/internal/registry"
	"github.com/pi-agent/messenger/internal/schema"
)

func (d *Dispatcher) theme() names.Theme {
	if len(d.Config.NameWords.Adjectives) > 0 && len(d.Config.NameWords.Nouns) > 0 {
		return names.Theme{
			Name:       d.Config.NameTheme,
			Adjectives: d.Config.NameWords.Adjectives,
			Nouns:      d.Config.NameWords.Nouns,
		}
	}
	return names.Default
}

func (d *Dispatcher) handleJoin(ctx context.Context, p Params) (Result, error) {
	cwd := getString(p, "cwd")
	req := registry.JoinRequest{
		Name:      getString(p, "name"),
		PID:       currentPID(),
		SessionID: uuid.NewString(),
		CWD:       cwd,
		Model:     getString(p, "model"),
		GitBranch: getString(p, "gitBranch"),
		Spec:      getString(p, "spec"),
		IsHuman:   getBool(p, "isHuman"),
		Theme:     d.theme(),
	}

	rec, err := d.Registry.Register(req)
	if err != nil {
		return Result{}, mapRegistryErr(err)
	}

	d.id.set(rec.Name, rec.SessionID, rec.PID)
	d.flusher = registry.NewActivityFlusher(d.Registry, rec.Name)

	if d.Watcher == nil {
		d.Watcher = inbox.NewWatcher(d.Inbox, rec.Name)
		go func() {
			_ = d.Watcher.Run(context.Background(), func(msg schema.Message, suppressed bool) error {
				preview := msg.Text
				if suppressed {
					preview = msg.Text + "\n" + inbox.SuppressionNote(msg.From)
				}
				_ = d.Feed.Append(rec.Name, "message", msg.From, preview)
				return nil
			})
		}()
	}

	_ = d.Feed.Append(rec.Name, "join", "", "")

	return textResult("join", fmt.Sprintf("Joined as %s.", rec.Name), map[string]any{
		"name": rec.Name,
	}), nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, p Params) (Result, error) {
	name, _, _, registered := d.id.snapshot()
	if !registered {
		return textResult("status", "Not registered.", map[string]any{"registered": false}), nil
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotRegistered)
	}

	agents, err := d.Registry.GetActiveAgents(registry.DiscoverOptions{})
	if err != nil {
		return Result{}, err
	}

	tier := registry.Tier(*rec, time.Now().UTC())
	return textResult("status", fmt.Sprintf("%s (%s), %s in the mesh.", name, tier, fmtCount(len(agents), "peer")), map[string]any{
		"name":     name,
		"tier":     string(tier),
		"peers":    len(agents),
	}), nil
}

func (d *Dispatcher) handleList(ctx context.Context, p Params) (Result, error) {
	opts := registry.DiscoverOptions{}
	if d.Config.ScopeToFolder {
		opts.ScopeToFolder = d.Project
	}
	agents, err := d.Registry.GetActiveAgents(opts)
	if err != nil {
		return Result{}, err
	}

	now := time.Now().UTC()
	groups := map[string][]string{}
	for _, a := range agents {
		tier := string(registry.Tier(a, now))
		groups[tier] = append(groups[tier], a.Name)
	}

	text := fmt.Sprintf("%s active.", fmtCount(len(agents), "agent"))
	return textResult("list", text, map[string]any{
		"agents": agents,
		"groups": groups,
	}), nil
}

func (d *Dispatcher) handleFeed(ctx context.Context, p Params) (Result, error) {
	limit := getInt(p, "limit", 50)
	events, err := d.Feed.Recent(limit)
	if err != nil {
		return Result{}, err
	}
	return textResult("feed", fmt.Sprintf("%s.", fmtCount(len(events), "event")), map[string]any{
		"events": events,
	}), nil
}

func (d *Dispatcher) handleWhois(ctx context.Context, p Params) (Result, error) {
	name := getString(p, "name")
	if name == "" {
		return Result{}, errOf(KindMissingID)
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindRecipientNotFound)
	}

	tier := registry.Tier(*rec, time.Now().UTC())
	status := registry.AutoStatus(*rec, time.Now().UTC())
	return textResult("whois", fmt.Sprintf("%s: %s (%s)", name, status, tier), map[string]any{
		"presence": rec,
		"tier":     string(tier),
	}), nil
}

func (d *Dispatcher) handleSetStatus(ctx context.Context, p Params) (Result, error) {
	name, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotRegistered)
	}

	rec.CustomStatus = getString(p, "message")
	if err := atomicio.WriteJSON(paths.RegistryFile(d.Base, name), rec); err != nil {
		return Result{}, err
	}
	d.Registry.InvalidateCache()

	if rec.CustomStatus == "" {
		return textResult("set_status", "Status cleared.", nil), nil
	}
	return textResult("set_status", fmt.Sprintf("Status set to %q.", rec.CustomStatus), nil), nil
}

func (d *Dispatcher) handleSpec(ctx context.Context, p Params) (Result, error) {
	name, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}
	spec := getString(p, "spec")
	if spec == "" {
		return Result{}, errOf(KindNoSpec)
	}

	rec, ok, err := d.Registry.Get(name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errOf(KindNotRegistered)
	}

	rec.Spec = spec
	if err := atomicio.WriteJSON(paths.RegistryFile(d.Base, name), rec); err != nil {
		return Result{}, err
	}
	d.Registry.InvalidateCache()

	return textResult("spec", fmt.Sprintf("Working spec set to %s.", spec), nil), nil
}

func (d *Dispatcher) handleRename(ctx context.Context, p Params) (Result, error) {
	oldName, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}
	newName := getString(p, "name")
	if newName == "" {
		return Result{}, errOf(KindInvalidName)
	}

	if err := d.Registry.Rename(ctx, oldName, newName); err != nil {
		return Result{}, mapRegistryErr(err)
	}
	d.id.rename(names.Sanitize(newName))

	return textResult("rename", fmt.Sprintf("Renamed to %s.", names.Sanitize(newName)), map[string]any{
		"name": names.Sanitize(newName),
	}), nil
}

func (d *Dispatcher) handleAutoRegisterPath(ctx context.Context, p Params) (Result, error) {
	sub := getString(p, "autoRegisterPath")
	switch sub {
	case "list":
		return textResult("autoRegisterPath", fmt.Sprintf("%s configured.", fmtCount(len(d.Config.AutoRegisterPaths), "path")), map[string]any{
			"paths": d.Config.AutoRegisterPaths,
		}), nil
	case "add":
		path := getString(p, "path")
		if path == "" {
			return Result{}, errOf(KindMissingPaths)
		}
		d.Config.AutoRegisterPaths = append(d.Config.AutoRegisterPaths, path)
		return textResult("autoRegisterPath", fmt.Sprintf("Added %s.", path), nil), nil
	case "remove":
		path := getString(p, "path")
		out := d.Config.AutoRegisterPaths[:0]
		for _, existing := range d.Config.AutoRegisterPaths {
			if existing != path {
				out = append(out, existing)
			}
		}
		d.Config.AutoRegisterPaths = out
		return textResult("autoRegisterPath", fmt.Sprintf("Removed %s.", path), nil), nil
	default:
		return Result{}, errOf(KindUnknownOperation)
	}
}

func (d *Dispatcher) handleSwarmView(ctx context.Context, p Params) (Result, error) {
	spec := getString(p, "spec")
	claims, err := d.Claims.ListBySpec(spec)
	if err != nil {
		return Result{}, err
	}
	return textResult("swarm", fmt.Sprintf("%s claimed under %s.", fmtCount(len(claims), "task"), spec), map[string]any{
		"claims": claims,
	}), nil
}

func mapRegistryErr(err error) error {
	switch {
	case err == registry.ErrInvalidName:
		return errKind(KindInvalidName, err)
	case err == registry.ErrNameTaken:
		return errKind(KindNameTaken, err)
	case err == registry.ErrRaceLost:
		return errKind(KindRaceLost, err)
	case err == registry.ErrSameName:
		return errKind(KindSameName, err)
	case err == registry.ErrNotRegistered:
		return errKind(KindNotRegistered, err)
	default:
		return err
	}
}
