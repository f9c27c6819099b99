package dispatch

import (
	"context"
	"fmt"

	"github.com/pi-agent/messenger/internal/registry"
	"github.com/pi-agent/messenger/internal/schema"
)

func (d *Dispatcher) handleSend(ctx context.Context, p Params) (Result, error) {
	from, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}

	message := getString(p, "message")
	if message == "" {
		return Result{}, errOf(KindMissingMessage)
	}

	recipients := recipientsOf(p)
	if len(recipients) == 0 {
		return Result{}, errOf(KindMissingRecipient)
	}

	agents, err := d.Registry.GetActiveAgents(registry.DiscoverOptions{})
	if err != nil {
		return Result{}, err
	}

	replyTo := getStringPtr(p, "replyTo")
	var delivered []string
	for _, to := range recipients {
		if to == from {
			return Result{}, errOf(KindCannotSendToSelf)
		}
		if !isActive(agents, to) {
			if _, ok, _ := d.Registry.Get(to); !ok {
				return Result{}, errKind(KindRecipientNotFound, fmt.Errorf("%s", to))
			}
			return Result{}, errKind(KindRecipientNotActive, fmt.Errorf("%s", to))
		}
		if _, err := d.Inbox.Send(from, to, message, replyTo); err != nil {
			return Result{}, err
		}
		delivered = append(delivered, to)
		_ = d.Feed.Append(from, "message", to, message)
	}

	text := fmt.Sprintf("Message sent to %s.", fmtCount(len(delivered), "recipient"))
	if len(delivered) == 1 {
		text = fmt.Sprintf("Message sent to %s.", delivered[0])
	}
	return textResult("send", text, map[string]any{
		"to": delivered,
	}), nil
}

func (d *Dispatcher) handleBroadcast(ctx context.Context, p Params) (Result, error) {
	from, err := d.requireRegistered()
	if err != nil {
		return Result{}, err
	}
	message := getString(p, "message")
	if message == "" {
		return Result{}, errOf(KindMissingMessage)
	}

	agents, err := d.Registry.GetActiveAgents(registry.DiscoverOptions{})
	if err != nil {
		return Result{}, err
	}
	var recipients []string
	for _, a := range agents {
		if a.Name != from {
			recipients = append(recipients, a.Name)
		}
	}
	if len(recipients) == 0 {
		return Result{}, errOf(KindNoRecipients)
	}

	if _, err := d.Inbox.Broadcast(from, recipients, message); err != nil {
		return Result{}, err
	}
	_ = d.Feed.Append(from, "message", "*", message)

	return textResult("broadcast", fmt.Sprintf("Broadcast to %s.", fmtCount(len(recipients), "peer")), map[string]any{
		"to": recipients,
	}), nil
}

func recipientsOf(p Params) []string {
	if to := getStringSlice(p, "to"); len(to) > 0 {
		return to
	}
	if to := getString(p, "to"); to != "" {
		return []string{to}
	}
	return nil
}

func isActive(agents []schema.Presence, name string) bool {
	for _, a := range agents {
		if a.Name == name {
			return true
		}
	}
	return false
}
