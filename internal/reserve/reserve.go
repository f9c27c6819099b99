// Package reserve implements the reservation pattern-matching and
// write-conflict enforcement described in spec §4.5. Reservations
// themselves live on the owning agent's presence record (schema.Presence);
// this package only matches paths against them.
package reserve

import (
	"strings"

	"github.com/pi-agent/messenger/internal/schema"
)

// Matches reports whether path falls under a reservation's pattern. A
// pattern ending in "/" is a directory prefix: it matches path itself and
// anything under it. Any other pattern must match path exactly. No glob
// expansion is performed, per spec.
func Matches(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/") {
		return path == strings.TrimSuffix(pattern, "/") || strings.HasPrefix(path, pattern)
	}
	return path == pattern
}

// Conflict describes a reservation held by another agent that overlaps a
// requested path.
type Conflict struct {
	Agent       string
	Reservation schema.Reservation
}

// ConflictsWithOtherAgents checks path against every reservation held by
// agents other than self, returning the first overlap found (or an empty
// Conflict with ok=false if there is none). Enforcement callers (e.g. a
// pre-write hook) should refuse the write, or at least warn, when ok is
// true.
func ConflictsWithOtherAgents(path, self string, agents []schema.Presence) (Conflict, bool) {
	for _, agent := range agents {
		if agent.Name == self {
			continue
		}
		for _, res := range agent.Reservations {
			if Matches(res.Pattern, path) {
				return Conflict{Agent: agent.Name, Reservation: res}, true
			}
		}
	}
	return Conflict{}, false
}

// FindAll returns every conflict across all agents other than self, useful
// for a status/report view rather than a single-path enforcement check.
func FindAll(path, self string, agents []schema.Presence) []Conflict {
	var out []Conflict
	for _, agent := range agents {
		if agent.Name == self {
			continue
		}
		for _, res := range agent.Reservations {
			if Matches(res.Pattern, path) {
				out = append(out, Conflict{Agent: agent.Name, Reservation: res})
			}
		}
	}
	return out
}
