// Package names generates the themed adjective+noun agent names used when
// an agent joins without an explicit PI_AGENT_NAME override. Word lists
// themselves are a pluggable, host-supplied concern (see spec §1 — word
// list authoring is out of scope); this package only defines the
// generation and validation contract plus a small built-in default theme
// so the module works standalone.
package names

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Theme is a named adjective+noun word list.
type Theme struct {
	Name       string
	Adjectives []string
	Nouns      []string
}

// Default is the built-in theme used when no nameTheme/nameWords config is
// supplied.
var Default = Theme{
	Name: "default",
	Adjectives: []string{
		"nimble", "quiet", "brisk", "curious", "steady", "clever", "bold",
		"gentle", "swift", "tidy", "wry", "calm", "eager", "keen", "sly",
	},
	Nouns: []string{
		"otter", "falcon", "heron", "badger", "lynx", "marten", "sparrow",
		"weasel", "osprey", "vole", "wren", "fox", "mole", "raven", "hare",
	},
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]{0,49}$`)

// Valid reports whether name satisfies the presence record naming
// invariant: letters, digits, underscore, hyphen; leading char must be a
// letter, digit, or underscore; length 1–50.
func Valid(name string) bool {
	return name != "" && len(name) <= 50 && validName.MatchString(name)
}

// Generate deterministically derives the n-th candidate name for a theme,
// so repeated collisions produce a distinct, reproducible sequence:
// attempt 0 is "<adjective>-<noun>", and each subsequent attempt advances
// through the cross product of the word lists before falling back to a
// numeric suffix.
func Generate(theme Theme, attempt int) string {
	if len(theme.Adjectives) == 0 || len(theme.Nouns) == 0 {
		theme = Default
	}

	total := len(theme.Adjectives) * len(theme.Nouns)
	if attempt < total {
		adj := theme.Adjectives[attempt/len(theme.Nouns)]
		noun := theme.Nouns[attempt%len(theme.Nouns)]
		return fmt.Sprintf("%s-%s", adj, noun)
	}

	// Cross product exhausted: cycle again with a numeric suffix so names
	// stay distinct instead of repeating verbatim.
	cycle := attempt / total
	idx := attempt % total
	adj := theme.Adjectives[idx/len(theme.Nouns)]
	noun := theme.Nouns[idx%len(theme.Nouns)]
	return fmt.Sprintf("%s-%s-%d", adj, noun, cycle+1)
}

// EqualFold compares two names case-insensitively using Unicode case
// folding, for theme word matching that should not depend on the caller's
// casing convention.
func EqualFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// Sanitize lower-cases and trims a caller-supplied name override (e.g. from
// PI_AGENT_NAME) without altering validity — it does not attempt to make an
// invalid name valid, it only normalizes case/whitespace before the Valid
// check runs.
func Sanitize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
