// Package paths centralizes the two filesystem roots the messenger reads
// and writes: the machine-scope base directory B and the per-project
// directory P, plus the subpaths of each named in the data model.
package paths

import (
	"os"
	"path/filepath"
)

// BaseDirEnv overrides the machine-scope base directory.
const BaseDirEnv = "PI_MESSENGER_DIR"

// BaseDir returns B, the machine-scope root for presence, inboxes, claims,
// completions, and the swarm lock. It honors PI_MESSENGER_DIR, falling back
// to ~/.pi/agent/messenger.
func BaseDir() string {
	if dir := os.Getenv(BaseDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pi", "agent", "messenger")
}

// ProjectDir returns the project data directory P/.pi/messenger, where P is
// the given working directory: <cwd>/.pi/messenger.
// Unlike the teacher's upward-searching workspace finder, this performs no
// ancestor search — the spec defines P relative to "the current working
// directory", not a discovered project root.
func ProjectDir(cwd string) string {
	return filepath.Join(cwd, ".pi", "messenger")
}

// Registry returns B/registry.
func Registry(base string) string { return filepath.Join(base, "registry") }

// RegistryFile returns B/registry/<name>.json.
func RegistryFile(base, name string) string {
	return filepath.Join(Registry(base), name+".json")
}

// Inbox returns B/inbox.
func Inbox(base string) string { return filepath.Join(base, "inbox") }

// InboxDir returns B/inbox/<recipient>.
func InboxDir(base, recipient string) string {
	return filepath.Join(Inbox(base), recipient)
}

// ClaimsFile returns B/claims.json.
func ClaimsFile(base string) string { return filepath.Join(base, "claims.json") }

// CompletionsFile returns B/completions.json.
func CompletionsFile(base string) string { return filepath.Join(base, "completions.json") }

// SwarmLockFile returns B/swarm.lock.
func SwarmLockFile(base string) string { return filepath.Join(base, "swarm.lock") }

// FeedFile returns P/.pi/messenger/feed.jsonl.
func FeedFile(project string) string { return filepath.Join(project, "feed.jsonl") }

// CrewDir returns P/.pi/messenger/crew.
func CrewDir(project string) string { return filepath.Join(project, "crew") }

// EpicsDir returns P/.pi/messenger/crew/epics.
func EpicsDir(project string) string { return filepath.Join(CrewDir(project), "epics") }

// EpicFile returns P/.pi/messenger/crew/epics/<id>.json.
func EpicFile(project, id string) string { return filepath.Join(EpicsDir(project), id+".json") }

// SpecsDir returns P/.pi/messenger/crew/specs.
func SpecsDir(project string) string { return filepath.Join(CrewDir(project), "specs") }

// EpicSpecFile returns P/.pi/messenger/crew/specs/<id>.md.
func EpicSpecFile(project, id string) string { return filepath.Join(SpecsDir(project), id+".md") }

// TasksDir returns P/.pi/messenger/crew/tasks.
func TasksDir(project string) string { return filepath.Join(CrewDir(project), "tasks") }

// TaskFile returns P/.pi/messenger/crew/tasks/<id>.json.
func TaskFile(project, id string) string { return filepath.Join(TasksDir(project), id+".json") }

// TaskSpecFile returns P/.pi/messenger/crew/tasks/<id>.md.
func TaskSpecFile(project, id string) string { return filepath.Join(TasksDir(project), id+".md") }

// BlocksDir returns P/.pi/messenger/crew/blocks.
func BlocksDir(project string) string { return filepath.Join(CrewDir(project), "blocks") }

// BlockFile returns P/.pi/messenger/crew/blocks/<id>.md.
func BlockFile(project, id string) string { return filepath.Join(BlocksDir(project), id+".md") }

// CheckpointsDir returns P/.pi/messenger/crew/checkpoints.
func CheckpointsDir(project string) string { return filepath.Join(CrewDir(project), "checkpoints") }

// CheckpointFile returns P/.pi/messenger/crew/checkpoints/<epicID>.json.
func CheckpointFile(project, epicID string) string {
	return filepath.Join(CheckpointsDir(project), epicID+".json")
}

// ArtifactsDir returns P/.pi/messenger/crew/artifacts, the root for worker
// executor run artifacts (prompt, raw output, JSONL stream, metadata).
func ArtifactsDir(project string) string { return filepath.Join(CrewDir(project), "artifacts") }
