// Package config implements the layered configuration of spec §6: project
// settings override user settings override the shared settings.json
// "messenger" section override built-in defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pi-agent/messenger/internal/names"
)

// CrewConcurrency bounds scout/worker parallelism.
type CrewConcurrency struct {
	Scouts  int `json:"scouts,omitempty"`
	Workers int `json:"workers,omitempty"`
}

// CrewWork bounds the autonomous orchestration loop.
type CrewWork struct {
	MaxAttemptsPerTask int `json:"maxAttemptsPerTask,omitempty"`
	MaxWaves           int `json:"maxWaves,omitempty"`
}

// CrewArtifacts controls worker-run artifact retention.
type CrewArtifacts struct {
	Enabled     bool `json:"enabled,omitempty"`
	CleanupDays int  `json:"cleanupDays,omitempty"`
}

// Crew groups the crew.* config namespace.
type Crew struct {
	Concurrency CrewConcurrency `json:"concurrency,omitempty"`
	Work        CrewWork        `json:"work,omitempty"`
	Artifacts   CrewArtifacts   `json:"artifacts,omitempty"`
}

// NameWords overrides the default name-generation theme's word lists.
type NameWords struct {
	Adjectives []string `json:"adjectives,omitempty"`
	Nouns      []string `json:"nouns,omitempty"`
}

// Config is the merged configuration consumed by the dispatcher.
type Config struct {
	AutoRegister      bool      `json:"autoRegister"`
	AutoRegisterPaths []string  `json:"autoRegisterPaths,omitempty"`
	ScopeToFolder     bool      `json:"scopeToFolder"`

	ContextMode                 string `json:"contextMode,omitempty"` // "full" | "minimal" | "none"
	RegistrationContext         bool   `json:"registrationContext"`
	ReplyHint                   bool   `json:"replyHint"`
	SenderDetailsOnFirstContact bool   `json:"senderDetailsOnFirstContact"`

	StuckThreshold int  `json:"stuckThreshold,omitempty"` // seconds
	StuckNotify    bool `json:"stuckNotify"`

	AutoStatus bool      `json:"autoStatus"`
	NameTheme  string    `json:"nameTheme,omitempty"`
	NameWords  NameWords `json:"nameWords,omitempty"`

	FeedRetention int `json:"feedRetention,omitempty"`

	Crew Crew `json:"crew,omitempty"`
}

// Defaults returns the built-in configuration, per spec §6.
func Defaults() Config {
	return Config{
		AutoRegister:                false,
		ScopeToFolder:               false,
		ContextMode:                 "full",
		RegistrationContext:         true,
		ReplyHint:                   true,
		SenderDetailsOnFirstContact: true,
		StuckThreshold:              1800,
		StuckNotify:                 true,
		AutoStatus:                  true,
		NameTheme:                   names.Default.Name,
		FeedRetention:               500,
		Crew: Crew{
			Concurrency: CrewConcurrency{Scouts: 3, Workers: 3},
			Work:        CrewWork{MaxAttemptsPerTask: 5, MaxWaves: 50},
			Artifacts:   CrewArtifacts{Enabled: true, CleanupDays: 14},
		},
	}
}

// applyContextMode expands the contextMode shorthand into the three
// boolean fields it stands for. It overwrites whatever values the merged
// layers gave those fields, so an explicit registrationContext, replyHint
// or senderDetailsOnFirstContact setting does not survive it. An empty
// mode counts as "full"; an unrecognized mode leaves the fields unchanged.
func (c *Config) applyContextMode() {
	switch c.ContextMode {
	case "minimal":
		c.RegistrationContext = true
		c.ReplyHint = false
		c.SenderDetailsOnFirstContact = false
	case "none":
		c.RegistrationContext = false
		c.ReplyHint = false
		c.SenderDetailsOnFirstContact = false
	case "full", "":
		c.RegistrationContext = true
		c.ReplyHint = true
		c.SenderDetailsOnFirstContact = true
	}
}

// settingsWrapper lets Load pull the "messenger" section out of a shared
// settings.json that also carries unrelated top-level keys.
type settingsWrapper struct {
	Messenger json.RawMessage `json:"messenger"`
}

// Load merges, in increasing precedence, the built-in defaults, the
// shared settings.json "messenger" section, the user config file, and the
// project config file.
func Load(projectDir, homeDir string) (Config, error) {
	cfg := Defaults()

	settingsPath := filepath.Join(homeDir, ".pi", "agent", "settings.json")
	if raw, ok, err := readFile(settingsPath); err != nil {
		return cfg, err
	} else if ok {
		var wrapper settingsWrapper
		if json.Unmarshal(raw, &wrapper) == nil && len(wrapper.Messenger) > 0 {
			_ = json.Unmarshal(wrapper.Messenger, &cfg)
		}
	}

	userPath := filepath.Join(homeDir, ".pi", "agent", "pi-messenger.json")
	if raw, ok, err := readFile(userPath); err != nil {
		return cfg, err
	} else if ok {
		_ = json.Unmarshal(raw, &cfg)
	}

	projectPath := filepath.Join(projectDir, ".pi", "pi-messenger.json")
	if raw, ok, err := readFile(projectPath); err != nil {
		return cfg, err
	} else if ok {
		_ = json.Unmarshal(raw, &cfg)
	}

	cfg.applyContextMode()
	return cfg, nil
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
