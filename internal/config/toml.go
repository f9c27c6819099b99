package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// operatorOverride mirrors Config but in TOML form for the optional
// operator-tooling override file. Only fields an operator actually sets are
// present in the file; zero values are left alone during merge, and the
// *bool fields let an explicit false through.
type operatorOverride struct {
	AutoRegister      *bool    `toml:"auto_register"`
	AutoRegisterPaths []string `toml:"auto_register_paths"`
	ScopeToFolder     *bool    `toml:"scope_to_folder"`
	ContextMode       string   `toml:"context_mode"`
	StuckThreshold    int      `toml:"stuck_threshold"`
	AutoStatus        *bool    `toml:"auto_status"`
	NameTheme         string   `toml:"name_theme"`
	FeedRetention     int      `toml:"feed_retention"`

	Crew struct {
		Concurrency struct {
			Scouts  int `toml:"scouts"`
			Workers int `toml:"workers"`
		} `toml:"concurrency"`
		Work struct {
			MaxAttemptsPerTask int `toml:"max_attempts_per_task"`
			MaxWaves           int `toml:"max_waves"`
		} `toml:"work"`
	} `toml:"crew"`
}

// ApplyOperatorTOML layers an optional pi-messenger.toml operator override
// on top of an already-merged Config. This is a secondary path for operators
// who prefer TOML tooling over hand-editing the JSON config files the
// dispatcher itself reads; it never replaces the JSON merge, it only adds
// one more, higher-precedence layer on top.
func ApplyOperatorTOML(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var override operatorOverride
	if _, err := toml.Decode(string(data), &override); err != nil {
		return cfg, err
	}

	if override.AutoRegister != nil {
		cfg.AutoRegister = *override.AutoRegister
	}
	if len(override.AutoRegisterPaths) > 0 {
		cfg.AutoRegisterPaths = override.AutoRegisterPaths
	}
	if override.ScopeToFolder != nil {
		cfg.ScopeToFolder = *override.ScopeToFolder
	}
	if override.ContextMode != "" {
		cfg.ContextMode = override.ContextMode
	}
	if override.StuckThreshold != 0 {
		cfg.StuckThreshold = override.StuckThreshold
	}
	if override.AutoStatus != nil {
		cfg.AutoStatus = *override.AutoStatus
	}
	if override.NameTheme != "" {
		cfg.NameTheme = override.NameTheme
	}
	if override.FeedRetention != 0 {
		cfg.FeedRetention = override.FeedRetention
	}
	if override.Crew.Concurrency.Scouts != 0 {
		cfg.Crew.Concurrency.Scouts = override.Crew.Concurrency.Scouts
	}
	if override.Crew.Concurrency.Workers != 0 {
		cfg.Crew.Concurrency.Workers = override.Crew.Concurrency.Workers
	}
	if override.Crew.Work.MaxAttemptsPerTask != 0 {
		cfg.Crew.Work.MaxAttemptsPerTask = override.Crew.Work.MaxAttemptsPerTask
	}
	if override.Crew.Work.MaxWaves != 0 {
		cfg.Crew.Work.MaxWaves = override.Crew.Work.MaxWaves
	}

	cfg.applyContextMode()
	return cfg, nil
}

// OperatorTOMLPath returns the conventional location for the optional
// operator override file, ~/.pi/agent/pi-messenger.toml.
func OperatorTOMLPath(homeDir string) string {
	return filepath.Join(homeDir, ".pi", "agent", "pi-messenger.toml")
}
