package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Paths    []string `toml:"paths"`
	Exclude  Exclude  `toml:"exclude"`
	Watch    Watch    `toml:"watch"`
	Output   Output   `toml:"output"`
	History  History  `toml:"history"`
	Analysis Analysis `toml:"analysis"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// Maximum rescans per second once changes start arriving in bursts.
	RescanRate  float64 `toml:"rescan_rate"`
	RescanBurst int     `toml:"rescan_burst"`
}

type Output struct {
	Dir string `toml:"dir"` // per-file .dot and .tsv reports land here
}

type History struct {
	Path string `toml:"path"` // sqlite database recording run snapshots
}

type Analysis struct {
	Rules []SideEffectRule `toml:"rules"`
}

// SideEffectRule configures an extra effectful-call pattern: a glob over the
// callee text and the action to fire when it matches.
type SideEffectRule struct {
	Name   string `toml:"name"`
	Callee string `toml:"callee"`
	Action string `toml:"action"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RescanRate == 0 {
		cfg.Watch.RescanRate = 2
	}
	if cfg.Watch.RescanBurst == 0 {
		cfg.Watch.RescanBurst = 4
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
