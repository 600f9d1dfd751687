package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the CLI tooling settings. The engine itself is
// configuration-free; everything here points the tooling at local state.
type Config struct {
	DataDir     string `toml:"DataDir"`
	JournalPath string `toml:"JournalPath"`
	Service     string `toml:"Service"`
	Environment string `toml:"Environment"`
}

const (
	defaultDataDir     = "./vester-data"
	defaultJournalName = "events.journal"
	defaultService     = "vester-cli"
)

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.JournalPath) == "" {
		c.JournalPath = filepath.Join(c.DataDir, defaultJournalName)
	}
	if strings.TrimSpace(c.Service) == "" {
		c.Service = defaultService
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return cfg, nil
}

// StatePath returns the LevelDB directory holding engine state.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}
