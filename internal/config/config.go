// Package config reads and writes the repo-local stackd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the per-repository configuration stored next to the database.
type Config struct {
	Trunk     string `toml:"trunk"`
	Remote    string `toml:"remote"`
	UseReplay bool   `toml:"use_replay"`
}

// Defaults returns a config with the default remote and replay enabled.
func Defaults() Config {
	return Config{Remote: "origin", UseReplay: true}
}

// Path returns the config file location for a repository root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "stackd", "config.toml")
}

// IsInitialized reports whether stackd has been initialized in the repo.
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(Path(repoRoot))
	return err == nil
}

// Load reads the repo config.
func Load(repoRoot string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(Path(repoRoot), &cfg); err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	return cfg, nil
}

// Save writes the repo config, creating the directory if needed.
func Save(repoRoot string, cfg Config) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
