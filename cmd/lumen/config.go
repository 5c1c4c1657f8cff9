package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// lumen.toml carries project-level defaults for the renderer. Flags
// always win over the config file.

type projectConfig struct {
	Diagnostics diagnosticsConfig `toml:"diagnostics"`
}

type diagnosticsConfig struct {
	Color string `toml:"color"` // auto|on|off
	Width uint8  `toml:"width"` // 0 = unlimited
}

// findLumenToml walks upward from startDir looking for lumen.toml.
func findLumenToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "lumen.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadProjectConfig reads renderer defaults from startDir's nearest
// lumen.toml. A missing file is not an error: defaults apply.
func loadProjectConfig(startDir string) (projectConfig, error) {
	var cfg projectConfig
	path, ok, err := findLumenToml(startDir)
	if err != nil || !ok {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	switch cfg.Diagnostics.Color {
	case "", "auto", "on", "off":
	default:
		return projectConfig{}, fmt.Errorf("%s: invalid diagnostics.color %q (must be auto, on or off)", path, cfg.Diagnostics.Color)
	}
	return cfg, nil
}
