package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// TOMLLoader loads configuration from a TOML file layered over defaults.
// The file is created with defaults on first run so operators have
// something to edit.
type TOMLLoader struct {
	path string
}

// NewTOMLLoader creates a loader for the default config location
func NewTOMLLoader() *TOMLLoader {
	homeDir, _ := os.UserHomeDir()
	return &TOMLLoader{
		path: filepath.Join(homeDir, ".config", "siteforge", "config.toml"),
	}
}

// NewTOMLLoaderAt creates a loader for an explicit config path
func NewTOMLLoaderAt(path string) *TOMLLoader {
	return &TOMLLoader{path: path}
}

// Load returns the merged configuration: defaults, then the config file
// when present, then environment overrides already applied by defaults
func (l *TOMLLoader) Load(ctx context.Context) (*entities.Config, error) {
	cfg := GetDefaultConfig()

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.writeDefaults(cfg); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(l.path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", l.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// writeDefaults writes the default configuration to the loader's path
func (l *TOMLLoader) writeDefaults(cfg *entities.Config) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	file, err := os.Create(l.path) // #nosec G304 - path is the loader's own config location
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", l.path, err)
	}
	defer func() { _ = file.Close() }()

	encoder := toml.NewEncoder(file)
	encoder.Indent = "  "
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config to %s: %w", l.path, err)
	}
	return nil
}
