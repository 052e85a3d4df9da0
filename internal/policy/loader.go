package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// DirName is the per-project state directory.
const DirName = ".planguard"

// DefaultPath returns the conventional config location under root.
func DefaultPath(root string) string {
	return filepath.Join(root, DirName, "config.yaml")
}

// LoadConfig reads a Config from a YAML file. Fields missing from the file
// keep their Default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("config file not found: %s", path)).
				WithSuggestion("Run 'planguard init' to write a default config")
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read config file", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "YAML", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid config %s", path), err)
	}

	return cfg, nil
}

// Resolve picks the config for a project: an explicit path must exist,
// otherwise <root>/.planguard/config.yaml is used when present, otherwise
// Default. Root always ends up set to root.
func Resolve(root, explicitPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)

	switch {
	case explicitPath != "":
		cfg, err = LoadConfig(explicitPath)
	default:
		path := DefaultPath(root)
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err = LoadConfig(path)
		} else {
			cfg = Default()
		}
	}
	if err != nil {
		return nil, err
	}

	if root != "" {
		cfg.Root = root
	}
	return cfg, nil
}

// SaveConfig writes a Config to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create config directory", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write config file", err)
	}

	return nil
}
