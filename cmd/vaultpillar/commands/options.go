// Package commands implements the vaultpillar CLI commands.
package commands

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/saltops/vaultpillar/internal/config"
	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/logging"
)

// Options carries the global CLI state shared by all commands.
type Options struct {
	ConfigPath string
	Logger     *logging.Logger
}

func (o *Options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadGrains reads a YAML grains file, or returns an empty grain set
// when no path was given.
func loadGrains(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vperrors.ConfigError{
			Field:      "grains",
			Value:      path,
			Message:    "grains file is unreadable",
			Suggestion: "Export grains with 'salt-call --local grains.items --out=yaml'",
			Err:        err,
		}
	}

	grains := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &grains); err != nil {
		return nil, vperrors.ConfigError{
			Field:   "grains",
			Value:   path,
			Message: "grains file is not a YAML mapping",
			Err:     err,
		}
	}

	return grains, nil
}
