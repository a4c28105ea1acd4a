package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rbaliyan/credseal"
)

// secretEnv overrides the secret from the config file when set.
const secretEnv = "CREDSEAL_SECRET"

// fileConfig is the on-disk configuration of the command.
type fileConfig struct {
	credseal.Config `yaml:",inline"`

	// BaseURL is the authentication service used by signup and login.
	BaseURL string `yaml:"base_url,omitempty"`
}

// loadConfig reads path (if non-empty) and applies environment overrides.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if s := os.Getenv(secretEnv); s != "" {
		cfg.Secret = s
	}
	return cfg, nil
}
