package credseal

import (
	"context"
	"fmt"
	"os"

	"github.com/rbaliyan/config"
	"gopkg.in/yaml.v3"
)

// Config carries the key material and limits for a Sealer. It is passed by value into
// NewKeyProvider; nothing in this package reads process-wide state.
type Config struct {
	// Secret is the standard base64 encoding of the 32-byte master key.
	Secret string `json:"secret" yaml:"secret"`

	// KeyID names the current key. Defaults to DefaultKeyID.
	KeyID string `json:"key_id,omitempty" yaml:"key_id,omitempty"`

	// RetiredSecrets maps key IDs to base64 secrets that are still accepted by Open.
	RetiredSecrets map[string]string `json:"retired_secrets,omitempty" yaml:"retired_secrets,omitempty"`

	// MaxPlaintextSize bounds Seal input in bytes. Zero selects DefaultMaxPlaintextSize,
	// a negative value disables the check.
	MaxPlaintextSize int `json:"max_plaintext_size,omitempty" yaml:"max_plaintext_size,omitempty"`
}

// ConfigStore is the subset of a config store used by LoadConfig.
// Stores from github.com/rbaliyan/config satisfy it.
type ConfigStore interface {
	Get(ctx context.Context, namespace, key string) (config.Value, error)
}

// LoadConfig reads a Config stored under namespace/key.
// The stored value may use any codec registered with the config package.
func LoadConfig(ctx context.Context, store ConfigStore, namespace, key string) (Config, error) {
	if store == nil {
		return Config{}, fmt.Errorf("credseal: LoadConfig store is nil")
	}
	val, err := store.Get(ctx, namespace, key)
	if err != nil {
		return Config{}, fmt.Errorf("credseal: failed to read config %s/%s: %w", namespace, key, err)
	}
	var cfg Config
	if err := val.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("credseal: failed to decode config %s/%s: %w", namespace, key, err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML Config from path. Unknown fields are rejected.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("credseal: failed to read config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("credseal: failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
