// Package config provides configuration management for bigfish.
//
// Config file locations (priority order):
//  1. $BIGFISH_CONFIG
//  2. ./bigfish.yaml
//  3. $XDG_CONFIG_HOME/bigfish/config.yaml
//  4. ~/.config/bigfish/config.yaml
//  5. /etc/bigfish/config.yaml
//
// Environment overrides are applied separately by ApplyEnv so that callers
// decide when the process environment is consulted.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultProjectID is the Firebase project the seed copies from
	DefaultProjectID = "big-fish-9dbec"
	// DefaultEmulatorHost is where the local Firestore emulator listens
	DefaultEmulatorHost = "127.0.0.1:8081"
	// DefaultMongoURI matches the historical local development database
	DefaultMongoURI = "mongodb://localhost:27017/bigfish"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for local development
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:       ":8000",
			CORSOrigin: "*",
		},
		Store: Endpoint{
			Kind:  KindMongo,
			Mongo: MongoConfig{URI: DefaultMongoURI, Database: "bigfish"},
		},
		Seed: SeedConfig{
			Source: Endpoint{
				Kind:      KindFirestore,
				Firestore: FirestoreConfig{ProjectID: DefaultProjectID},
			},
			Destination: Endpoint{
				Kind: KindFirestore,
				Firestore: FirestoreConfig{
					ProjectID:    DefaultProjectID,
					EmulatorHost: DefaultEmulatorHost,
				},
			},
		},
		Logging: LoggingConfig{Level: "info"},
		Dev: DevConfig{
			ClientDir:   "client",
			Frontend:    []string{"npm", "run", "dev"},
			BackendPort: "8000",
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	for _, e := range []*Endpoint{&c.Store, &c.Seed.Source, &c.Seed.Destination} {
		e.Kind = Kind(strings.ToLower(string(e.Kind)))
		if e.Kind == KindFirestore && e.Firestore.ProjectID == "" {
			e.Firestore.ProjectID = DefaultProjectID
		}
	}
}

// Validate checks every endpoint names a known kind
func (c *Config) Validate() error {
	endpoints := map[string]Endpoint{
		"store":            c.Store,
		"seed.source":      c.Seed.Source,
		"seed.destination": c.Seed.Destination,
	}
	for name, e := range endpoints {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that the endpoint's kind-specific settings are usable
func (e Endpoint) Validate() error {
	switch e.Kind {
	case KindFirestore, KindMemory, KindDynamo:
		return nil
	case KindMongo:
		if e.Mongo.URI == "" {
			return fmt.Errorf("mongo endpoint needs a uri")
		}
		return nil
	case KindSQLite:
		if e.SQLite.Path == "" {
			return fmt.Errorf("sqlite endpoint needs a path")
		}
		return nil
	case "":
		return fmt.Errorf("endpoint kind is required")
	}
	return fmt.Errorf("unknown endpoint kind %q", e.Kind)
}

// String describes the endpoint for logs
func (e Endpoint) String() string {
	switch e.Kind {
	case KindFirestore:
		if e.Firestore.EmulatorHost != "" {
			return fmt.Sprintf("firestore emulator %s/%s", e.Firestore.EmulatorHost, e.Firestore.ProjectID)
		}
		return "firestore " + e.Firestore.ProjectID
	case KindMongo:
		return "mongo " + e.Mongo.Database
	case KindDynamo:
		return "dynamodb " + e.Dynamo.Table
	case KindSQLite:
		return "sqlite " + e.SQLite.Path
	}
	return string(e.Kind)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Server: %s (store: %s)\n", c.Server.Addr, c.Store)
	summary += fmt.Sprintf("Seed: %s -> %s", c.Seed.Source, c.Seed.Destination)
	return summary
}
