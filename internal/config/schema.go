package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Store   Endpoint      `yaml:"store"`
	Seed    SeedConfig    `yaml:"seed"`
	Logging LoggingConfig `yaml:"logging"`
	Dev     DevConfig     `yaml:"dev"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	CORSOrigin   string `yaml:"cors_origin"`
	Catalog      string `yaml:"catalog,omitempty"`       // MVP catalog YAML imported at startup
	WatchCatalog bool   `yaml:"watch_catalog,omitempty"` // re-import when the catalog changes
}

// Kind names a document store implementation
type Kind string

const (
	KindFirestore Kind = "firestore"
	KindMongo     Kind = "mongo"
	KindDynamo    Kind = "dynamodb"
	KindSQLite    Kind = "sqlite"
	KindMemory    Kind = "memory"
)

// Endpoint selects and configures one document store
type Endpoint struct {
	Kind      Kind            `yaml:"kind"`
	Firestore FirestoreConfig `yaml:"firestore,omitempty"`
	Mongo     MongoConfig     `yaml:"mongo,omitempty"`
	Dynamo    DynamoConfig    `yaml:"dynamodb,omitempty"`
	SQLite    SQLiteConfig    `yaml:"sqlite,omitempty"`
}

// FirestoreConfig locates a Firestore project. EmulatorHost wins over
// CredentialsFile when both are set.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	EmulatorHost    string `yaml:"emulator_host,omitempty"`
}

// MongoConfig locates a MongoDB database
type MongoConfig struct {
	URI      string    `yaml:"uri,omitempty"`
	Database string    `yaml:"database,omitempty"`
	Timeout  *Duration `yaml:"timeout,omitempty"`
}

// DynamoConfig locates a DynamoDB table
type DynamoConfig struct {
	Table       string `yaml:"table,omitempty"`
	Region      string `yaml:"region,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	Profile     string `yaml:"profile,omitempty"`
	CreateTable bool   `yaml:"create_table,omitempty"`
}

// SQLiteConfig holds the database file
type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SeedConfig drives the production-to-emulator copy
type SeedConfig struct {
	Source          Endpoint `yaml:"source"`
	Destination     Endpoint `yaml:"destination"`
	ContinueOnError bool     `yaml:"continue_on_error,omitempty"`
	SkipEmpty       bool     `yaml:"skip_empty,omitempty"` // skip documents with no fields
	Verify          bool     `yaml:"verify,omitempty"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development,omitempty"`
}

// DevConfig configures the development launcher
type DevConfig struct {
	ClientDir   string   `yaml:"client_dir"`
	Frontend    []string `yaml:"frontend,omitempty"`
	Emulator    []string `yaml:"emulator,omitempty"`
	BackendPort string   `yaml:"backend_port"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
