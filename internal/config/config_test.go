package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Seed.Source.Kind != KindFirestore || cfg.Seed.Source.Firestore.EmulatorHost != "" {
		t.Errorf("Seed.Source = %+v, want production firestore", cfg.Seed.Source)
	}
	dest := cfg.Seed.Destination.Firestore
	if dest.EmulatorHost != DefaultEmulatorHost || dest.ProjectID != DefaultProjectID {
		t.Errorf("Seed.Destination = %+v, want emulator %s/%s", dest, DefaultEmulatorHost, DefaultProjectID)
	}
	if cfg.Seed.SkipEmpty {
		t.Error("SkipEmpty should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(envMap(map[string]string{
		EnvPort:               "9000",
		EnvMongoURI:           "mongodb://db:27017",
		EnvDatabaseName:       "guild",
		EnvServiceAccountFile: "/secrets/key.json",
		EnvFirestoreEmulator:  "localhost:9999",
	}))

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %s, want :9000", cfg.Server.Addr)
	}
	if cfg.Store.Mongo.URI != "mongodb://db:27017" || cfg.Store.Mongo.Database != "guild" {
		t.Errorf("Store.Mongo = %+v", cfg.Store.Mongo)
	}
	if cfg.Seed.Source.Firestore.CredentialsFile != "/secrets/key.json" {
		t.Errorf("source credentials = %q", cfg.Seed.Source.Firestore.CredentialsFile)
	}
	// The emulator never redirects the source
	if cfg.Seed.Source.Firestore.EmulatorHost != "" {
		t.Errorf("source emulator = %q, want empty", cfg.Seed.Source.Firestore.EmulatorHost)
	}
	if cfg.Seed.Destination.Firestore.EmulatorHost != "localhost:9999" {
		t.Errorf("destination emulator = %q", cfg.Seed.Destination.Firestore.EmulatorHost)
	}
}

func TestApplyEnvEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(envMap(nil))
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Error("ApplyEnv with no variables should not change the config")
	}
}

func TestEndpointValidate(t *testing.T) {
	tests := []struct {
		name    string
		e       Endpoint
		wantErr bool
	}{
		{"memory", Endpoint{Kind: KindMemory}, false},
		{"sqlite without path", Endpoint{Kind: KindSQLite}, true},
		{"sqlite", Endpoint{Kind: KindSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, false},
		{"mongo without uri", Endpoint{Kind: KindMongo}, true},
		{"missing kind", Endpoint{}, true},
		{"unknown kind", Endpoint{Kind: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.e.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Store = Endpoint{Kind: KindSQLite, SQLite: SQLiteConfig{Path: "/var/lib/bigfish.db"}}
	cfg.Seed.ContinueOnError = true
	timeout := Duration(5 * time.Second)
	cfg.Seed.Source.Mongo.Timeout = &timeout

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.Store.Kind != KindSQLite || loaded.Store.SQLite.Path != "/var/lib/bigfish.db" {
		t.Errorf("Store = %+v", loaded.Store)
	}
	if !loaded.Seed.ContinueOnError {
		t.Error("ContinueOnError should survive a round trip")
	}
	if loaded.Seed.Source.Mongo.Timeout == nil || loaded.Seed.Source.Mongo.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", loaded.Seed.Source.Mongo.Timeout)
	}
}

func TestLoadPartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("seed:\n  destination:\n    kind: SQLite\n    sqlite:\n      path: seed.db\n")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Seed.Destination.Kind != KindSQLite {
		t.Errorf("Destination.Kind = %s, want sqlite", cfg.Seed.Destination.Kind)
	}
	if cfg.Seed.Source.Kind != KindFirestore {
		t.Errorf("Source.Kind = %s, want default firestore", cfg.Seed.Source.Kind)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("Server.Addr = %s, want :8000", cfg.Server.Addr)
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("store:\n  kind: couchdb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("LoadFromPath() should reject an unknown store kind")
	}
}

func TestSearchPaths(t *testing.T) {
	paths := SearchPaths(envMap(map[string]string{
		EnvConfigPath:     "/tmp/explicit.yaml",
		"XDG_CONFIG_HOME": "/xdg",
		"HOME":            "/home/guild",
	}))
	want := []string{
		"/tmp/explicit.yaml",
		ConfigFileName,
		"/xdg/bigfish/config.yaml",
		"/home/guild/.config/bigfish/config.yaml",
		"/etc/bigfish/config.yaml",
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("SearchPaths() = %v, want %v", paths, want)
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")

	// Explicit path doesn't exist, should fall back
	if found := FindConfigPath(); found == "" {
		t.Error("FindConfigPath() should fall back to the working directory")
	}
}

func TestFindCredentialFile(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "migrations")
	if err := os.Mkdir(work, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"package.json", "big-fish-firebase-adminsdk-abc.json"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	explicit := filepath.Join(root, "package.json")
	if got, err := FindCredentialFile(explicit, work); err != nil || got != explicit {
		t.Errorf("explicit path = %q, %v", got, err)
	}
	got, err := FindCredentialFile("", work)
	if err != nil {
		t.Fatalf("FindCredentialFile() error: %v", err)
	}
	if filepath.Base(got) != "big-fish-firebase-adminsdk-abc.json" {
		t.Errorf("FindCredentialFile() = %q, want the adminsdk key in the parent dir", got)
	}
}

func TestFindCredentialFileMissing(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
	}{
		{"nothing to discover", ""},
		{"explicit path does not exist", "/nonexistent/prod-firebase-adminsdk.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "work")
			if err := os.Mkdir(dir, 0755); err != nil {
				t.Fatal(err)
			}
			got, err := FindCredentialFile(tt.explicit, dir)
			if !errors.Is(err, ErrNoCredentials) {
				t.Errorf("FindCredentialFile() error = %v, want ErrNoCredentials", err)
			}
			if got != "" {
				t.Errorf("FindCredentialFile() = %q, want empty", got)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
