package config

import (
	"strings"
)

// Environment variables honoured by ApplyEnv
const (
	EnvPort               = "PORT"
	EnvMongoURI           = "MONGODB_URI"
	EnvDatabaseName       = "DATABASE_NAME"
	EnvServiceAccountFile = "SERVICE_ACCOUNT_FILE"
	EnvFirestoreEmulator  = "FIRESTORE_EMULATOR_HOST"
	EnvGoogleCloudProject = "GCLOUD_PROJECT"
)

// ApplyEnv overlays environment variables on the loaded config. The
// emulator host only ever redirects the seed destination; the seed source
// always talks to the real project.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv(EnvPort); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
		c.Dev.BackendPort = strings.TrimPrefix(port, ":")
	}

	if uri := getenv(EnvMongoURI); uri != "" {
		for _, e := range c.endpoints(KindMongo) {
			e.Mongo.URI = uri
		}
	}
	if db := getenv(EnvDatabaseName); db != "" {
		for _, e := range c.endpoints(KindMongo) {
			e.Mongo.Database = db
		}
	}

	if creds := getenv(EnvServiceAccountFile); creds != "" {
		if c.Store.Kind == KindFirestore && c.Store.Firestore.EmulatorHost == "" {
			c.Store.Firestore.CredentialsFile = creds
		}
		if c.Seed.Source.Kind == KindFirestore {
			c.Seed.Source.Firestore.CredentialsFile = creds
		}
	}

	if host := getenv(EnvFirestoreEmulator); host != "" && c.Seed.Destination.Kind == KindFirestore {
		c.Seed.Destination.Firestore.EmulatorHost = host
	}
	if project := getenv(EnvGoogleCloudProject); project != "" && c.Seed.Destination.Kind == KindFirestore {
		c.Seed.Destination.Firestore.ProjectID = project
	}
}

func (c *Config) endpoints(kind Kind) []*Endpoint {
	var out []*Endpoint
	for _, e := range []*Endpoint{&c.Store, &c.Seed.Source, &c.Seed.Destination} {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
