// Package endpoint opens the document store a config.Endpoint describes
package endpoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bigfish/internal/config"
	"bigfish/internal/repository"
	"bigfish/internal/repository/dynamo"
	"bigfish/internal/repository/firestore"
	"bigfish/internal/repository/memory"
	"bigfish/internal/repository/mongo"
	"bigfish/internal/repository/sqlite"
)

// Open connects to the endpoint. Failures to reach or authenticate are
// returned as *repository.ConnectionError.
func Open(ctx context.Context, e config.Endpoint, logger *zap.Logger) (repository.DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := e.Validate(); err != nil {
		return nil, &repository.ConnectionError{Endpoint: e.String(), Err: err}
	}
	logger = logger.With(zap.String("endpoint", e.String()))

	switch e.Kind {
	case config.KindFirestore:
		return opened(firestore.New(ctx, firestore.Config{
			ProjectID:       e.Firestore.ProjectID,
			CredentialsFile: e.Firestore.CredentialsFile,
			EmulatorHost:    e.Firestore.EmulatorHost,
		}, logger))

	case config.KindMongo:
		cfg := mongo.Config{URI: e.Mongo.URI, Database: e.Mongo.Database}
		if e.Mongo.Timeout != nil {
			cfg.Timeout = e.Mongo.Timeout.Duration()
		}
		return opened(mongo.New(ctx, cfg, logger))

	case config.KindDynamo:
		return opened(dynamo.New(ctx, dynamo.Config{
			Table:       e.Dynamo.Table,
			Region:      e.Dynamo.Region,
			Endpoint:    e.Dynamo.Endpoint,
			Profile:     e.Dynamo.Profile,
			CreateTable: e.Dynamo.CreateTable,
		}, logger))

	case config.KindSQLite:
		repo, err := sqlite.New(e.SQLite.Path)
		if err != nil {
			return nil, &repository.ConnectionError{Endpoint: e.String(), Err: err}
		}
		return repo, nil

	case config.KindMemory:
		return memory.New(), nil
	}
	return nil, &repository.ConnectionError{Endpoint: e.String(), Err: fmt.Errorf("unknown kind %q", e.Kind)}
}

// opened keeps a failed constructor's typed nil out of the interface
func opened[S repository.DocumentStore](store S, err error) (repository.DocumentStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
