package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bigfish/internal/config"
	"bigfish/internal/endpoint"
	"bigfish/internal/repository"
)

// endpointByName resolves the endpoint names accepted by --from and --to
func endpointByName(name string) (config.Endpoint, error) {
	switch name {
	case "store", "":
		return cfg.Store, nil
	case "source", "seed.source":
		return cfg.Seed.Source, nil
	case "destination", "seed.destination":
		return cfg.Seed.Destination, nil
	}
	return config.Endpoint{}, fmt.Errorf("unknown endpoint %q (want store, source or destination)", name)
}

func openNamed(ctx context.Context, name string) (repository.DocumentStore, config.Endpoint, error) {
	e, err := endpointByName(name)
	if err != nil {
		return nil, e, errors.WithStack(err)
	}
	store, err := open(ctx, e)
	return store, e, err
}

func open(ctx context.Context, e config.Endpoint) (repository.DocumentStore, error) {
	logger.Info("connecting", zap.Stringer("endpoint", e))
	store, err := endpoint.Open(ctx, e, logger)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return store, nil
}

func closeStore(store repository.DocumentStore) {
	if err := store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}
