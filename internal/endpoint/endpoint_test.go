package endpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bigfish/internal/config"
	"bigfish/internal/repository"
	"bigfish/internal/repository/memory"
	"bigfish/internal/repository/sqlite"
)

func TestOpenLocalKinds(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	store, err := Open(ctx, config.Endpoint{Kind: config.KindMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	require.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "seed.db")
	store, err = Open(ctx, config.Endpoint{Kind: config.KindSQLite, SQLite: config.SQLiteConfig{Path: path}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Repository{}, store)
	require.NoError(t, store.Close())
}

func TestOpenInvalidEndpoint(t *testing.T) {
	_, err := Open(context.Background(), config.Endpoint{Kind: "couchdb"}, nil)

	var connErr *repository.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "couchdb", connErr.Endpoint)
}

func TestOpenUnreachableSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "seed.db")
	_, err := Open(context.Background(), config.Endpoint{Kind: config.KindSQLite, SQLite: config.SQLiteConfig{Path: path}}, nil)

	var connErr *repository.ConnectionError
	assert.True(t, errors.As(err, &connErr))
}
