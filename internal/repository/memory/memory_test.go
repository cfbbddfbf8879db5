package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

func collect(t *testing.T, s *Store, coll tree.Path) []repository.Document {
	t.Helper()
	var docs []repository.Document
	for doc, err := range s.Documents(context.Background(), coll) {
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func TestUpsertReplacesFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := tree.Path{"mvps", "1511"}

	require.NoError(t, s.Upsert(ctx, p, tree.MustFields(map[string]any{"name": "Amon Ra", "notes": "x"})))
	require.NoError(t, s.Upsert(ctx, p, tree.MustFields(map[string]any{"name": "Amon Ra"})))

	got, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, s.Len())
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), tree.Path{"users", "nobody"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocumentsKeepWriteOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, tree.Path{"mvps", id}, tree.Fields{}))
	}
	require.NoError(t, s.Upsert(ctx, tree.Path{"mvps", "a"}, tree.Fields{"x": tree.Int(1)}))

	var ids []string
	for _, d := range collect(t, s, tree.Path{"mvps"}) {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestMissingParentIsNotListed(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Upsert(ctx, tree.Path{"users", "alice", "settings", "prefs"}, tree.Fields{}))

	roots, err := s.RootCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, roots)

	assert.Empty(t, collect(t, s, tree.Path{"users"}))

	subs, err := s.SubCollections(ctx, tree.Path{"users", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"settings"}, subs)
}

func TestReturnedFieldsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := tree.Path{"users", "bob"}
	in := tree.Fields{"theme": tree.String("dark")}
	require.NoError(t, s.Upsert(ctx, p, in))
	in["theme"] = tree.String("light")

	got, err := s.Get(ctx, p)
	require.NoError(t, err)
	got["theme"] = tree.String("rms")

	again, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "dark", again["theme"].Str())
}

func TestRejectsBadPaths(t *testing.T) {
	ctx := context.Background()
	s := New()
	assert.Error(t, s.Upsert(ctx, tree.Path{"users"}, tree.Fields{}))
	for _, err := range s.Documents(ctx, tree.Path{"users", "alice"}) {
		assert.Error(t, err)
	}
}
