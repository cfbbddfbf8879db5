package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bigfish/internal/domain"
	"bigfish/internal/repository/memory"
	"bigfish/internal/tree"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMvpService(t *testing.T) (*MvpService, *memory.Store, chan Event) {
	t.Helper()
	store := memory.New()
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	svc := NewMvpService(store, bus, zaptest.NewLogger(t))
	svc.now = func() time.Time { return fixedNow }
	return svc, store, events
}

func amonRa() *domain.Mvp {
	return &domain.Mvp{MobID: 1511, Name: "Amon Ra", MapName: "moc_pryd06", SpawnDelay: 60, SpawnVariance: 10}
}

func TestMvpServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newMvpService(t)

	t.Run("generates id and publishes", func(t *testing.T) {
		m := amonRa()
		require.NoError(t, svc.Create(ctx, m))
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, domain.MvpAlive, m.Status)

		ev := <-events
		assert.Equal(t, EventMvpCreated, ev.Type)

		got, err := svc.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Amon Ra", got.Name)
	})

	t.Run("keeps provided id", func(t *testing.T) {
		m := amonRa()
		m.ID = "amon"
		require.NoError(t, svc.Create(ctx, m))
		assert.Equal(t, "amon", m.ID)
	})

	t.Run("refuses taken id", func(t *testing.T) {
		m := amonRa()
		m.ID = "amon"
		assert.ErrorIs(t, svc.Create(ctx, m), ErrConflict)
	})

	t.Run("rejects invalid", func(t *testing.T) {
		m := amonRa()
		m.Name = ""
		assert.ErrorIs(t, svc.Create(ctx, m), ErrValidation)
	})
}

func TestMvpServiceGetMissing(t *testing.T) {
	svc, _, _ := newMvpService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMvpServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newMvpService(t)
	m := amonRa()
	m.ID = "1511"
	require.NoError(t, svc.Create(ctx, m))
	<-events

	dead := domain.MvpDead
	got, err := svc.Update(ctx, "1511", domain.MvpUpdate{Status: &dead})
	require.NoError(t, err)
	assert.Equal(t, domain.MvpDead, got.Status)
	require.NotNil(t, got.RespawnAt)
	assert.True(t, got.RespawnAt.Equal(fixedNow.Add(time.Hour)))

	ev := <-events
	assert.Equal(t, EventMvpUpdated, ev.Type)

	stored, err := svc.Get(ctx, "1511")
	require.NoError(t, err)
	assert.Equal(t, domain.MvpDead, stored.Status)

	_, err = svc.Update(ctx, "missing", domain.MvpUpdate{Status: &dead})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMvpServiceList(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newMvpService(t)

	mvps, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, mvps)
	assert.NotNil(t, mvps)

	for _, id := range []string{"b", "a"} {
		m := amonRa()
		m.ID = id
		require.NoError(t, svc.Create(ctx, m))
	}
	// Malformed documents are skipped, not fatal
	require.NoError(t, store.Upsert(ctx, tree.Path{"mvps", "bad"}, tree.Fields{"mob_id": tree.String("x")}))

	mvps, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, mvps, 2)
	assert.Equal(t, "b", mvps[0].ID)
	assert.Equal(t, "a", mvps[1].ID)
}

func TestMvpServiceImportCatalog(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMvpService(t)

	existing := amonRa()
	existing.ID = "1511"
	require.NoError(t, svc.Create(ctx, existing))
	dead := domain.MvpDead
	_, err := svc.Update(ctx, "1511", domain.MvpUpdate{Status: &dead})
	require.NoError(t, err)

	catalog := []domain.Mvp{
		{MobID: 1511, Name: "Amon Ra", MapName: "moc_pryd06", SpawnDelay: 70, SpawnVariance: 10},
		{MobID: 1039, Name: "Baphomet", MapName: "prt_maze03", SpawnDelay: 120, SpawnVariance: 10},
	}
	result, err := svc.ImportCatalog(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1}, *result)

	amon, err := svc.Get(ctx, "1511")
	require.NoError(t, err)
	assert.Equal(t, 70, amon.SpawnDelay)
	assert.Equal(t, domain.MvpDead, amon.Status, "live state survives import")

	baph, err := svc.Get(ctx, "1039")
	require.NoError(t, err)
	assert.Equal(t, domain.MvpAlive, baph.Status)

	again, err := svc.ImportCatalog(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Unchanged: 2}, *again)

	_, err = svc.ImportCatalog(ctx, []domain.Mvp{{MobID: 1}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	bus := NewEventBus()
	events := make(chan Event, 4)
	bus.Subscribe(events)
	svc := NewUserService(memory.New(), bus, zaptest.NewLogger(t))
	svc.now = func() time.Time { return fixedNow }

	t.Run("missing user is nil", func(t *testing.T) {
		u, err := svc.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("update merges preferences", func(t *testing.T) {
		light, name := "light", "Alice"
		_, err := svc.UpdatePreferences(ctx, "alice", domain.UserUpdate{Theme: &light})
		require.NoError(t, err)
		u, err := svc.UpdatePreferences(ctx, "alice", domain.UserUpdate{DisplayName: &name})
		require.NoError(t, err)

		assert.Equal(t, "light", u.Theme)
		assert.Equal(t, domain.DefaultMvpLayout, u.MvpLayout)
		require.NotNil(t, u.DisplayName)
		assert.Equal(t, "Alice", *u.DisplayName)
		assert.Equal(t, EventUserUpdated, (<-events).Type)
	})

	t.Run("list sets uid", func(t *testing.T) {
		users, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].UID)
	})
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)
	bus.Unsubscribe(ch)
	bus.Publish(Event{Type: EventMvpCreated})
	assert.Empty(t, ch)

	var nilBus *EventBus
	nilBus.Publish(Event{Type: EventMvpCreated})
}
