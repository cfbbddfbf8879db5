package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bigfish/internal/domain"
	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// MvpService provides business logic for MVP tracking
type MvpService struct {
	store    repository.DocumentStore
	eventBus *EventBus
	logger   *zap.Logger
	now      func() time.Time
}

// NewMvpService creates a new MVP service
func NewMvpService(store repository.DocumentStore, eventBus *EventBus, logger *zap.Logger) *MvpService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MvpService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func mvpCollection() tree.Path {
	return tree.Root().Collection(domain.MvpCollection)
}

// List returns every MVP in store order
func (s *MvpService) List(ctx context.Context) ([]*domain.Mvp, error) {
	mvps := []*domain.Mvp{}
	for doc, err := range s.store.Documents(ctx, mvpCollection()) {
		if err != nil {
			return nil, fmt.Errorf("list mvps: %w", err)
		}
		m, err := domain.MvpFromFields(doc.ID, doc.Fields)
		if err != nil {
			s.logger.Warn("skipping malformed mvp", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		mvps = append(mvps, m)
	}
	return mvps, nil
}

// Get retrieves a single MVP by ID
func (s *MvpService) Get(ctx context.Context, id string) (*domain.Mvp, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	fields, err := s.store.Get(ctx, mvpCollection().Doc(id))
	if err != nil {
		return nil, fmt.Errorf("mvp %s: %w", id, err)
	}
	return domain.MvpFromFields(id, fields)
}

// Create stores a new MVP. An empty ID is replaced with a random one; an
// ID that is already stored yields ErrConflict.
func (s *MvpService) Create(ctx context.Context, m *domain.Mvp) error {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	} else {
		_, err := s.store.Get(ctx, m.Path())
		switch {
		case err == nil:
			return fmt.Errorf("mvp %s: %w", m.ID, ErrConflict)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("create mvp %s: %w", m.ID, err)
		}
	}

	if err := s.store.Upsert(ctx, m.Path(), m.ToFields()); err != nil {
		return fmt.Errorf("create mvp %s: %w", m.ID, err)
	}

	s.eventBus.Publish(Event{Type: EventMvpCreated, Payload: m})
	return nil
}

// Update applies live-state changes to an existing MVP
func (s *MvpService) Update(ctx context.Context, id string, upd domain.MvpUpdate) (*domain.Mvp, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.ApplyUpdate(upd, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, m.Path(), m.ToFields()); err != nil {
		return nil, fmt.Errorf("update mvp %s: %w", id, err)
	}

	s.logger.Debug("mvp updated", zap.String("id", id), zap.String("status", string(m.Status)))
	s.eventBus.Publish(Event{Type: EventMvpUpdated, Payload: m})
	return m, nil
}

// ImportResult summarizes a catalog import
type ImportResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// ImportCatalog inserts missing catalog entries and refreshes the spawn
// data of existing ones. Live state (status, kill times, notes) is kept.
// Entries without an ID are keyed by mob id.
func (s *MvpService) ImportCatalog(ctx context.Context, entries []domain.Mvp) (*ImportResult, error) {
	result := &ImportResult{}
	for i := range entries {
		entry := entries[i]
		if entry.ID == "" {
			entry.ID = strconv.Itoa(entry.MobID)
		}
		entry.Normalize()
		if err := entry.Validate(); err != nil {
			return result, fmt.Errorf("catalog entry %d (%s): %w", i, entry.Name, err)
		}

		existing, err := s.Get(ctx, entry.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			entry.Status = domain.MvpAlive
			entry.LastKilled, entry.RespawnAt = nil, nil
			if err := s.store.Upsert(ctx, entry.Path(), entry.ToFields()); err != nil {
				return result, fmt.Errorf("import mvp %s: %w", entry.ID, err)
			}
			result.Created++
			continue
		case err != nil:
			return result, err
		}

		if existing.MobID == entry.MobID && existing.Name == entry.Name && existing.MapName == entry.MapName &&
			existing.SpawnDelay == entry.SpawnDelay && existing.SpawnVariance == entry.SpawnVariance {
			result.Unchanged++
			continue
		}
		existing.MobID = entry.MobID
		existing.Name = entry.Name
		existing.MapName = entry.MapName
		existing.SpawnDelay = entry.SpawnDelay
		existing.SpawnVariance = entry.SpawnVariance
		if err := s.store.Upsert(ctx, existing.Path(), existing.ToFields()); err != nil {
			return result, fmt.Errorf("import mvp %s: %w", entry.ID, err)
		}
		result.Updated++
	}

	s.logger.Info("catalog imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged))
	s.eventBus.Publish(Event{Type: EventCatalogImported, Payload: result})
	return result, nil
}
