package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bigfish/internal/domain"
	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// UserService manages user preferences
type UserService struct {
	store    repository.DocumentStore
	eventBus *EventBus
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store repository.DocumentStore, eventBus *EventBus, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the user, or nil when none is stored under uid
func (s *UserService) Get(ctx context.Context, uid string) (*domain.User, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrValidation)
	}
	fields, err := s.store.Get(ctx, tree.Root().Collection(domain.UserCollection).Doc(uid))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", uid, err)
	}
	return domain.UserFromFields(uid, fields)
}

// List returns every user with its uid set
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	for doc, err := range s.store.Documents(ctx, tree.Root().Collection(domain.UserCollection)) {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		u, err := domain.UserFromFields(doc.ID, doc.Fields)
		if err != nil {
			s.logger.Warn("skipping malformed user", zap.String("uid", doc.ID), zap.Error(err))
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdatePreferences merges the provided preferences into the stored user,
// creating it with defaults when absent
func (s *UserService) UpdatePreferences(ctx context.Context, uid string, upd domain.UserUpdate) (*domain.User, error) {
	u, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = domain.NewUser(uid)
	}
	if err := u.ApplyUpdate(upd, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, u.Path(), u.ToFields()); err != nil {
		return nil, fmt.Errorf("update user %s: %w", uid, err)
	}

	s.eventBus.Publish(Event{Type: EventUserUpdated, Payload: u})
	return u, nil
}
