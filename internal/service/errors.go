package service

import (
	"errors"

	"bigfish/internal/domain"
	"bigfish/internal/repository"
)

var (
	// ErrValidation wraps bad input; handlers answer 400
	ErrValidation = domain.ErrValidation

	// ErrNotFound is returned for missing MVPs; handlers answer 404
	ErrNotFound = repository.ErrNotFound

	// ErrConflict is returned when creating an MVP whose ID is taken; handlers answer 409
	ErrConflict = errors.New("already exists")
)
