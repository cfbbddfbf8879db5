package handler

import (
	"net/http"

	"go.uber.org/zap"

	"bigfish/internal/domain"
	"bigfish/internal/service"
)

// UserHandler handles user preference requests
type UserHandler struct {
	svc    *service.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{svc: svc, logger: logger}
}

// List returns every user
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		failed(w, h.logger, "Failed to list users", err)
		return
	}
	writeJSON(w, h.logger, users, http.StatusOK)
}

// Get returns a user's preferences. Unknown users get an empty object so
// the client falls back to its defaults.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), r.PathValue("uid"))
	if err != nil {
		failed(w, h.logger, "Failed to get user", err)
		return
	}
	if u == nil {
		writeJSON(w, h.logger, struct{}{}, http.StatusOK)
		return
	}
	writeJSON(w, h.logger, u, http.StatusOK)
}

// Update merges the provided preferences
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd domain.UserUpdate
	if err := decodeBody(r, &upd); err != nil {
		failed(w, h.logger, "Invalid request body", err)
		return
	}
	u, err := h.svc.UpdatePreferences(r.Context(), r.PathValue("uid"), upd)
	if err != nil {
		failed(w, h.logger, "Failed to update user", err)
		return
	}
	writeJSON(w, h.logger, u, http.StatusOK)
}
