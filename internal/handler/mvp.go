package handler

import (
	"net/http"

	"go.uber.org/zap"

	"bigfish/internal/domain"
	"bigfish/internal/service"
)

// MvpHandler handles MVP requests
type MvpHandler struct {
	svc    *service.MvpService
	logger *zap.Logger
}

// NewMvpHandler creates a new MVP handler
func NewMvpHandler(svc *service.MvpService, logger *zap.Logger) *MvpHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MvpHandler{svc: svc, logger: logger}
}

// List returns all tracked MVPs
func (h *MvpHandler) List(w http.ResponseWriter, r *http.Request) {
	mvps, err := h.svc.List(r.Context())
	if err != nil {
		failed(w, h.logger, "Failed to list MVPs", err)
		return
	}
	writeJSON(w, h.logger, mvps, http.StatusOK)
}

// Get returns a single MVP
func (h *MvpHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		failed(w, h.logger, "MVP not found", err)
		return
	}
	writeJSON(w, h.logger, m, http.StatusOK)
}

// Create adds a new MVP
func (h *MvpHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m domain.Mvp
	if err := decodeBody(r, &m); err != nil {
		failed(w, h.logger, "Invalid request body", err)
		return
	}
	if err := h.svc.Create(r.Context(), &m); err != nil {
		failed(w, h.logger, "Failed to create MVP", err)
		return
	}
	writeJSON(w, h.logger, m, http.StatusCreated)
}

// Update reports status, kill time or notes for an MVP
func (h *MvpHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd domain.MvpUpdate
	if err := decodeBody(r, &upd); err != nil {
		failed(w, h.logger, "Invalid request body", err)
		return
	}
	m, err := h.svc.Update(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		failed(w, h.logger, "Failed to update MVP", err)
		return
	}
	writeJSON(w, h.logger, m, http.StatusOK)
}
