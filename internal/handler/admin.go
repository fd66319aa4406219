package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/middleware"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// AdminHandler exposes stored thread history to operators.
type AdminHandler struct {
	threads *service.ThreadService
	logger  *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(threads *service.ThreadService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		threads: threads,
		logger:  log.Component("admin"),
	}
}

// GetHistory handles GET /admin/history/{key}
func (h *AdminHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := middleware.ValidateThreadKey(key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_key", err.Error())
		return
	}

	history, err := h.threads.Get(r.Context(), key)
	if errors.Is(err, service.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "thread not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load history", zap.String("thread_key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// DeleteHistory handles DELETE /admin/history/{key}
func (h *AdminHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := middleware.ValidateThreadKey(key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_key", err.Error())
		return
	}

	if err := h.threads.Clear(r.Context(), key); err != nil {
		h.logger.Error("failed to clear history", zap.String("thread_key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to clear history")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
