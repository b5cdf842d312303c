package handler

import (
	"context"
	"net/http"
	"time"

	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
)

// Messages exposes the visible status messages.
type Messages interface {
	Messages() []model.StatusMessage
}

// Pinger checks that the OCR service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	messages Messages
	backend  Pinger
	timeout  time.Duration
}

func NewStatusHandler(messages Messages, backend Pinger, timeout time.Duration) *StatusHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &StatusHandler{messages: messages, backend: backend, timeout: timeout}
}

func (h *StatusHandler) Messages(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, h.messages.Messages())
}

// Backend reports whether the OCR service health endpoint answers.
func (h *StatusHandler) Backend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.backend.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, model.APIResponse{
			Success: false,
			Data:    map[string]string{"backend": "down"},
			Error: &model.APIError{
				Code:    "BACKEND_UNAVAILABLE",
				Message: ocrclient.Describe(err),
			},
		})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"backend": "up"})
}
