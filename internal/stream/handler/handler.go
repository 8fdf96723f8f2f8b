// Package handler exposes the Orchestrator over HTTP. The response status
// mirrors the envelope status and the body is the envelope itself.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
)

const maxEventBytes = 1 << 20

// Invoker runs one invocation.
type Invoker interface {
	Invoke(ctx context.Context, event map[string]any) stream.Envelope
}

type Handler struct {
	invoker Invoker
	logger  *slog.Logger
}

func New(invoker Invoker) *Handler {
	return &Handler{
		invoker: invoker,
		logger:  logger.WithComponent("invoke-handler"),
	}
}

// Invoke decodes the request body as an event and runs it. A body that is
// not a JSON object is rejected before the Orchestrator is reached.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	var event map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&event); err != nil {
		h.writeJSON(w, http.StatusBadRequest, stream.Envelope{
			StatusCode: http.StatusBadRequest,
			Body:       "invalid JSON body",
		})
		return
	}
	env := h.invoker.Invoke(r.Context(), event)
	h.writeJSON(w, env.StatusCode, env)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
