package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StoragePinger checks that the backing store is reachable.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// MetaHandler serves the unauthenticated service endpoints: health and
// the API index.
type MetaHandler struct {
	responder responder
	storage   StoragePinger
	now       func() time.Time
}

func NewMetaHandler(storage StoragePinger, now func() time.Time, logger *slog.Logger) *MetaHandler {
	if now == nil {
		now = time.Now
	}
	return &MetaHandler{responder: newResponder(defaultLogger(logger)), storage: storage, now: now}
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			resp.Status = "DEGRADED"
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MetaHandler) APIInfo(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, apiInfoResponse{
		Message: "Mediation Platform API",
		Endpoints: map[string]string{
			"auth":     "/auth",
			"cases":    "/cases",
			"sessions": "/sessions",
			"health":   "/health",
		},
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type apiInfoResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}
