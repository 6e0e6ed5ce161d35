package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/universal-product-parser/internal/engine"
	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

type Handlers struct {
	engine *engine.Engine
	store  patterns.Store
	logger *slog.Logger
}

func NewHandlers(eng *engine.Engine, store patterns.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine: eng,
		store:  store,
		logger: logger,
	}
}

// ExtractRequest represents a single extraction request
type ExtractRequest struct {
	URL      string `json:"url"`
	Strategy string `json:"strategy,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// ExtractResponse wraps the product record with request bookkeeping
type ExtractResponse struct {
	Product  *models.ProductRecord `json:"product"`
	Duration string                `json:"duration"`
}

// Extract handles product extraction requests
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	opts := &engine.Options{}
	switch req.Strategy {
	case "":
	case string(models.StrategyDirect):
		opts.ForceStrategy = models.StrategyDirect
	case string(models.StrategyRendered):
		opts.ForceStrategy = models.StrategyRendered
	default:
		h.respondError(w, http.StatusBadRequest, "strategy must be direct or rendered")
		return
	}

	if req.Timeout != "" {
		timeout, err := time.ParseDuration(req.Timeout)
		if err != nil || timeout <= 0 {
			h.respondError(w, http.StatusBadRequest, "timeout must be a positive duration")
			return
		}
		opts.Timeout = timeout
	}

	start := time.Now()
	record := h.engine.Extract(r.Context(), req.URL, opts)

	// Extraction failures still produce a record; the client inspects
	// confidence and the error field rather than the HTTP status.
	h.respondJSON(w, http.StatusOK, ExtractResponse{
		Product:  record,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	})
}

// GetMetrics handles engine counter retrieval
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.Metrics())
}

// GetPattern returns the learned selectors for one domain
func (h *Handlers) GetPattern(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if domain == "" {
		h.respondError(w, http.StatusBadRequest, "domain is required")
		return
	}

	entry, ok := h.store.Get(domain)
	if !ok {
		h.respondError(w, http.StatusNotFound, "no patterns learned for domain")
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

// Health handles liveness checks
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
