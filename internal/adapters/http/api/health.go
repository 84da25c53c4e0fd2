package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/arcade/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const pingTimeout = 2 * time.Second

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pinger  Pinger
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{
		pinger:  p,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth handles GET /health. The process is UP whenever it answers;
// the store field reports whether the backend responded to a ping.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	store := "UP"
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			store = "DOWN"
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "UP",
		Store:     store,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMetrics serves the Prometheus registry on /healthz and /metrics.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
