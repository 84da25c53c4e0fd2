// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/arcade/pkg/logger"
)

// maxMessageLen caps error messages returned to clients.
const maxMessageLen = 300

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	Pinger
}

// Limits configures the limit query parameter.
type Limits struct {
	Default int
	Max     int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	logger             logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, limits Limits, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, limits, log),
		logger:             log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	lb := s.leaderboardHandler
	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /api/leaderboard/game/{code}", MetricsMiddleware(lb.HandleGame, "leaderboard_game"))
	mux.HandleFunc("GET /api/leaderboard/games", MetricsMiddleware(lb.HandleTopPerGame, "leaderboard_games"))
	mux.HandleFunc("GET /api/leaderboard/games/codes", MetricsMiddleware(lb.HandleGameCodes, "leaderboard_game_codes"))
	mux.HandleFunc("GET /api/leaderboard/global", MetricsMiddleware(lb.HandleGlobal, "leaderboard_global"))
}

// Handler registers the routes on a fresh mux and wraps it with request IDs.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return RequestIDMiddleware(mux)
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the JSON error body. Server errors never expose
// the underlying message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := "Unexpected error"
	if status < http.StatusInternalServerError && err != nil {
		msg = sanitizeMessage(err.Error())
	}
	writeJSON(w, status, errorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     http.StatusText(status),
		Code:      code,
		Message:   msg,
		Path:      r.URL.Path,
	})
}

// sanitizeMessage collapses whitespace and truncates long messages to
// maxMessageLen runes.
func sanitizeMessage(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if runes := []rune(msg); len(runes) > maxMessageLen {
		return string(runes[:maxMessageLen]) + "..."
	}
	return msg
}

func isBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
