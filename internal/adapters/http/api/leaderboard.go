package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/arcade/internal/domain/types"
	"github.com/okian/arcade/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopForGame(ctx context.Context, gameCode string, limit int) (types.GameLeaderboard, error)
	TopAcrossAllGames(ctx context.Context, limit int) ([]types.GameRow, error)
	TotalScoreLeaderboard(ctx context.Context, limit int) ([]types.TotalRow, error)
	GameCodes(ctx context.Context) ([]string, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	limits Limits
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, limits Limits, log logger.Logger) *LeaderboardHandler {
	if limits.Max <= 0 {
		limits.Max = 100
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = min(10, limits.Max)
	}
	return &LeaderboardHandler{deps: deps, limits: limits, logger: log}
}

// parseLimit reads ?limit. Absent means the default. Zero and negative
// values pass through and produce an empty list.
func (h *LeaderboardHandler) parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.limits.Default, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer, got %q", ErrBadRequest, raw)
	}
	if n > h.limits.Max {
		return 0, fmt.Errorf("%w: limit must not exceed %d", ErrBadRequest, h.limits.Max)
	}
	return n, nil
}

// HandleGame handles GET /api/leaderboard/game/{code}?limit=N.
func (h *LeaderboardHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}
	board, err := h.deps.TopForGame(r.Context(), code, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleTopPerGame handles GET /api/leaderboard/games?limit=N.
func (h *LeaderboardHandler) HandleTopPerGame(w http.ResponseWriter, r *http.Request) {
	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := h.deps.TopAcrossAllGames(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGameCodes handles GET /api/leaderboard/games/codes.
func (h *LeaderboardHandler) HandleGameCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.deps.GameCodes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

// HandleGlobal handles GET /api/leaderboard/global?limit=N.
func (h *LeaderboardHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	limit, err := h.parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := h.deps.TotalScoreLeaderboard(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *LeaderboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if isBadRequest(err) {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.logger.Error(r.Context(), "leaderboard request failed",
		logger.String("path", r.URL.Path),
		logger.String("requestID", RequestID(r.Context())),
		logger.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "internal_error", err)
}
