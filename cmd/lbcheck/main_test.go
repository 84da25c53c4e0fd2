package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/arcade/internal/adapters/http/api"
	"github.com/okian/arcade/internal/adapters/repository"
	service "github.com/okian/arcade/internal/app"
	"github.com/okian/arcade/internal/domain/model"
	"github.com/okian/arcade/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArcade(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStore(
		repository.WithProfiles(model.UserProfile{ID: 1, Username: "alice", Level: 1}),
		repository.WithRecords(model.ScoreRecord{UserID: 1, GameCode: "quiz", BestScore: model.Int64(10)}),
	)
	svc := service.New(service.WithStore(store), service.WithLogger(logger.Nop()))
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)

	srv := httptest.NewServer(api.NewServer(svc, svc, api.Limits{Default: 10, Max: 100}, nil).Handler(context.Background()))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Passes(t *testing.T) {
	srv := newArcade(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--url", srv.URL, "--workers", "1"}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "PASS  game quiz")
	assert.Contains(t, stdout.String(), "1 games, 3 rows, 0 failed")
}

func TestRun_FailedCheckExitsNonZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"UP","store":"UP"}`))
	})
	mux.HandleFunc("GET /api/leaderboard/games/codes", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["quiz","quiz"]`))
	})
	mux.HandleFunc("GET /api/leaderboard/game/quiz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rows":[],"gameCode":"quiz"}`))
	})
	mux.HandleFunc("GET /api/leaderboard/games", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("GET /api/leaderboard/global", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"--url", srv.URL}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "FAIL  game codes are unique")
	assert.NotContains(t, stderr.String(), "lbcheck: exit")
}

func TestRun_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"--url", url, "--timeout", "500ms"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "lbcheck: service health check failed")
}

func TestRun_RejectsArgsAndBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"extra"}, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"--limit", "0"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "limit must be positive")
}
