package lbcheck_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/arcade/internal/adapters/http/api"
	"github.com/okian/arcade/internal/adapters/repository"
	service "github.com/okian/arcade/internal/app"
	"github.com/okian/arcade/internal/domain/model"
	"github.com/okian/arcade/internal/lbcheck"
	"github.com/okian/arcade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(user int64, game string, best, played int64) model.ScoreRecord {
	return model.ScoreRecord{UserID: user, GameCode: game, BestScore: model.Int64(best), PlayedCount: model.Int64(played)}
}

// arcadeServer serves the real API over a seeded memory store.
func arcadeServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStore(
		repository.WithProfiles(
			model.UserProfile{ID: 1, Username: "alice", Level: 3},
			model.UserProfile{ID: 2, Username: "bob", Level: 5},
		),
		repository.WithRecords(
			rec(1, "quiz", 50, 4),
			rec(2, "quiz", 80, 2),
			rec(1, "flappy", 30, 7),
			rec(3, "snake", 99, 1), // user 3 has no profile
		),
	)
	svc := service.New(service.WithStore(store), service.WithLogger(logger.Nop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	srv := httptest.NewServer(api.NewServer(svc, svc, api.Limits{Default: 10, Max: 100}, nil).Handler(context.Background()))
	t.Cleanup(srv.Close)
	return srv
}

func config(url string) lbcheck.Config {
	cfg := lbcheck.DefaultConfig()
	cfg.BaseURL = url
	cfg.Workers = 2
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestRun(t *testing.T) {
	Convey("Given a running arcade server", t, func() {
		srv := arcadeServer(t)

		Convey("When checking it", func() {
			report, err := lbcheck.Run(context.Background(), config(srv.URL), nil)

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeTrue)
				So(report.Games, ShouldEqual, 3)
				// 2 quiz + 1 flappy, 2 per-game rows, 2 totals.
				So(report.Rows, ShouldEqual, 7)
				So(len(report.Results), ShouldEqual, 6)
			})
		})

		Convey("When the limit is small", func() {
			cfg := config(srv.URL)
			cfg.Limit = 1
			report, err := lbcheck.Run(context.Background(), cfg, nil)

			Convey("Then the limit is honored everywhere", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a server returning an unsorted total leaderboard", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"UP","store":"UP"}`))
		})
		mux.HandleFunc("GET /api/leaderboard/games/codes", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		mux.HandleFunc("GET /api/leaderboard/games", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		mux.HandleFunc("GET /api/leaderboard/global", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"username":"a","totalScore":1},{"username":"b","totalScore":5}]`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When checking it", func() {
			report, err := lbcheck.Run(context.Background(), config(srv.URL), nil)

			Convey("Then the total score check fails", func() {
				So(err, ShouldBeNil)
				So(report.Passed(), ShouldBeFalse)
				So(report.Failures()[0].Name, ShouldEqual, "total score")
			})
		})
	})

	Convey("Given a server whose store is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"UP","store":"DOWN"}`))
		}))
		defer srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := lbcheck.Run(context.Background(), config(srv.URL), nil)
			So(errors.Is(err, lbcheck.ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given a server answering with errors", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		Convey("Then the status is reported", func() {
			_, err := lbcheck.Run(context.Background(), config(srv.URL), nil)
			So(errors.Is(err, lbcheck.ErrUnexpectedStatus), ShouldBeTrue)
		})
	})

	Convey("Given an invalid config", t, func() {
		cfg := config("http://localhost")
		cfg.Limit = 0

		Convey("Then Run refuses it", func() {
			_, err := lbcheck.Run(context.Background(), cfg, nil)
			So(errors.Is(err, lbcheck.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
