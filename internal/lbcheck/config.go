// Package lbcheck fetches leaderboards from a running server and checks
// their ordering, uniqueness and limit invariants.
package lbcheck

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Default configuration constants.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultLimit   = 10
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrInvalidConfig is returned for unusable settings.
	ErrInvalidConfig = errors.New("invalid lbcheck config")
	// ErrUnexpectedStatus is returned for non-200 responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrUnhealthy is returned when /health does not report UP.
	ErrUnhealthy = errors.New("service unhealthy")
)

// Config holds the check run settings.
type Config struct {
	BaseURL string        // Base URL of the service
	Limit   int           // Limit passed to every leaderboard request
	Workers int           // Concurrent per-game fetches
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every fetched board
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Limit:   DefaultLimit,
		Workers: runtime.NumCPU(),
		Timeout: DefaultTimeout,
	}
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: url must not be empty", ErrInvalidConfig)
	case c.Limit <= 0:
		return fmt.Errorf("%w: limit must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}
