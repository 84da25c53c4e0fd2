package repository

import (
	"errors"

	"github.com/okian/arcade/internal/domain/ranking"
)

// Sentinel kinds for store errors.
var (
	// ErrNotFound is returned by FindByID for unknown users. It is the same
	// value the ranking engine checks for when it drops dangling rows.
	ErrNotFound       = ranking.ErrUserNotFound
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrInvalidRecord  = errors.New("invalid score record")
)
