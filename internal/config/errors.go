package config

import (
	"errors"
)

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig reports a setting the arcade server cannot run with.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig reports a config file or environment that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
