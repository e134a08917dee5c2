package config

import "errors"

var (
	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidCatalog is returned when a catalog file cannot be applied.
	ErrInvalidCatalog = errors.New("invalid plan catalog file")
)
