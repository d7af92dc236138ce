package config

import "errors"

// Error definitions for the config package.
var (
	ErrMissingKey = errors.New("required configuration key missing")
)
