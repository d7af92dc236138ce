// Package env determines the environment the process runs in.
package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/some/internal/envvar"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// FromEnv reads SOME_ENV. Anything other than "production" (or "prod") is
// treated as development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.SomeEnv))
}

// Parse maps a string to an Environment.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}
