package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ekisa-team/some/internal/envvar"
	"github.com/ekisa-team/some/internal/xfs"
)

// DefaultCachePath returns the default path for downloaded checkpoints and
// cached inference results.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "some", "cache")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "some", "cache")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "some")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "some")
		}
		return filepath.Join(home, ".cache", "some")
	}
}

// ResolveCachePath returns the cache directory.
// Precedence:
// 1. explicit argument (e.g. a CLI flag).
// 2. SOME_CACHE_PATH environment variable.
// 3. Default cache path.
func ResolveCachePath(explicit string) string {
	if explicit != "" {
		return xfs.ExpandTilde(explicit)
	}
	if p := os.Getenv(envvar.SomeCachePath); p != "" {
		return xfs.ExpandTilde(p)
	}
	return DefaultCachePath()
}
