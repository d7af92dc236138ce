package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ekisa-team/some/internal/xfs"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
)

// HuggingFaceDownloader downloads single files from the Hugging Face Hub
// with the hf CLI.
type HuggingFaceDownloader struct {
	Runner     CommandRunner
	Binary     string
	Token      string
	RetryDelay time.Duration
	MaxRetries int
	Timeout    time.Duration
}

// NewHuggingFaceDownloader returns a downloader using the hf binary on PATH.
func NewHuggingFaceDownloader(token string) *HuggingFaceDownloader {
	return &HuggingFaceDownloader{
		Runner:     ExecCommandRunner{},
		Binary:     "hf",
		Token:      token,
		RetryDelay: defaultRetryDelay,
		MaxRetries: defaultMaxRetries,
		Timeout:    defaultTimeout,
	}
}

// Download fetches loc into targetDir/<repo>/ and returns the local file path.
// A file already present is reused.
func (d *HuggingFaceDownloader) Download(ctx context.Context, loc Location, targetDir string) (string, error) {
	if loc.Scheme != SchemeHuggingFace {
		return "", fmt.Errorf("%w: %s is not a Hugging Face location", ErrInvalidLocation, loc)
	}

	dir := filepath.Join(targetDir, "hf", filepath.FromSlash(loc.Repo))
	if loc.Revision != "" {
		dir = filepath.Join(dir, "@"+loc.Revision)
	}
	local := filepath.Join(dir, filepath.FromSlash(loc.Path))

	if _, err := os.Stat(local); err == nil {
		slog.Debug("Using cached download", "location", loc.String(), "path", local)
		return local, nil
	}

	if err := xfs.EnsureDir(dir); err != nil {
		return "", err
	}

	args := []string{"download", loc.Repo, loc.Path, "--local-dir", dir}
	if loc.Revision != "" {
		args = append(args, "--revision", loc.Revision)
	}
	if d.Token != "" {
		args = append(args, "--token", d.Token)
	}

	var lastErr error
	for attempt := range max(d.MaxRetries, 1) {
		if attempt > 0 {
			slog.Info("Retrying download", "repo", loc.Repo, "attempt", attempt+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("download canceled: %w", ctx.Err())
			case <-time.After(d.RetryDelay):
			}
		} else {
			slog.Info("Downloading checkpoint", "repo", loc.Repo, "file", loc.Path, "path", dir)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		output, err := d.Runner.Run(attemptCtx, d.Binary, args...)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			if _, statErr := os.Stat(local); statErr != nil {
				return "", fmt.Errorf("hf download finished but %s is missing: %w", local, statErr)
			}
			slog.Info("Checkpoint downloaded successfully", "repo", loc.Repo, "path", local, "attempt", attempt+1)
			return local, nil
		}

		lastErr = err
		slog.Error("Failed to download checkpoint", "repo", loc.Repo, "attempt", attempt+1, "error", err, "output", string(output))

		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("download canceled: %w", err)
		}
		if timedOut {
			slog.Warn("Download timed out", "repo", loc.Repo, "attempt", attempt+1)
		}
	}

	return "", fmt.Errorf("hf download %s: %w", loc, lastErr)
}
