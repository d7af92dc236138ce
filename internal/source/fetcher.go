package source

import (
	"context"
	"fmt"
	"os"
)

// Downloader fetches a remote location into targetDir and returns the local
// path.
type Downloader interface {
	Download(ctx context.Context, loc Location, targetDir string) (string, error)
}

// Fetcher resolves locations to local files, downloading remote ones into a
// cache directory.
type Fetcher struct {
	cacheDir    string
	downloaders map[Scheme]Downloader
}

// NewFetcher creates a fetcher that caches downloads under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{cacheDir: cacheDir, downloaders: make(map[Scheme]Downloader)}
}

// WithDownloader registers d for scheme and returns f.
func (f *Fetcher) WithDownloader(scheme Scheme, d Downloader) *Fetcher {
	f.downloaders[scheme] = d
	return f
}

// Fetch returns a local path for raw.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (string, error) {
	loc, err := Parse(raw)
	if err != nil {
		return "", err
	}

	if loc.Scheme == SchemeLocal {
		if _, err := os.Stat(loc.Path); err != nil {
			return "", fmt.Errorf("source: %w", err)
		}
		return loc.Path, nil
	}

	d, ok := f.downloaders[loc.Scheme]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoDownloader, loc.Scheme)
	}
	return d.Download(ctx, loc, f.cacheDir)
}
