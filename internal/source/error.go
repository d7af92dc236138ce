package source

import "errors"

// Error definitions for the source package.
var (
	ErrInvalidLocation = errors.New("invalid source location")
	ErrNoDownloader    = errors.New("no downloader configured for scheme")
)
