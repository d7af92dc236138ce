// Package source fetches checkpoints and configurations named by a location
// string into the local filesystem.
//
// Supported locations:
//
//	/path/to/model.ckpt, ~/models/model.ckpt   local file
//	hf://owner/repo/path/in/repo[@revision]     Hugging Face Hub file
//	s3://bucket/key                             S3 or S3-compatible object
package source

import (
	"fmt"
	"strings"

	"github.com/ekisa-team/some/internal/xfs"
)

// Scheme identifies where a location lives.
type Scheme string

const (
	SchemeLocal       Scheme = "local"
	SchemeHuggingFace Scheme = "hf"
	SchemeS3          Scheme = "s3"
)

// Location is a parsed source location.
type Location struct {
	Scheme Scheme

	// Path is the local path (SchemeLocal), the file inside the repository
	// (SchemeHuggingFace) or the object key (SchemeS3).
	Path string

	// Repo is the Hugging Face repository, "owner/name".
	Repo string

	// Revision is an optional Hugging Face branch, tag or commit.
	Revision string

	// Bucket is the S3 bucket.
	Bucket string
}

// String renders the location in the form Parse accepts.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeHuggingFace:
		s := "hf://" + l.Repo + "/" + l.Path
		if l.Revision != "" {
			s += "@" + l.Revision
		}
		return s
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Path
	default:
		return l.Path
	}
}

// Parse parses a location string.
func Parse(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}

	switch {
	case strings.HasPrefix(raw, "hf://"):
		return parseHuggingFace(strings.TrimPrefix(raw, "hf://"))
	case strings.HasPrefix(raw, "s3://"):
		return parseS3(strings.TrimPrefix(raw, "s3://"))
	case strings.Contains(raw, "://"):
		return Location{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidLocation, raw)
	default:
		return Location{Scheme: SchemeLocal, Path: xfs.ExpandTilde(raw)}, nil
	}
}

func parseHuggingFace(rest string) (Location, error) {
	var rev string
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest, rev = rest[:i], rest[i+1:]
		if rev == "" {
			return Location{}, fmt.Errorf("%w: empty revision in hf://%s@", ErrInvalidLocation, rest)
		}
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("%w: want hf://owner/repo/file, got hf://%s", ErrInvalidLocation, rest)
	}

	return Location{
		Scheme:   SchemeHuggingFace,
		Repo:     parts[0] + "/" + parts[1],
		Path:     parts[2],
		Revision: rev,
	}, nil
}

func parseS3(rest string) (Location, error) {
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("%w: want s3://bucket/key, got s3://%s", ErrInvalidLocation, rest)
	}
	return Location{Scheme: SchemeS3, Bucket: bucket, Path: key}, nil
}
