package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client abstracts the S3 API operations used by S3Downloader.
// The *s3.Client type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config configures NewS3Client. Empty credentials fall back to the
// standard AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN
// variables.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UsePathStyle    bool
}

// NewS3Client builds an S3 client from static configuration.
func NewS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	creds := aws.Credentials{
		AccessKeyID:     firstNonEmpty(cfg.AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID")),
		SecretAccessKey: firstNonEmpty(cfg.SecretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY")),
		SessionToken:    firstNonEmpty(cfg.SessionToken, os.Getenv("AWS_SESSION_TOKEN")),
		Source:          "some",
	}

	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if creds.AccessKeyID != "" {
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// S3Downloader copies objects into the local cache.
type S3Downloader struct {
	client S3Client
}

// NewS3Downloader creates a downloader over client.
func NewS3Downloader(client S3Client) *S3Downloader {
	return &S3Downloader{client: client}
}

// Download fetches loc into targetDir/s3/<bucket>/<key>. A cached copy whose
// size matches the object is reused.
func (d *S3Downloader) Download(ctx context.Context, loc Location, targetDir string) (string, error) {
	if loc.Scheme != SchemeS3 {
		return "", fmt.Errorf("%w: %s is not an S3 location", ErrInvalidLocation, loc)
	}

	local := filepath.Join(targetDir, "s3", loc.Bucket, filepath.FromSlash(loc.Path))

	head, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", fmt.Errorf("source: %s: %w", loc, os.ErrNotExist)
		}
		return "", fmt.Errorf("source: head %s: %w", loc, err)
	}

	if fi, err := os.Stat(local); err == nil && head.ContentLength != nil && fi.Size() == *head.ContentLength {
		slog.Debug("Using cached download", "location", loc.String(), "path", local)
		return local, nil
	}

	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", fmt.Errorf("source: %s: %w", loc, os.ErrNotExist)
		}
		return "", fmt.Errorf("source: get %s: %w", loc, err)
	}
	defer out.Body.Close()

	slog.Info("Downloading checkpoint", "location", loc.String(), "path", local)
	if err := writeAtomic(local, out.Body); err != nil {
		return "", err
	}
	return local, nil
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func writeAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
