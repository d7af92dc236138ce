package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/source"
)

// fetchFlags locate checkpoints given as local paths, hf:// or s3:// URLs.
type fetchFlags struct {
	cacheDir   string
	hfToken    string
	s3Region   string
	s3Endpoint string
}

func (f *fetchFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.cacheDir, "cache-dir", "", "cache directory for downloads and results")
	fs.StringVar(&f.hfToken, "hf-token", os.Getenv("HF_TOKEN"), "Hugging Face token")
	fs.StringVar(&f.s3Region, "s3-region", "", "S3 region")
	fs.StringVar(&f.s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
}

// dir resolves the cache root.
func (f *fetchFlags) dir() string {
	return config.ResolveCachePath(f.cacheDir)
}

// fetch returns a local path for the checkpoint at raw, downloading it into
// the cache when it is remote.
func (f *fetchFlags) fetch(ctx context.Context, raw string) (string, error) {
	fetcher := source.NewFetcher(filepath.Join(f.dir(), "checkpoints")).
		WithDownloader(source.SchemeHuggingFace, source.NewHuggingFaceDownloader(f.hfToken)).
		WithDownloader(source.SchemeS3, source.NewS3Downloader(source.NewS3Client(source.S3Config{
			Region:       f.s3Region,
			Endpoint:     f.s3Endpoint,
			UsePathStyle: f.s3Endpoint != "",
		})))
	return fetcher.Fetch(ctx, raw)
}
