package commands

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/some/internal/source"
)

type fakeServer struct {
	serveErr error
	stop     chan struct{}
	stopped  bool
}

func (s *fakeServer) Serve(net.Listener) error {
	if s.serveErr != nil {
		return s.serveErr
	}
	<-s.stop
	return nil
}

func (s *fakeServer) Stop() {
	s.stopped = true
	close(s.stop)
}

func TestServeUntilSignal_StopsOnSignal(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	require.NoError(t, serveUntilSignal(srv, nil, sigCh))
	assert.True(t, srv.stopped)
}

func TestServeUntilSignal_ServeErrorReleasesWatcher(t *testing.T) {
	boom := errors.New("listener closed")
	srv := &fakeServer{serveErr: boom}
	sigCh := make(chan os.Signal)

	err := serveUntilSignal(srv, nil, sigCh)
	assert.ErrorIs(t, err, boom)

	select {
	case sigCh <- syscall.SIGTERM:
		t.Fatal("signal watcher still running after Serve returned")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, srv.stopped)
}

func TestServe_ResolvesModelThroughFetcher(t *testing.T) {
	cfg, _, _ := writeFixtures(t)
	missing := filepath.Join(t.TempDir(), "missing.ckpt")

	_, err := run(t, "serve", "-c", cfg, "-m", missing, "--cache-dir", t.TempDir())
	assert.ErrorContains(t, err, "source:")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestServe_RejectsUnknownScheme(t *testing.T) {
	cfg, _, _ := writeFixtures(t)

	_, err := run(t, "serve", "-c", cfg, "-m", "ftp://host/model.ckpt", "--cache-dir", t.TempDir())
	assert.ErrorIs(t, err, source.ErrInvalidLocation)
}
