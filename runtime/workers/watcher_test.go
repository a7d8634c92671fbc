package workers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"doorbell-lab/domain"
	apperrors "doorbell-lab/errors"
	"doorbell-lab/observability"
)

// pngBytes is a minimal PNG header, enough for magic-byte detection.
var pngBytes = []byte("\x89PNG\r\n\x1a\n" + "0000000000000000")

func newWatcherFixture(t *testing.T) (*SnapshotWatcherWorker, string, chan domain.Artifact) {
	t.Helper()
	dir := t.TempDir()
	artifacts := make(chan domain.Artifact, 8)
	worker := NewSnapshotWatcherWorker(slog.Default(), dir, 5*time.Millisecond,
		artifacts, observability.NewPipelineCounter())
	return worker, dir, artifacts
}

func TestSnapshotWatcher_ReportsNewImageOnce(t *testing.T) {
	req := require.New(t)
	worker, dir, artifacts := newWatcherFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	// Give the watch a moment to be established before writing
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "01-20260823120000.png")
	req.NoError(os.WriteFile(path, pngBytes, 0o644))

	select {
	case artifact := <-artifacts:
		req.Equal(path, artifact.Path)
		req.Equal(domain.MOTIONDIR, artifact.SourceType)
		req.Equal(uint64(len(pngBytes)), artifact.Size)
		req.Equal("image/png", artifact.MimeType)
	case <-time.After(5 * time.Second):
		t.Fatal("no artifact for new snapshot")
	}

	cancel()
	<-done

	// The create and write events for the same file collapse to one artifact
	select {
	case artifact := <-artifacts:
		t.Fatalf("unexpected duplicate artifact for %s", artifact.Path)
	default:
	}
}

func TestSnapshotWatcher_MissingDirectoryIsFatal(t *testing.T) {
	req := require.New(t)
	artifacts := make(chan domain.Artifact, 1)
	worker := NewSnapshotWatcherWorker(slog.Default(),
		filepath.Join(t.TempDir(), "does-not-exist"), time.Millisecond,
		artifacts, observability.NewPipelineCounter())

	err := worker.Run(context.Background())
	req.ErrorIs(err, apperrors.ErrSourceUnavailable)
}

func TestSnapshotWatcher_IgnoresNonImageFiles(t *testing.T) {
	req := require.New(t)
	worker, dir, artifacts := newWatcherFixture(t)

	path := filepath.Join(dir, "01-20260823120000.avi")
	req.NoError(os.WriteFile(path, []byte("RIFFxxxxAVI LIST"), 0o644))

	worker.handleCandidate(context.Background(), path)

	select {
	case artifact := <-artifacts:
		t.Fatalf("non-image file reported as %s", artifact.MimeType)
	default:
	}
}

func TestSnapshotWatcher_DeduplicatesPaths(t *testing.T) {
	req := require.New(t)
	worker, dir, artifacts := newWatcherFixture(t)

	path := filepath.Join(dir, "snap.png")
	req.NoError(os.WriteFile(path, pngBytes, 0o644))

	worker.handleCandidate(context.Background(), path)
	worker.handleCandidate(context.Background(), path)

	req.Len(artifacts, 1)
}

func TestSnapshotWatcher_SkipsDirectories(t *testing.T) {
	req := require.New(t)
	worker, dir, artifacts := newWatcherFixture(t)

	sub := filepath.Join(dir, "archive")
	req.NoError(os.Mkdir(sub, 0o755))

	worker.handleCandidate(context.Background(), sub)
	req.Empty(artifacts)
}

func TestSniffMimeType_DetectsByContentNotExtension(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "snapshot.txt")
	req.NoError(os.WriteFile(path, pngBytes, 0o644))

	mime, err := sniffMimeType(path)
	req.NoError(err)
	req.Equal("image/png", mime)
	req.True(isImage(mime))
	req.False(isImage("video/x-msvideo"))
}
