package workers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"doorbell-lab/domain"
	apperrors "doorbell-lab/errors"
	"doorbell-lab/observability"
)

// maxSettlePolls bounds how long we wait for a snapshot to stop growing.
// motion writes snapshots in one burst, so this is generous already.
const maxSettlePolls = 100

// SnapshotWatcherWorker watches the motion output directory and pushes every
// finished image file into the artifacts channel, exactly once per path per
// run. Files still being written are polled until their size settles; non
// image files (motion also drops .avi clips and temp files) are ignored via
// magic-byte sniffing.
type SnapshotWatcherWorker struct {
	log        *slog.Logger
	dir        string
	settleTime time.Duration
	artifacts  chan<- domain.Artifact
	counter    *observability.PipelineCounter
	seen       map[string]struct{}
}

func NewSnapshotWatcherWorker(
	log *slog.Logger,
	dir string,
	settleTime time.Duration,
	artifacts chan<- domain.Artifact,
	counter *observability.PipelineCounter,
) *SnapshotWatcherWorker {
	return &SnapshotWatcherWorker{
		log:        log,
		dir:        dir,
		settleTime: settleTime,
		artifacts:  artifacts,
		counter:    counter,
		seen:       make(map[string]struct{}),
	}
}

// Run blocks on filesystem notifications until the context is canceled.
// Failing to establish or keep the watch is a source loss, which the
// supervisor treats as fatal.
func (w *SnapshotWatcherWorker) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("%w: watching %s: %v", apperrors.ErrSourceUnavailable, w.dir, err)
	}

	w.log.Info("Monitoring directory for snapshots", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", apperrors.ErrSourceUnavailable)
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleCandidate(ctx, ev.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%w: error channel closed", apperrors.ErrSourceUnavailable)
			}
			w.counter.IncrErrorCount()
			w.log.Warn("Watcher error", "error", err)
		}
	}
}

// handleCandidate qualifies one path: not yet reported, a settled regular
// file, and an image by content. Anything else is dropped silently at Debug.
func (w *SnapshotWatcherWorker) handleCandidate(ctx context.Context, path string) {
	if _, dup := w.seen[path]; dup {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || !info.Mode().IsRegular() {
		return
	}

	size, err := w.waitForSettle(ctx, path)
	if err != nil {
		w.log.Debug("Snapshot vanished while settling", "path", path, "error", err)
		return
	}

	mime, err := sniffMimeType(path)
	if err != nil {
		w.counter.IncrErrorCount()
		w.log.Debug("Cannot sniff file", "path", path, "error", err)
		return
	}
	if !isImage(mime) {
		w.log.Debug("Ignoring non-image file", "path", path, "mime", mime)
		return
	}

	w.seen[path] = struct{}{}

	artifact := domain.Artifact{
		ID:         uuid.New(),
		Path:       path,
		Size:       uint64(size),
		MimeType:   mime,
		SourceType: domain.MOTIONDIR,
		DetectedAt: time.Now().UTC(),
	}

	select {
	case <-ctx.Done():
	case w.artifacts <- artifact:
	}
}

// waitForSettle polls the file size until it is stable and non-zero, so we
// never hand a half-written snapshot to the classifier.
func (w *SnapshotWatcherWorker) waitForSettle(ctx context.Context, path string) (int64, error) {
	var last int64 = -1
	for i := 0; i < maxSettlePolls; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		if info.Size() == last && last > 0 {
			return last, nil
		}
		last = info.Size()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(w.settleTime):
		}
	}
	return last, nil
}

// sniffMimeType reads the first 64 bytes (MagicBytes) and detects the type
// by content, never by extension.
func sniffMimeType(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	magicBytes := make([]byte, 64)
	n, err := file.Read(magicBytes)
	if err != nil && err != io.EOF {
		return "", err
	}
	return mimetype.Detect(magicBytes[:n]).String(), nil
}

func isImage(mime string) bool {
	return len(mime) > 6 && mime[:6] == "image/"
}
