package workers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"doorbell-lab/domain"
	apperrors "doorbell-lab/errors"
	"doorbell-lab/observability"
)

// maxConsecutiveFailures is how many polls in a row may fail before the
// camera endpoint is declared gone.
const maxConsecutiveFailures = 5

// StreamPollerWorker is the directory watcher's sibling for cameras that
// expose a snapshot HTTP endpoint instead of writing files. Each poll that
// returns an image becomes an in-memory artifact carrying its payload.
type StreamPollerWorker struct {
	log       *slog.Logger
	addr      string
	interval  time.Duration
	http      *http.Client
	artifacts chan<- domain.Artifact
	counter   *observability.PipelineCounter
}

func NewStreamPollerWorker(
	log *slog.Logger,
	addr string,
	interval time.Duration,
	httpClient *http.Client,
	artifacts chan<- domain.Artifact,
	counter *observability.PipelineCounter,
) *StreamPollerWorker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StreamPollerWorker{
		log:       log,
		addr:      addr,
		interval:  interval,
		http:      httpClient,
		artifacts: artifacts,
		counter:   counter,
	}
}

func (w *StreamPollerWorker) Run(ctx context.Context) error {
	w.log.Info("Polling snapshot endpoint", "addr", w.addr, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			payload, err := w.fetch(ctx)
			if err != nil {
				failures++
				w.counter.IncrErrorCount()
				w.log.Warn("Snapshot poll failed", "addr", w.addr,
					"failures", failures, "error", err)
				if failures >= maxConsecutiveFailures {
					return fmt.Errorf("%w: %d consecutive poll failures on %s",
						apperrors.ErrSourceUnavailable, failures, w.addr)
				}
				continue
			}
			failures = 0

			mime := mimetype.Detect(payload).String()
			if !isImage(mime) {
				w.log.Debug("Endpoint returned non-image payload", "mime", mime)
				continue
			}

			artifact := domain.Artifact{
				ID:         uuid.New(),
				Path:       w.addr,
				Payload:    payload,
				Size:       uint64(len(payload)),
				MimeType:   mime,
				SourceType: domain.STREAM,
				DetectedAt: time.Now().UTC(),
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case w.artifacts <- artifact:
			}
		}
	}
}

func (w *StreamPollerWorker) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.addr, nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}
