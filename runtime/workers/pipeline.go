package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"doorbell-lab/contract"
	"doorbell-lab/domain"
	"doorbell-lab/domain/event"
	"doorbell-lab/observability"
)

// PipelineWorker is the heart of the daemon: it drains the artifacts channel
// strictly one at a time and runs classify -> filter -> maybe ring for each.
// Two states only: waiting on the channel, or processing the current
// artifact. A failure on one artifact is logged, counted, and the worker
// goes back to waiting; nothing an artifact does can block the next one.
type PipelineWorker struct {
	log         *slog.Logger
	classifier  contract.Classifier
	bell        contract.Doorbell
	rule        domain.Rule
	cooldown    time.Duration
	deleteAfter bool
	artifacts   <-chan domain.Artifact
	events      chan<- event.DomainEvent
	counter     *observability.PipelineCounter

	lastRing time.Time
	now      func() time.Time
}

func NewPipelineWorker(
	log *slog.Logger,
	classifier contract.Classifier,
	bell contract.Doorbell,
	rule domain.Rule,
	cooldown time.Duration,
	deleteAfter bool,
	artifacts <-chan domain.Artifact,
	events chan<- event.DomainEvent,
	counter *observability.PipelineCounter,
) *PipelineWorker {
	return &PipelineWorker{
		log:         log,
		classifier:  classifier,
		bell:        bell,
		rule:        rule,
		cooldown:    cooldown,
		deleteAfter: deleteAfter,
		artifacts:   artifacts,
		events:      events,
		counter:     counter,
		now:         time.Now,
	}
}

func (w *PipelineWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case artifact, ok := <-w.artifacts:
			if !ok {
				w.log.Info("Artifacts channel closed, pipeline done")
				return nil
			}
			w.process(ctx, artifact)
		}
	}
}

func (w *PipelineWorker) process(ctx context.Context, artifact domain.Artifact) {
	w.counter.IncrArtifactsSeen()
	w.emit(ctx, event.ArtifactDetected{
		ID:       artifact.ID,
		Path:     artifact.Path,
		MimeType: artifact.MimeType,
		Size:     artifact.Size,
		Source:   artifact.SourceType,
		At:       artifact.DetectedAt,
	})
	if w.deleteAfter {
		defer w.cleanup(artifact)
	}

	payload, err := w.payload(artifact)
	if err != nil {
		w.skip(ctx, artifact, fmt.Sprintf("reading payload: %v", err))
		return
	}
	w.counter.IncrBytesProcessed(uint64(len(payload)))

	annotations, err := w.classifier.Annotate(ctx, payload)
	if err != nil {
		w.skip(ctx, artifact, err.Error())
		return
	}
	w.counter.IncrClassified()

	matched := w.rule.Matches(annotations)
	w.emit(ctx, event.ArtifactClassified{
		ID:          artifact.ID,
		Path:        artifact.Path,
		Annotations: annotations,
		Matched:     matched,
		At:          w.now().UTC(),
	})
	if !matched {
		return
	}

	w.ring(ctx, artifact, annotations)
}

// ring sends at most one notification for a matching artifact, honoring the
// cooldown window so a lingering visitor doesn't ring forever.
func (w *PipelineWorker) ring(ctx context.Context, artifact domain.Artifact, annotations domain.Annotations) {
	if !w.lastRing.IsZero() && w.now().Sub(w.lastRing) < w.cooldown {
		w.log.Debug("Match within cooldown, not ringing", "artifact", artifact.ID)
		return
	}

	best, _ := w.rule.BestMatch(annotations)
	notification := domain.NotificationEvent{
		ArtifactID: artifact.ID,
		Text: fmt.Sprintf("Someone is at the door! Saw %q (%.1f%% sure)",
			best.Label, best.Confidence*100),
		ImagePath:  artifact.Path,
		Label:      best.Label,
		Confidence: best.Confidence,
		At:         w.now().UTC(),
	}

	if err := w.bell.Ring(ctx, notification); err != nil {
		// Best effort: the artifact still counts as processed.
		w.counter.IncrDeliveryErrors()
		w.log.Warn("Ring failed", "artifact", artifact.ID, "error", err)
		w.emit(ctx, event.DeliveryFailed{
			ID:     artifact.ID,
			Reason: err.Error(),
			At:     w.now().UTC(),
		})
		return
	}

	w.lastRing = w.now()
	w.counter.IncrRings()
	w.emit(ctx, event.DoorbellRang{
		ID:         artifact.ID,
		Text:       notification.Text,
		Label:      best.Label,
		Confidence: best.Confidence,
		At:         w.lastRing.UTC(),
	})
}

func (w *PipelineWorker) payload(artifact domain.Artifact) ([]byte, error) {
	if artifact.Payload != nil {
		return artifact.Payload, nil
	}
	return os.ReadFile(artifact.Path)
}

func (w *PipelineWorker) skip(ctx context.Context, artifact domain.Artifact, reason string) {
	w.counter.IncrSkipped()
	w.counter.IncrErrorCount()
	w.log.Warn("Skipping artifact", "artifact", artifact.ID, "path", artifact.Path, "reason", reason)
	w.emit(ctx, event.ArtifactSkipped{
		ID:     artifact.ID,
		Path:   artifact.Path,
		Reason: reason,
		At:     w.now().UTC(),
	})
}

func (w *PipelineWorker) cleanup(artifact domain.Artifact) {
	if artifact.SourceType != domain.MOTIONDIR || artifact.Path == "" {
		return
	}
	if err := os.Remove(artifact.Path); err != nil {
		w.log.Warn("Cannot remove processed snapshot", "path", artifact.Path, "error", err)
	}
}

func (w *PipelineWorker) emit(ctx context.Context, e event.DomainEvent) {
	select {
	case <-ctx.Done():
	case w.events <- e:
	}
}
