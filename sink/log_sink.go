package sink

import (
	"context"
	"log/slog"

	"doorbell-lab/domain/event"
)

// LogSink mirrors every pipeline event into the structured log.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ArtifactDetected:
		s.log.Debug("Snapshot detected", "artifact", evt.ID, "path", evt.Path,
			"mime", evt.MimeType, "size", evt.Size, "source", evt.Source)
	case event.ArtifactClassified:
		s.log.Info("Snapshot classified", "artifact", evt.ID,
			"labels", evt.Annotations.Labels(), "matched", evt.Matched)
	case event.ArtifactSkipped:
		s.log.Warn("Snapshot skipped", "artifact", evt.ID, "reason", evt.Reason)
	case event.DoorbellRang:
		s.log.Info("Doorbell rang", "artifact", evt.ID, "label", evt.Label,
			"confidence", evt.Confidence)
	case event.DeliveryFailed:
		s.log.Warn("Webhook delivery failed", "artifact", evt.ID, "reason", evt.Reason)
	}
	return nil
}
