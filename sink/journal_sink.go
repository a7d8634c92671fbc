package sink

import (
	"context"
	"log/slog"

	"doorbell-lab/domain/event"
	"doorbell-lab/repositories"
)

// JournalSink appends pipeline events to the ring journal. It only records
// verdicts and rings; raw detections are too chatty to persist one by one
// when a camera is trigger-happy, so they are kept at Debug in the log sink.
type JournalSink struct {
	journal repositories.IRingJournal
	log     *slog.Logger
}

func NewJournalSink(journal repositories.IRingJournal, log *slog.Logger) *JournalSink {
	return &JournalSink{journal: journal, log: log}
}

func (s *JournalSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.ArtifactClassified:
		entry := repositories.JournalEntry{
			ID:   evt.ID,
			Kind: repositories.KindArtifact,
			Path: evt.Path,
			At:   evt.At,
		}
		if best, ok := evt.Annotations.Best(); ok {
			entry.Label = best.Label
			entry.Confidence = best.Confidence
		}
		if evt.Matched {
			entry.Detail = "matched"
		} else {
			entry.Detail = "no match"
		}
		return s.journal.Store(entry)

	case event.DoorbellRang:
		return s.journal.Store(repositories.JournalEntry{
			ID:         evt.ID,
			Kind:       repositories.KindRing,
			Label:      evt.Label,
			Confidence: evt.Confidence,
			Detail:     evt.Text,
			At:         evt.At,
		})

	case event.DeliveryFailed:
		return s.journal.Store(repositories.JournalEntry{
			ID:     evt.ID,
			Kind:   repositories.KindRing,
			Detail: "delivery failed: " + evt.Reason,
			At:     evt.At,
		})
	}
	return nil
}
