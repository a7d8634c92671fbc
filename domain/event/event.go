package event

import (
	"doorbell-lab/domain"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	ArtifactID() uuid.UUID
}

// ArtifactDetected is emitted by a source worker when a new snapshot
// enters the pipeline.
type ArtifactDetected struct {
	ID       uuid.UUID
	Path     string
	MimeType string
	Size     uint64
	Source   domain.SourceType
	At       time.Time
}

func (e ArtifactDetected) ArtifactID() uuid.UUID { return e.ID }

// ArtifactClassified carries the annotations the vision service returned
// for one artifact, together with the filter verdict.
type ArtifactClassified struct {
	ID          uuid.UUID
	Path        string
	Annotations domain.Annotations
	Matched     bool
	At          time.Time
}

func (e ArtifactClassified) ArtifactID() uuid.UUID { return e.ID }

// ArtifactSkipped is emitted when classification failed and the artifact
// was dropped without a verdict.
type ArtifactSkipped struct {
	ID     uuid.UUID
	Path   string
	Reason string
	At     time.Time
}

func (e ArtifactSkipped) ArtifactID() uuid.UUID { return e.ID }

// DoorbellRang records a successful webhook delivery.
type DoorbellRang struct {
	ID         uuid.UUID
	Text       string
	Label      string
	Confidence float64
	At         time.Time
}

func (e DoorbellRang) ArtifactID() uuid.UUID { return e.ID }

// DeliveryFailed records a webhook delivery that did not go through.
// The artifact still counts as processed.
type DeliveryFailed struct {
	ID     uuid.UUID
	Reason string
	At     time.Time
}

func (e DeliveryFailed) ArtifactID() uuid.UUID { return e.ID }
