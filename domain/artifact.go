package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SourceType tells where a snapshot came from.
type SourceType string

const (
	MOTIONDIR SourceType = "motion_dir"
	STREAM    SourceType = "stream"
)

// Artifact is one motion-triggered snapshot waiting to be classified.
// Directory artifacts carry a path and are read lazily; stream artifacts
// already carry their payload.
type Artifact struct {
	ID         uuid.UUID
	Path       string
	Payload    []byte
	Size       uint64
	MimeType   string
	SourceType SourceType
	DetectedAt time.Time
}

// Annotation is a single (label, confidence) result from the vision service.
// Confidence is normalized to [0, 1].
type Annotation struct {
	Label      string
	Confidence float64
}

type Annotations []Annotation

// Best returns the annotation with the highest confidence.
func (a Annotations) Best() (Annotation, bool) {
	if len(a) == 0 {
		return Annotation{}, false
	}
	return lo.MaxBy(a, func(x, max Annotation) bool {
		return x.Confidence > max.Confidence
	}), true
}

// Labels returns the distinct labels of the set.
func (a Annotations) Labels() []string {
	return lo.Uniq(lo.Map(a, func(x Annotation, _ int) string {
		return x.Label
	}))
}

// NotificationEvent is what the doorbell actually sends: a message text and
// an optional image reference. Built once per matching artifact.
type NotificationEvent struct {
	ArtifactID uuid.UUID
	Text       string
	ImagePath  string
	Label      string
	Confidence float64
	At         time.Time
}
