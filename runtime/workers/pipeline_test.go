package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"doorbell-lab/domain"
	"doorbell-lab/domain/event"
	apperrors "doorbell-lab/errors"
	"doorbell-lab/mocks"
	"doorbell-lab/observability"
)

type pipelineFixture struct {
	worker     *PipelineWorker
	classifier *mocks.MockClassifier
	bell       *mocks.MockDoorbell
	events     chan event.DomainEvent
	counter    *observability.PipelineCounter
}

func newPipelineFixture(t *testing.T, rule domain.Rule, cooldown time.Duration, deleteAfter bool) *pipelineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	classifier := mocks.NewMockClassifier(ctrl)
	bell := mocks.NewMockDoorbell(ctrl)
	events := make(chan event.DomainEvent, 32)
	counter := observability.NewPipelineCounter()

	worker := NewPipelineWorker(slog.Default(), classifier, bell, rule,
		cooldown, deleteAfter, nil, events, counter)

	return &pipelineFixture{
		worker:     worker,
		classifier: classifier,
		bell:       bell,
		events:     events,
		counter:    counter,
	}
}

func (f *pipelineFixture) drainEvents() []event.DomainEvent {
	var out []event.DomainEvent
	for {
		select {
		case evt := <-f.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func snapshotArtifact(payload []byte) domain.Artifact {
	return domain.Artifact{
		ID:         uuid.New(),
		Path:       "/var/lib/motion/01-20260823120000.jpg",
		Payload:    payload,
		Size:       uint64(len(payload)),
		MimeType:   "image/jpeg",
		SourceType: domain.MOTIONDIR,
		DetectedAt: time.Now().UTC(),
	}
}

func personRule() domain.Rule {
	return domain.Rule{Labels: []string{"person", "face"}, MinConfidence: 0.8}
}

func TestPipelineWorker_PersonRingsTheBell(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, false)
	artifact := snapshotArtifact([]byte("jpeg-bytes"))

	f.classifier.EXPECT().Annotate(gomock.Any(), artifact.Payload).
		Return(domain.Annotations{{Label: "person", Confidence: 0.92}}, nil)
	f.bell.EXPECT().Ring(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n domain.NotificationEvent) error {
			req.Equal(artifact.ID, n.ArtifactID)
			req.Contains(n.Text, `"person"`)
			req.Contains(n.Text, "92.0%")
			req.Equal(artifact.Path, n.ImagePath)
			return nil
		})

	f.worker.process(context.Background(), artifact)

	events := f.drainEvents()
	req.Len(events, 3)
	req.IsType(event.ArtifactDetected{}, events[0])
	classified, ok := events[1].(event.ArtifactClassified)
	req.True(ok)
	req.True(classified.Matched)
	rang, ok := events[2].(event.DoorbellRang)
	req.True(ok)
	req.Equal("person", rang.Label)

	snap := f.counter.Snapshot()
	req.Equal(uint64(1), snap.ArtifactsSeen)
	req.Equal(uint64(1), snap.Classified)
	req.Equal(uint64(1), snap.Rings)
	req.Equal(uint64(0), snap.Skipped)
}

func TestPipelineWorker_NonMatchingLabelStaysSilent(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, false)
	artifact := snapshotArtifact([]byte("jpeg-bytes"))

	f.classifier.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(domain.Annotations{{Label: "cat", Confidence: 0.95}}, nil)
	// No Ring expectation: the bell must stay untouched

	f.worker.process(context.Background(), artifact)

	events := f.drainEvents()
	req.Len(events, 2)
	classified, ok := events[1].(event.ArtifactClassified)
	req.True(ok)
	req.False(classified.Matched)
	req.Equal(uint64(0), f.counter.Snapshot().Rings)
}

func TestPipelineWorker_ClassifierFailureSkipsOnlyThatArtifact(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, false)
	broken := snapshotArtifact([]byte("broken"))
	fine := snapshotArtifact([]byte("fine"))

	f.classifier.EXPECT().Annotate(gomock.Any(), broken.Payload).
		Return(nil, fmt.Errorf("%w: vision returned 503", apperrors.ErrRemote))
	f.classifier.EXPECT().Annotate(gomock.Any(), fine.Payload).
		Return(domain.Annotations{{Label: "person", Confidence: 0.9}}, nil)
	f.bell.EXPECT().Ring(gomock.Any(), gomock.Any()).Return(nil)

	f.worker.process(context.Background(), broken)
	f.worker.process(context.Background(), fine)

	events := f.drainEvents()
	req.Len(events, 5)
	skipped, ok := events[1].(event.ArtifactSkipped)
	req.True(ok)
	req.Equal(broken.ID, skipped.ID)
	req.Contains(skipped.Reason, "503")

	snap := f.counter.Snapshot()
	req.Equal(uint64(2), snap.ArtifactsSeen)
	req.Equal(uint64(1), snap.Skipped)
	req.Equal(uint64(1), snap.Rings)
}

func TestPipelineWorker_DeliveryFailureDoesNotBlockNextRing(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), time.Hour, false)
	first := snapshotArtifact([]byte("first"))
	second := snapshotArtifact([]byte("second"))

	f.classifier.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(domain.Annotations{{Label: "person", Confidence: 0.9}}, nil).Times(2)
	failed := f.bell.EXPECT().Ring(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: webhook returned 500", apperrors.ErrDelivery))
	f.bell.EXPECT().Ring(gomock.Any(), gomock.Any()).Return(nil).After(failed)

	f.worker.process(context.Background(), first)
	// A failed delivery never starts the cooldown window
	f.worker.process(context.Background(), second)

	events := f.drainEvents()
	var deliveryFailures, rings int
	for _, evt := range events {
		switch evt.(type) {
		case event.DeliveryFailed:
			deliveryFailures++
		case event.DoorbellRang:
			rings++
		}
	}
	req.Equal(1, deliveryFailures)
	req.Equal(1, rings)
	req.Equal(uint64(1), f.counter.Snapshot().DeliveryErrors)
}

func TestPipelineWorker_CooldownSuppressesSecondRing(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 10*time.Second, false)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clock := base
	f.worker.now = func() time.Time { return clock }

	f.classifier.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(domain.Annotations{{Label: "person", Confidence: 0.9}}, nil).Times(3)
	f.bell.EXPECT().Ring(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	f.worker.process(context.Background(), snapshotArtifact([]byte("a")))

	// Within the window: matched but silent
	clock = base.Add(3 * time.Second)
	f.worker.process(context.Background(), snapshotArtifact([]byte("b")))

	// Window elapsed: rings again
	clock = base.Add(11 * time.Second)
	f.worker.process(context.Background(), snapshotArtifact([]byte("c")))

	req.Equal(uint64(2), f.counter.Snapshot().Rings)
	req.Equal(uint64(3), f.counter.Snapshot().Classified)
}

func TestPipelineWorker_DeleteAfterRemovesProcessedSnapshot(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, true)

	path := filepath.Join(t.TempDir(), "01-20260823120000.jpg")
	req.NoError(os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	artifact := snapshotArtifact(nil)
	artifact.Path = path

	f.classifier.EXPECT().Annotate(gomock.Any(), []byte("jpeg-bytes")).
		Return(domain.Annotations{{Label: "cat", Confidence: 0.95}}, nil)

	f.worker.process(context.Background(), artifact)

	_, err := os.Stat(path)
	req.True(os.IsNotExist(err))
}

func TestPipelineWorker_StreamArtifactIsNeverDeletedFromDisk(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, true)

	artifact := snapshotArtifact([]byte("jpeg-bytes"))
	artifact.SourceType = domain.STREAM
	artifact.Path = "http://camera.local/snapshot.jpg"

	f.classifier.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(domain.Annotations{{Label: "cat", Confidence: 0.95}}, nil)

	// Must not try to os.Remove a URL; just no panic and normal events
	f.worker.process(context.Background(), artifact)
	req.Len(f.drainEvents(), 2)
}

func TestPipelineWorker_Run_StopsOnClosedChannel(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, false)

	artifacts := make(chan domain.Artifact)
	f.worker.artifacts = artifacts
	close(artifacts)

	req.NoError(f.worker.Run(context.Background()))
}

func TestPipelineWorker_Run_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	f := newPipelineFixture(t, personRule(), 0, false)
	f.worker.artifacts = make(chan domain.Artifact)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(f.worker.Run(ctx), context.Canceled)
}
