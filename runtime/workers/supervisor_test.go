package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "doorbell-lab/errors"
)

type stubWorker struct {
	run func(ctx context.Context) error
}

func (w *stubWorker) Run(ctx context.Context) error {
	return w.run(ctx)
}

func runSupervised(t *testing.T, supervisor *Supervisor) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop in time")
	}
}

func TestSupervisor_CleanReturnIsNotRestarted(t *testing.T) {
	req := require.New(t)
	var runs atomic.Int32

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(&stubWorker{run: func(_ context.Context) error {
		runs.Add(1)
		return nil
	}})

	waitDone(t, runSupervised(t, supervisor))
	req.Equal(int32(1), runs.Load())
}

func TestSupervisor_CrashedWorkerIsRestarted(t *testing.T) {
	req := require.New(t)
	var runs atomic.Int32

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(&stubWorker{run: func(_ context.Context) error {
		if runs.Add(1) == 1 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}})

	waitDone(t, runSupervised(t, supervisor))
	req.Equal(int32(2), runs.Load())
}

func TestSupervisor_PanicIsRecoveredAndRestarted(t *testing.T) {
	req := require.New(t)
	var runs atomic.Int32

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(&stubWorker{run: func(_ context.Context) error {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}})

	waitDone(t, runSupervised(t, supervisor))
	req.Equal(int32(2), runs.Load())
}

func TestSupervisor_SourceLossStopsTheWholeTree(t *testing.T) {
	req := require.New(t)
	var bystanderStopped atomic.Bool

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(
		&stubWorker{run: func(_ context.Context) error {
			return fmt.Errorf("%w: directory removed", apperrors.ErrSourceUnavailable)
		}},
		&stubWorker{run: func(ctx context.Context) error {
			<-ctx.Done()
			bystanderStopped.Store(true)
			return ctx.Err()
		}},
	)

	waitDone(t, runSupervised(t, supervisor))
	req.True(bystanderStopped.Load())
}

func TestSupervisor_StopCancelsRunningWorkers(t *testing.T) {
	started := make(chan struct{})

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(&stubWorker{run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})

	done := runSupervised(t, supervisor)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}

	supervisor.Stop()
	waitDone(t, done)
}
