package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"doorbell-lab/observability"
)

// HeartbeatWorker periodically logs process health (CPU, RAM, OS status)
// together with the pipeline counters, so an unattended daemon leaves a
// trace of what it has been doing between rings.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	counter  *observability.PipelineCounter
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration,
	counter *observability.PipelineCounter) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, counter: counter}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			snapshot := w.counter.Snapshot()
			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"artifacts", snapshot.ArtifactsSeen,
				"classified", snapshot.Classified,
				"rings", snapshot.Rings,
				"skipped", snapshot.Skipped,
				"delivery_errors", snapshot.DeliveryErrors,
				"errors", snapshot.ErrorCount,
				"bytes", snapshot.BytesProcessed,
			)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
