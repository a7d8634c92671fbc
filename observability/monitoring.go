package observability

import "sync/atomic"

// PipelineCounter aggregates the run counters shown by the heartbeat worker
// and the viewer. All increments are atomic; reads are best-effort snapshots.
type PipelineCounter struct {
	ArtifactsSeen  uint64
	Classified     uint64
	Rings          uint64
	Skipped        uint64
	DeliveryErrors uint64
	ErrorCount     uint64
	BytesProcessed uint64
}

func NewPipelineCounter() *PipelineCounter {
	return &PipelineCounter{}
}

func (c *PipelineCounter) IncrArtifactsSeen() {
	atomic.AddUint64(&c.ArtifactsSeen, 1)
}

func (c *PipelineCounter) IncrClassified() {
	atomic.AddUint64(&c.Classified, 1)
}

func (c *PipelineCounter) IncrRings() {
	atomic.AddUint64(&c.Rings, 1)
}

func (c *PipelineCounter) IncrSkipped() {
	atomic.AddUint64(&c.Skipped, 1)
}

func (c *PipelineCounter) IncrDeliveryErrors() {
	atomic.AddUint64(&c.DeliveryErrors, 1)
}

func (c *PipelineCounter) IncrErrorCount() {
	atomic.AddUint64(&c.ErrorCount, 1)
}

func (c *PipelineCounter) IncrBytesProcessed(n uint64) {
	atomic.AddUint64(&c.BytesProcessed, n)
}

// Snapshot returns a consistent-enough copy for logging.
func (c *PipelineCounter) Snapshot() PipelineCounter {
	return PipelineCounter{
		ArtifactsSeen:  atomic.LoadUint64(&c.ArtifactsSeen),
		Classified:     atomic.LoadUint64(&c.Classified),
		Rings:          atomic.LoadUint64(&c.Rings),
		Skipped:        atomic.LoadUint64(&c.Skipped),
		DeliveryErrors: atomic.LoadUint64(&c.DeliveryErrors),
		ErrorCount:     atomic.LoadUint64(&c.ErrorCount),
		BytesProcessed: atomic.LoadUint64(&c.BytesProcessed),
	}
}
