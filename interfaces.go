package specocr

import (
	"context"
	"time"
)

// RecognitionEngine performs the expensive image-to-text operation. The call
// is expected to block for non-trivial time and must honor ctx cancellation.
type RecognitionEngine interface {
	Recognize(ctx context.Context, image []byte) (*RecognitionOutput, error)
}

// ResourceMetrics is one reading of system load. GPU readings are optional:
// a nil pointer means the metric is not available on this host, and only the
// checks that depend on it are skipped.
type ResourceMetrics struct {
	CPUPercent      float64
	GPUPercent      *float64
	GPUMemoryUsedMB *float64
}

// MetricsProvider reports current system load for admission decisions.
type MetricsProvider interface {
	CurrentMetrics(ctx context.Context) (ResourceMetrics, error)
}

// ModeFlags exposes caller state that gates speculative work. While exclusive
// mode is active (a live, authoritative execution is running) no speculative
// execution may start.
type ModeFlags interface {
	ExclusiveModeActive() bool
}

// Observer receives coordinator notifications. Delivery is synchronous;
// a panicking observer is isolated and never propagates into the
// coordinator.
type Observer interface {
	ExecutionCompleted(result *SpeculativeResult, duration time.Duration)
	CacheInvalidated(reason InvalidationReason, age time.Duration)
}
