package specocr

import (
	"time"

	"github.com/overlaykit/specocr/grouping"
)

// InvalidationReason tags why a cached speculative result was discarded.
// It is used for event and diagnostics tagging only.
type InvalidationReason int

const (
	// ReasonExpired means the entry outlived its TTL.
	ReasonExpired InvalidationReason = iota

	// ReasonScreenChanged means the caller's fingerprint no longer matched.
	ReasonScreenChanged

	// ReasonManualInvalidation means a caller explicitly cleared the cache.
	ReasonManualInvalidation

	// ReasonConsumed means the entry was handed out through Consume.
	ReasonConsumed

	// ReasonNewExecutionStarted means a fresh execution replaced the entry.
	ReasonNewExecutionStarted

	// ReasonExecutionCancelled means the producing execution was cancelled.
	ReasonExecutionCancelled
)

func (r InvalidationReason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonScreenChanged:
		return "screen_changed"
	case ReasonManualInvalidation:
		return "manual_invalidation"
	case ReasonConsumed:
		return "consumed"
	case ReasonNewExecutionStarted:
		return "new_execution_started"
	case ReasonExecutionCancelled:
		return "execution_cancelled"
	default:
		return "unknown"
	}
}

// RecognitionOutput is what the external recognition engine produces for one
// image: the raw text plus the detection boxes it was assembled from.
type RecognitionOutput struct {
	Text       string
	Detections []grouping.DetectionBox
}

// SpeculativeResult is a completed speculative execution held by the cache.
// It is immutable once built; the cache hands ownership to exactly one
// consumer and then forgets it.
type SpeculativeResult struct {
	// Payload is the opaque recognition output.
	Payload *RecognitionOutput

	// Fingerprint identifies the screen content the result was computed from.
	Fingerprint string

	// CapturedAt is when the source image was handed to TryExecute.
	CapturedAt time.Time

	// CompletedAt is when the recognition call returned.
	CompletedAt time.Time

	// ExecutionDuration is the wall time spent inside the recognition call.
	ExecutionDuration time.Duration

	// ImageWidth and ImageHeight are the source image dimensions in pixels,
	// zero when the image format could not be probed.
	ImageWidth  int
	ImageHeight int

	// ExpiresAt is the instant after which the result must be treated as
	// absent.
	ExpiresAt time.Time
}

// Age returns how long ago the result completed, relative to now.
func (r *SpeculativeResult) Age(now time.Time) time.Duration {
	return now.Sub(r.CompletedAt)
}

// Expired reports whether the result's TTL has lapsed, relative to now.
func (r *SpeculativeResult) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Stats is a point-in-time snapshot of the coordinator's diagnostic counters.
type Stats struct {
	// Executions is the number of recognition calls that completed
	// successfully and populated the cache.
	Executions int64

	// Failures is the number of recognition calls that returned an error.
	Failures int64

	// Cancellations is the number of recognition calls ended by cooperative
	// cancellation or timeout.
	Cancellations int64

	// ShortCircuits counts TryExecute calls that found an unexpired result
	// with a matching fingerprint and did nothing.
	ShortCircuits int64

	// SkippedDisabled, SkippedExclusiveMode, SkippedInterval,
	// SkippedResource and SkippedInFlight count rejected TryExecute calls by
	// cause.
	SkippedDisabled      int64
	SkippedExclusiveMode int64
	SkippedInterval      int64
	SkippedResource      int64
	SkippedInFlight      int64

	// CacheHits and CacheMisses count Consume outcomes. CacheWasted counts
	// populated results that were invalidated without ever being consumed.
	CacheHits   int64
	CacheMisses int64
	CacheWasted int64
}
