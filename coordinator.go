// Package specocr coordinates speculative execution of an expensive
// recognition operation. It never runs the operation more than once
// concurrently, never serves a stale result, and never blocks a caller on an
// in-flight execution: extra work is rejected, not queued, because
// speculative work is by definition discardable.
package specocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/overlaykit/specocr/grouping"
)

// Coordinator orchestrates admission control, fingerprint comparison,
// single-flight dispatch of the recognition call and cache population.
//
// Multiple goroutines may call TryExecute concurrently; at most one
// recognition call is ever alive, enforced by a non-blocking try-lock.
type Coordinator struct {
	cfg           Config
	gate          *AdmissionGate
	fingerprinter *Fingerprinter
	cache         *ResultCache

	// inFlight is the single-flight token. CompareAndSwap gives the
	// zero-wait try-acquire the design requires.
	inFlight atomic.Bool

	// lastSuccessNano is the unix-nano completion time of the last
	// successful execution, 0 before the first one.
	lastSuccessNano atomic.Int64

	now func() time.Time

	executions           atomic.Int64
	failures             atomic.Int64
	cancellations        atomic.Int64
	shortCircuits        atomic.Int64
	skippedDisabled      atomic.Int64
	skippedExclusiveMode atomic.Int64
	skippedInterval      atomic.Int64
	skippedResource      atomic.Int64
	skippedInFlight      atomic.Int64
}

// NewCoordinator creates a Coordinator from the given configuration.
func NewCoordinator(cfg Config) *Coordinator {
	cfg.applyDefaults()

	return &Coordinator{
		cfg:           cfg,
		gate:          NewAdmissionGate(cfg),
		fingerprinter: NewFingerprinter(),
		cache:         NewResultCache(cfg),
		now:           time.Now,
	}
}

// Cache exposes the coordinator's result cache so callers can Consume.
func (c *Coordinator) Cache() *ResultCache {
	return c.cache
}

// RegisterObserver subscribes o to execution and invalidation notifications.
func (c *Coordinator) RegisterObserver(o Observer) {
	c.cache.RegisterObserver(o)
}

// Fingerprint computes the content fingerprint of an image buffer. Callers
// that already hold a frame can pass the value back to TryExecute and
// Consume to avoid recomputation.
func (c *Coordinator) Fingerprint(image []byte) string {
	return c.fingerprinter.Fingerprint(image)
}

// Consume atomically takes the cached result if it is live, unexpired and,
// when screen-change detection is enabled, still matching callerFingerprint.
func (c *Coordinator) Consume(callerFingerprint string) (*SpeculativeResult, bool) {
	return c.cache.Consume(callerFingerprint)
}

// InvalidateCache clears any cached result on behalf of a caller, tagged as
// a manual invalidation.
func (c *Coordinator) InvalidateCache() {
	c.cache.Invalidate(ReasonManualInvalidation)
}

// GroupDetections clusters raw detection boxes into logical text blocks
// using the configured base grouping distance.
func (c *Coordinator) GroupDetections(detections []grouping.DetectionBox) [][]grouping.DetectionBox {
	return grouping.Group(detections, c.cfg.BaseGroupingDistance)
}

// TryExecute attempts one speculative execution over image. It returns true
// only when a fresh result was produced and cached. Every rejection and
// failure surfaces as false; no error ever crosses this boundary.
//
// knownFingerprint may carry a fingerprint the caller already computed for
// this image; pass "" to have the coordinator compute it.
//
// TryExecute never blocks waiting for another execution: if one is already
// in flight the call returns false immediately.
func (c *Coordinator) TryExecute(ctx context.Context, img []byte, knownFingerprint string) bool {
	// Step 1: feature disabled, missing engine, or exclusive mode active.
	if !c.cfg.Enabled || c.cfg.Engine == nil {
		c.skippedDisabled.Add(1)
		return false
	}
	if c.cfg.Flags != nil && c.cfg.Flags.ExclusiveModeActive() {
		c.skippedExclusiveMode.Add(1)
		return false
	}

	capturedAt := c.now()

	// Step 2: minimum spacing since the last successful execution.
	if last := c.lastSuccessNano.Load(); last != 0 {
		if capturedAt.Sub(time.Unix(0, last)) < c.cfg.MinExecutionInterval {
			c.skippedInterval.Add(1)
			return false
		}
	}

	// Step 3: admission control. A missing provider or an error reading
	// metrics fails closed; resource scarcity is never assumed safe.
	if c.cfg.Metrics == nil {
		c.skippedResource.Add(1)
		return false
	}
	metrics, err := c.cfg.Metrics.CurrentMetrics(ctx)
	if err != nil {
		slog.Debug("metrics read failed, denying speculative execution", "error", err)
		c.skippedResource.Add(1)
		return false
	}
	if !c.gate.Allow(metrics) {
		c.skippedResource.Add(1)
		return false
	}

	// Step 4: non-blocking single-flight acquire.
	if !c.inFlight.CompareAndSwap(false, true) {
		c.skippedInFlight.Add(1)
		return false
	}
	defer c.inFlight.Store(false)

	// Step 5: short-circuit when the cached result already covers this
	// screen. The entry stays cached.
	fingerprint := knownFingerprint
	if fingerprint == "" {
		fingerprint = c.fingerprinter.Fingerprint(img)
	}
	if cached, ok := c.cache.Peek(); ok && cached == fingerprint {
		c.shortCircuits.Add(1)
		return false
	}

	// Step 6: a new execution obsoletes whatever is cached.
	c.cache.Invalidate(ReasonNewExecutionStarted)

	execCtx, cancel := context.WithTimeout(ctx, c.cfg.ExecutionTimeout)
	defer cancel()

	start := c.now()
	output, err := c.cfg.Engine.Recognize(execCtx, img)
	completedAt := c.now()

	if err != nil {
		// Cooperative cancellation and timeout are normal outcomes, not
		// failures.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.cancellations.Add(1)
			c.cache.Invalidate(ReasonExecutionCancelled)
			slog.Debug("speculative execution cancelled", "elapsed", completedAt.Sub(start))
			return false
		}

		c.failures.Add(1)
		slog.Warn("speculative recognition failed", "error", err, "elapsed", completedAt.Sub(start))
		return false
	}

	width, height := probeImageSize(img)
	result := &SpeculativeResult{
		Payload:           output,
		Fingerprint:       fingerprint,
		CapturedAt:        capturedAt,
		CompletedAt:       completedAt,
		ExecutionDuration: completedAt.Sub(start),
		ImageWidth:        width,
		ImageHeight:       height,
		ExpiresAt:         completedAt.Add(c.cfg.CacheTTL),
	}

	c.cache.Populate(result)
	c.lastSuccessNano.Store(completedAt.UnixNano())
	c.executions.Add(1)
	slog.Debug("speculative execution completed",
		"duration", result.ExecutionDuration,
		"fingerprint", fingerprint,
		"detections", len(output.Detections))
	c.cache.observers.notifyExecutionCompleted(result, result.ExecutionDuration)

	return true
}

// Stats returns a snapshot of the diagnostic counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Executions:           c.executions.Load(),
		Failures:             c.failures.Load(),
		Cancellations:        c.cancellations.Load(),
		ShortCircuits:        c.shortCircuits.Load(),
		SkippedDisabled:      c.skippedDisabled.Load(),
		SkippedExclusiveMode: c.skippedExclusiveMode.Load(),
		SkippedInterval:      c.skippedInterval.Load(),
		SkippedResource:      c.skippedResource.Load(),
		SkippedInFlight:      c.skippedInFlight.Load(),
		CacheHits:            c.cache.hits.Load(),
		CacheMisses:          c.cache.misses.Load(),
		CacheWasted:          c.cache.wasted.Load(),
	}
}

// probeImageSize reads the image header for dimensions. Unknown formats
// yield zeros; dimensions are informational only.
func probeImageSize(img []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
