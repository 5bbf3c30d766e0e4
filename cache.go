package specocr

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ResultCache holds at most one live speculative result with a TTL.
//
// Every read-modify-write on the entry runs under one mutex, so two callers
// can never both observe and then clear the same entry. A consumed or
// invalidated result is irrecoverable: the cache returns it at most once.
type ResultCache struct {
	mu                    sync.Mutex
	entry                 *SpeculativeResult
	screenChangeDetection bool
	ttl                   time.Duration

	observers *observerList
	now       func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	wasted atomic.Int64
}

// NewResultCache creates an empty cache using the config's TTL and
// screen-change settings.
func NewResultCache(cfg Config) *ResultCache {
	cfg.applyDefaults()
	return &ResultCache{
		screenChangeDetection: cfg.ScreenChangeDetectionEnabled,
		ttl:                   cfg.CacheTTL,
		observers:             newObserverList(),
		now:                   time.Now,
	}
}

// TTL returns the configured time-to-live.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// RegisterObserver subscribes o to cache invalidation notifications.
func (c *ResultCache) RegisterObserver(o Observer) {
	c.observers.register(o)
}

// Consume atomically checks existence, expiry and, when screen-change
// detection is enabled and a caller fingerprint is given, fingerprint match.
// On success it removes and returns the entry; on any failure path it clears
// a present entry with the specific reason and reports a miss.
func (c *ResultCache) Consume(callerFingerprint string) (*SpeculativeResult, bool) {
	c.mu.Lock()

	if c.entry == nil {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	now := c.now()

	if c.entry.Expired(now) {
		age := c.clearLocked(ReasonExpired, now)
		c.mu.Unlock()
		c.misses.Add(1)
		c.observers.notifyCacheInvalidated(ReasonExpired, age)
		return nil, false
	}

	// Fingerprint mismatch only matters when screen-change detection is on;
	// otherwise age is the sole staleness criterion.
	if c.screenChangeDetection && callerFingerprint != "" && callerFingerprint != c.entry.Fingerprint {
		age := c.clearLocked(ReasonScreenChanged, now)
		c.mu.Unlock()
		c.misses.Add(1)
		c.observers.notifyCacheInvalidated(ReasonScreenChanged, age)
		return nil, false
	}

	result := c.entry
	c.entry = nil
	c.mu.Unlock()

	c.hits.Add(1)
	slog.Debug("speculative result consumed", "age", result.Age(now), "fingerprint", result.Fingerprint)
	c.observers.notifyCacheInvalidated(ReasonConsumed, result.Age(now))
	return result, true
}

// Invalidate unconditionally clears the cache, tagging the given reason.
// It is a no-op, with no notification, when the cache is already empty.
func (c *ResultCache) Invalidate(reason InvalidationReason) {
	c.mu.Lock()
	cleared := c.entry != nil
	age := c.clearLocked(reason, c.now())
	c.mu.Unlock()

	if cleared {
		c.observers.notifyCacheInvalidated(reason, age)
	}
}

// Populate replaces the stored entry with result. A prior entry is first
// invalidated with ReasonNewExecutionStarted. Only the coordinator populates.
func (c *ResultCache) Populate(result *SpeculativeResult) {
	c.mu.Lock()
	cleared := c.entry != nil
	age := c.clearLocked(ReasonNewExecutionStarted, c.now())
	c.entry = result
	c.mu.Unlock()

	if cleared {
		c.observers.notifyCacheInvalidated(ReasonNewExecutionStarted, age)
	}
}

// Peek reports the fingerprint of a live, unexpired entry without consuming
// it. Used by the coordinator's short-circuit check.
func (c *ResultCache) Peek() (fingerprint string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.entry.Expired(c.now()) {
		return "", false
	}
	return c.entry.Fingerprint, true
}

// clearLocked drops the entry and reports its age. It does not notify:
// observers run after the mutex is released, so a slow or re-entrant
// callback can never stall or deadlock the cache. Caller must hold the
// mutex and dispatch the notification once unlocked.
func (c *ResultCache) clearLocked(reason InvalidationReason, now time.Time) time.Duration {
	if c.entry == nil {
		return 0
	}

	age := c.entry.Age(now)
	c.entry = nil
	c.wasted.Add(1)
	slog.Debug("speculative result invalidated", "reason", reason, "age", age)
	return age
}
