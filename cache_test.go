package specocr

import (
	"sync"
	"testing"
	"time"
)

// recordingObserver collects invalidation notifications for assertions.
type recordingObserver struct {
	mu      sync.Mutex
	reasons []InvalidationReason
}

func (o *recordingObserver) ExecutionCompleted(*SpeculativeResult, time.Duration) {}

func (o *recordingObserver) CacheInvalidated(reason InvalidationReason, age time.Duration) {
	o.mu.Lock()
	o.reasons = append(o.reasons, reason)
	o.mu.Unlock()
}

func (o *recordingObserver) seen() []InvalidationReason {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]InvalidationReason(nil), o.reasons...)
}

// newTestCache returns a cache pinned to a controllable clock.
func newTestCache(cfg Config) (*ResultCache, *time.Time) {
	cache := NewResultCache(cfg)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func resultAt(fingerprint string, completed time.Time, ttl time.Duration) *SpeculativeResult {
	return &SpeculativeResult{
		Payload:     &RecognitionOutput{Text: "cached"},
		Fingerprint: fingerprint,
		CapturedAt:  completed.Add(-100 * time.Millisecond),
		CompletedAt: completed,
		ExpiresAt:   completed.Add(ttl),
	}
}

func TestConsume_EmptyCacheMisses(t *testing.T) {
	cache, _ := newTestCache(Config{})

	if _, ok := cache.Consume(""); ok {
		t.Error("Expected miss on empty cache")
	}
}

// TestConsume_SingleConsume verifies that a populated result is returned by
// exactly one Consume call and every later call misses.
func TestConsume_SingleConsume(t *testing.T) {
	cache, now := newTestCache(Config{CacheTTL: 2 * time.Second})
	cache.Populate(resultAt("fp-1", *now, 2*time.Second))

	*now = now.Add(500 * time.Millisecond)
	result, ok := cache.Consume("fp-1")
	if !ok {
		t.Fatal("Expected first Consume to return the result")
	}
	if result.Fingerprint != "fp-1" {
		t.Errorf("Expected fingerprint fp-1, got %s", result.Fingerprint)
	}

	*now = now.Add(100 * time.Millisecond)
	if _, ok := cache.Consume("fp-1"); ok {
		t.Error("Expected miss after the result was already consumed")
	}
}

// TestConsume_TTLExpiry verifies that a result past its TTL is cleared with
// ReasonExpired and reported as a miss.
func TestConsume_TTLExpiry(t *testing.T) {
	cache, now := newTestCache(Config{CacheTTL: 2 * time.Second})
	observer := &recordingObserver{}
	cache.RegisterObserver(observer)

	cache.Populate(resultAt("fp-1", *now, 2*time.Second))

	*now = now.Add(2*time.Second + time.Millisecond)
	if _, ok := cache.Consume(""); ok {
		t.Fatal("Expected miss after TTL elapsed")
	}

	reasons := observer.seen()
	if len(reasons) != 1 || reasons[0] != ReasonExpired {
		t.Errorf("Expected one ReasonExpired notification, got %v", reasons)
	}

	// The expired entry is gone for good.
	if _, ok := cache.Consume(""); ok {
		t.Error("Expected miss on second Consume after expiry")
	}
}

// TestConsume_ScreenChanged verifies that a fingerprint mismatch clears the
// entry when screen-change detection is on.
func TestConsume_ScreenChanged(t *testing.T) {
	cache, now := newTestCache(Config{ScreenChangeDetectionEnabled: true})
	observer := &recordingObserver{}
	cache.RegisterObserver(observer)

	cache.Populate(resultAt("fp-old", *now, time.Minute))

	if _, ok := cache.Consume("fp-new"); ok {
		t.Fatal("Expected miss on fingerprint mismatch")
	}

	reasons := observer.seen()
	if len(reasons) != 1 || reasons[0] != ReasonScreenChanged {
		t.Errorf("Expected one ReasonScreenChanged notification, got %v", reasons)
	}
}

// TestConsume_FingerprintIgnoredWhenDetectionDisabled verifies that age is
// the sole criterion when screen-change detection is off.
func TestConsume_FingerprintIgnoredWhenDetectionDisabled(t *testing.T) {
	cache, now := newTestCache(Config{ScreenChangeDetectionEnabled: false})
	cache.Populate(resultAt("fp-old", *now, time.Minute))

	if _, ok := cache.Consume("fp-other"); !ok {
		t.Error("Expected hit despite mismatched fingerprint when detection is disabled")
	}
}

func TestConsume_EmptyFingerprintSkipsComparison(t *testing.T) {
	cache, now := newTestCache(Config{ScreenChangeDetectionEnabled: true})
	cache.Populate(resultAt("fp-old", *now, time.Minute))

	if _, ok := cache.Consume(""); !ok {
		t.Error("Expected hit when caller provides no fingerprint")
	}
}

func TestInvalidate_NoEventWhenEmpty(t *testing.T) {
	cache, _ := newTestCache(Config{})
	observer := &recordingObserver{}
	cache.RegisterObserver(observer)

	cache.Invalidate(ReasonManualInvalidation)

	if len(observer.seen()) != 0 {
		t.Error("Expected no notification invalidating an empty cache")
	}
}

func TestInvalidate_ClearsWithReason(t *testing.T) {
	cache, now := newTestCache(Config{})
	observer := &recordingObserver{}
	cache.RegisterObserver(observer)

	cache.Populate(resultAt("fp-1", *now, time.Minute))
	cache.Invalidate(ReasonManualInvalidation)

	reasons := observer.seen()
	if len(reasons) != 1 || reasons[0] != ReasonManualInvalidation {
		t.Errorf("Expected one ReasonManualInvalidation notification, got %v", reasons)
	}
	if _, ok := cache.Consume(""); ok {
		t.Error("Expected miss after manual invalidation")
	}
}

// reentrantObserver calls back into the cache from its notification, the way
// an observer that reacts to an invalidation by re-checking the cache would.
type reentrantObserver struct {
	cache *ResultCache
}

func (o *reentrantObserver) ExecutionCompleted(*SpeculativeResult, time.Duration) {}

func (o *reentrantObserver) CacheInvalidated(InvalidationReason, time.Duration) {
	o.cache.Consume("")
}

// TestInvalidate_ReentrantObserverDoesNotDeadlock verifies that observers are
// notified outside the cache mutex, so a callback that touches the cache
// returns instead of deadlocking.
func TestInvalidate_ReentrantObserverDoesNotDeadlock(t *testing.T) {
	cache, now := newTestCache(Config{})
	cache.RegisterObserver(&reentrantObserver{cache: cache})
	cache.Populate(resultAt("fp-1", *now, time.Minute))

	done := make(chan struct{})
	go func() {
		cache.Invalidate(ReasonManualInvalidation)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Invalidate blocked on an observer that re-entered the cache")
	}
}

// TestPopulate_ReplacesPriorEntry verifies the implicit invalidation of a
// prior entry with ReasonNewExecutionStarted.
func TestPopulate_ReplacesPriorEntry(t *testing.T) {
	cache, now := newTestCache(Config{})
	observer := &recordingObserver{}
	cache.RegisterObserver(observer)

	cache.Populate(resultAt("fp-1", *now, time.Minute))
	cache.Populate(resultAt("fp-2", *now, time.Minute))

	reasons := observer.seen()
	if len(reasons) != 1 || reasons[0] != ReasonNewExecutionStarted {
		t.Errorf("Expected one ReasonNewExecutionStarted notification, got %v", reasons)
	}

	result, ok := cache.Consume("")
	if !ok || result.Fingerprint != "fp-2" {
		t.Errorf("Expected the replacement entry fp-2, got %+v (ok=%v)", result, ok)
	}
}

func TestPeek_DoesNotConsume(t *testing.T) {
	cache, now := newTestCache(Config{})
	cache.Populate(resultAt("fp-1", *now, time.Minute))

	fp, ok := cache.Peek()
	if !ok || fp != "fp-1" {
		t.Fatalf("Expected Peek to see fp-1, got %q (ok=%v)", fp, ok)
	}

	if _, ok := cache.Consume(""); !ok {
		t.Error("Expected the entry to survive Peek")
	}
}

func TestPeek_ExpiredEntryInvisible(t *testing.T) {
	cache, now := newTestCache(Config{CacheTTL: time.Second})
	cache.Populate(resultAt("fp-1", *now, time.Second))

	*now = now.Add(2 * time.Second)
	if _, ok := cache.Peek(); ok {
		t.Error("Expected Peek to ignore an expired entry")
	}
}

// TestConsume_ConcurrentSingleWinner verifies that under concurrent Consume
// calls exactly one caller receives the entry.
func TestConsume_ConcurrentSingleWinner(t *testing.T) {
	cache, now := newTestCache(Config{})
	cache.Populate(resultAt("fp-1", *now, time.Minute))

	const callers = 16
	var wg sync.WaitGroup
	var wins safeCounter

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := cache.Consume(""); ok {
				wins.inc()
			}
		}()
	}
	wg.Wait()

	if wins.value() != 1 {
		t.Errorf("Expected exactly 1 winning Consume, got %d", wins.value())
	}
}

type safeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *safeCounter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *safeCounter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
