package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/overlaykit/specocr"
)

// MockRecognitionEngine is a mock implementation of RecognitionEngine for testing
type MockRecognitionEngine struct {
	RecognizeFunc func(ctx context.Context, image []byte) (*specocr.RecognitionOutput, error)

	mu        sync.Mutex
	CallCount int
	LastImage []byte
}

func (m *MockRecognitionEngine) Recognize(ctx context.Context, image []byte) (*specocr.RecognitionOutput, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastImage = image
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, image)
	}

	// Default: return a single-line recognition
	return &specocr.RecognitionOutput{Text: "mock text"}, nil
}

// Calls returns the current call count under the mock's lock.
func (m *MockRecognitionEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockMetricsProvider is a mock implementation of MetricsProvider for testing
type MockMetricsProvider struct {
	CurrentMetricsFunc func(ctx context.Context) (specocr.ResourceMetrics, error)

	mu        sync.Mutex
	CallCount int
}

func (m *MockMetricsProvider) CurrentMetrics(ctx context.Context) (specocr.ResourceMetrics, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.CurrentMetricsFunc != nil {
		return m.CurrentMetricsFunc(ctx)
	}

	// Default: an idle machine
	return specocr.ResourceMetrics{CPUPercent: 10}, nil
}

// MockModeFlags is a mock implementation of ModeFlags for testing
type MockModeFlags struct {
	Exclusive bool
	mu        sync.Mutex
}

func (m *MockModeFlags) ExclusiveModeActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Exclusive
}

func (m *MockModeFlags) SetExclusive(v bool) {
	m.mu.Lock()
	m.Exclusive = v
	m.mu.Unlock()
}

// InvalidationEvent records one CacheInvalidated notification.
type InvalidationEvent struct {
	Reason specocr.InvalidationReason
	Age    time.Duration
}

// MockObserver records every notification it receives. Set Panic to make
// each callback panic, for testing observer isolation.
type MockObserver struct {
	Panic bool

	mu            sync.Mutex
	Completed     []*specocr.SpeculativeResult
	Invalidations []InvalidationEvent
}

func (m *MockObserver) ExecutionCompleted(result *specocr.SpeculativeResult, duration time.Duration) {
	m.mu.Lock()
	m.Completed = append(m.Completed, result)
	m.mu.Unlock()

	if m.Panic {
		panic("mock observer panic")
	}
}

func (m *MockObserver) CacheInvalidated(reason specocr.InvalidationReason, age time.Duration) {
	m.mu.Lock()
	m.Invalidations = append(m.Invalidations, InvalidationEvent{Reason: reason, Age: age})
	m.mu.Unlock()

	if m.Panic {
		panic("mock observer panic")
	}
}

// CompletedCount returns how many ExecutionCompleted notifications arrived.
func (m *MockObserver) CompletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Completed)
}

// InvalidationReasons returns the reasons seen so far, in order.
func (m *MockObserver) InvalidationReasons() []specocr.InvalidationReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	reasons := make([]specocr.InvalidationReason, 0, len(m.Invalidations))
	for _, ev := range m.Invalidations {
		reasons = append(reasons, ev.Reason)
	}
	return reasons
}
