package specocr

import (
	"log/slog"
	"sync"
	"time"
)

// observerList fans coordinator notifications out to registered observers.
// Delivery is synchronous and each dispatch runs inside its own recover
// boundary so a faulty observer cannot crash or stall the coordinator.
type observerList struct {
	mu        sync.RWMutex
	observers []Observer
}

func newObserverList() *observerList {
	return &observerList{}
}

// register adds an observer. Observers cannot be removed; the list lives as
// long as its coordinator.
func (l *observerList) register(o Observer) {
	if o == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

func (l *observerList) snapshot() []Observer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Observer, len(l.observers))
	copy(out, l.observers)
	return out
}

func (l *observerList) notifyExecutionCompleted(result *SpeculativeResult, duration time.Duration) {
	for _, o := range l.snapshot() {
		dispatch(func() { o.ExecutionCompleted(result, duration) })
	}
}

func (l *observerList) notifyCacheInvalidated(reason InvalidationReason, age time.Duration) {
	for _, o := range l.snapshot() {
		dispatch(func() { o.CacheInvalidated(reason, age) })
	}
}

// dispatch runs one observer callback, swallowing panics.
func dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("observer panicked during notification", "panic", r)
		}
	}()
	fn()
}
