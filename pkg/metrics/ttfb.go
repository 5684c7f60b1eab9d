package metrics

import (
	"sync"
	"time"
)

// TTFBTracker measures one request's time-to-first-byte window and its usage
// counters. One tracker per request; not reusable across requests.
type TTFBTracker struct {
	mu       sync.Mutex
	obs      Observer
	tags     map[string]string
	started  time.Time
	stopped  bool
	usage    float64
	unit     string
	reported bool
}

func NewTTFBTracker(obs Observer, tags map[string]string) *TTFBTracker {
	if obs == nil {
		obs = NoopObserver{}
	}
	copied := make(map[string]string, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	return &TTFBTracker{obs: obs, tags: copied}
}

// Start opens the window. Calling Start again restarts an unstopped window.
func (t *TTFBTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.started = time.Now()
}

// Stop closes the window and records the ttfb event. A second Stop, or a
// Stop without a preceding Start, is a no-op.
func (t *TTFBTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.started.IsZero() {
		t.stopped = true
		return
	}
	t.stopped = true
	now := time.Now()
	t.obs.RecordEvent(MetricsEvent{
		Name:  "ttfb",
		Time:  now,
		Value: now.Sub(t.started).Seconds(),
		Tags:  t.tags,
	})
}

// RecordUsage accumulates units (characters synthesized, audio seconds
// transcribed) scoped to this request.
func (t *TTFBTracker) RecordUsage(units float64, unit string) {
	t.mu.Lock()
	t.usage += units
	t.unit = unit
	t.mu.Unlock()
}

// Report emits the accumulated usage once. Subsequent calls are no-ops.
func (t *TTFBTracker) Report() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reported || t.usage == 0 {
		t.reported = true
		return
	}
	t.reported = true
	tags := make(map[string]string, len(t.tags)+1)
	for k, v := range t.tags {
		tags[k] = v
	}
	tags["unit"] = t.unit
	t.obs.RecordEvent(MetricsEvent{
		Name:  "usage",
		Time:  time.Now(),
		Value: t.usage,
		Tags:  tags,
	})
}
