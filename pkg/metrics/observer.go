package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// MultiObserver fans every event out to each child in order. Nil children
// are dropped at construction.
type MultiObserver struct {
	children []Observer
}

func NewMultiObserver(children ...Observer) *MultiObserver {
	kept := make([]Observer, 0, len(children))
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &MultiObserver{children: kept}
}

func (m *MultiObserver) RecordEvent(ev MetricsEvent) {
	for _, c := range m.children {
		c.RecordEvent(ev)
	}
}
