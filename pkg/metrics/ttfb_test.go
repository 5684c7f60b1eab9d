package metrics

import (
	"testing"
	"time"
)

func TestTTFBStopIsIdempotent(t *testing.T) {
	obs := NewMemoryObserver()
	tr := NewTTFBTracker(obs, map[string]string{"stream_id": "s1"})
	tr.Start()
	time.Sleep(time.Millisecond)
	tr.Stop()
	tr.Stop()

	events := obs.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one ttfb event, got %d", len(events))
	}
	if events[0].Name != "ttfb" {
		t.Fatalf("expected ttfb event, got %s", events[0].Name)
	}
	if events[0].Value <= 0 {
		t.Fatalf("expected positive ttfb value, got %f", events[0].Value)
	}
	if events[0].Tags["stream_id"] != "s1" {
		t.Fatalf("expected stream tag carried through")
	}
}

func TestTTFBStopWithoutStart(t *testing.T) {
	obs := NewMemoryObserver()
	tr := NewTTFBTracker(obs, nil)
	tr.Stop()

	if events := obs.Snapshot(); len(events) != 0 {
		t.Fatalf("expected no events for unstarted stop, got %d", len(events))
	}
}

func TestUsageReportedOncePerRequest(t *testing.T) {
	obs := NewMemoryObserver()
	tr := NewTTFBTracker(obs, nil)
	tr.RecordUsage(12, "characters")
	tr.RecordUsage(5, "characters")
	tr.Report()
	tr.Report()

	events := obs.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one usage event, got %d", len(events))
	}
	if events[0].Value != 17 {
		t.Fatalf("expected accumulated usage 17, got %f", events[0].Value)
	}
	if events[0].Tags["unit"] != "characters" {
		t.Fatalf("expected unit tag, got %q", events[0].Tags["unit"])
	}
}
