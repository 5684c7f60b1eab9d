package runner

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateNew:      "new",
		StateStarting: "starting",
		StateRunning:  "running",
		StateDraining: "draining",
		StateStopped:  "stopped",
		State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestFprintBannerIncludesVersion(t *testing.T) {
	var buf bytes.Buffer
	FprintBanner(&buf)
	if !strings.Contains(buf.String(), "Version: "+Version) {
		t.Fatalf("banner missing version line: %q", buf.String())
	}
}

func TestLifecycleRunnerStopDrainsOnce(t *testing.T) {
	var drains, stops atomic.Int32
	r := NewLifecycleRunner(DrainerFunc(func() error {
		drains.Add(1)
		return nil
	}), Hooks{
		OnStop: func() { stops.Add(1) },
	}, time.Second)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.State() != StateRunning {
		if time.Now().After(deadline) {
			t.Fatalf("runner never reached running, state = %s", r.State())
		}
		time.Sleep(time.Millisecond)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	if got := drains.Load(); got != 1 {
		t.Fatalf("drain calls = %d, want 1", got)
	}
	if got := stops.Load(); got != 1 {
		t.Fatalf("OnStop calls = %d, want 1", got)
	}
	if r.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", r.State())
	}
}

func TestLifecycleRunnerDrainTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewLifecycleRunner(DrainerFunc(func() error {
		<-block
		return nil
	}), Hooks{}, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.State() != StateRunning {
		if time.Now().After(deadline) {
			t.Fatalf("runner never reached running")
		}
		time.Sleep(time.Millisecond)
	}

	if err := r.Stop(); err == nil || !strings.Contains(err.Error(), "drain timeout") {
		t.Fatalf("stop error = %v, want drain timeout", err)
	}
}
