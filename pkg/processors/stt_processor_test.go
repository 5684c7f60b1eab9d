package processors

import (
	"context"
	"testing"
	"time"

	"github.com/voxline/voxline/pkg/frames"
	"github.com/voxline/voxline/pkg/pipeline"
	"github.com/voxline/voxline/pkg/providers/mock"
	"github.com/voxline/voxline/pkg/resilience"
)

func TestSTTProcessorPumpsResultsToSink(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{
		StreamID:   "s1",
		Partials:   []string{"h", "he"},
		Transcript: "hello",
	})
	sink := pipeline.NewChanSink(16)
	proc := NewSTTProcessor(provider, sink, resilience.NewRetryPolicy(1, time.Millisecond))

	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	audio := frames.NewAudioFrame("s1", 0, make([]byte, 320), 16000, 1, nil)
	if err := proc.ProcessAudio(audio); err != nil {
		t.Fatalf("process audio: %v", err)
	}

	var texts []string
	deadline := time.After(2 * time.Second)
	for len(texts) < 3 {
		select {
		case f := <-sink.Frames():
			if tf, ok := f.(frames.TextFrame); ok {
				texts = append(texts, tf.Text())
			}
		case <-deadline:
			t.Fatalf("timed out, got %v", texts)
		}
	}
	want := []string{"h", "he", "hello"}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("texts = %v, want %v", texts, want)
		}
	}

	if err := proc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSTTProcessorStopTwice(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{StreamID: "s1"})
	proc := NewSTTProcessor(provider, pipeline.NewChanSink(4), resilience.NewRetryPolicy(1, time.Millisecond))

	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := proc.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := proc.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
