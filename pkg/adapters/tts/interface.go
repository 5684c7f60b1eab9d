package tts

import (
	"context"

	"github.com/voxline/voxline/pkg/frames"
)

// SpeechSynthesizer defines the contract for any synthesis backend.
//
// Synthesize returns a per-call channel rather than a shared results stream:
// every invocation yields its own ordered sequence ending in a
// synthesis_stopped control frame, and the channel is closed after that
// frame. A caller may stop consuming early; cancelling ctx releases the
// underlying exchange immediately, and implementations must also give up on
// their own after a bounded wait if the channel is never drained again.
type SpeechSynthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the synthesizer's client session.
	Start(ctx context.Context) error
	// Close releases the client session. Idempotent.
	Close() error
	// Synthesize submits text and streams the resulting frames.
	Synthesize(ctx context.Context, text string) <-chan frames.Frame
}

// Config contains vendor-agnostic TTS configuration.
type Config struct {
	StreamID   string
	SampleRate int
	Channels   int
}
