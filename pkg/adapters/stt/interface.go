package stt

import (
	"context"

	"github.com/voxline/voxline/pkg/frames"
)

// StreamingSTT defines the contract for any streaming recognizer backend.
type StreamingSTT interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the recognizer connection and its receive loop.
	Start(ctx context.Context) error
	// Close shuts down the connection. Idempotent; no frames are emitted
	// after Close returns.
	Close() error
	// SendAudio forwards raw audio to the recognizer. Connects lazily if
	// no connection is active.
	SendAudio(frame frames.AudioFrame) error
	// Results returns a channel of transcription/control/error frames.
	Results() <-chan frames.Frame
}

// Config contains vendor-agnostic STT configuration.
type Config struct {
	StreamID   string
	UserID     string
	SampleRate int
	Language   string
}
