// Package pipeline holds the narrow contract the adapters need from the
// surrounding frame pipeline: a sink to push frames into. The pipeline's own
// scheduling and processor graph live outside this module.
package pipeline

import "github.com/voxline/voxline/pkg/frames"

// FrameSink receives frames pushed by adapters. Delivery is fire-and-forget;
// ordering is preserved per adapter instance.
type FrameSink interface {
	PushFrame(f frames.Frame)
}

// SinkFunc adapts a function to the FrameSink interface.
type SinkFunc func(frames.Frame)

func (fn SinkFunc) PushFrame(f frames.Frame) { fn(f) }

// ChanSink is a buffered channel-backed sink. Frames are dropped when the
// consumer falls behind rather than blocking the producing adapter.
type ChanSink struct {
	ch chan frames.Frame
}

func NewChanSink(buffer int) *ChanSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChanSink{ch: make(chan frames.Frame, buffer)}
}

func (s *ChanSink) PushFrame(f frames.Frame) {
	select {
	case s.ch <- f:
	default:
	}
}

func (s *ChanSink) Frames() <-chan frames.Frame { return s.ch }
