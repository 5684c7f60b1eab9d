package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/adapters/stt"
	"github.com/voxline/voxline/pkg/frames"
)

type STTConfig struct {
	StreamID string
	UserID   string
	Language string
	// Partials are emitted in order before the final transcript on the
	// first SendAudio call.
	Partials   []string
	Transcript string
}

// StreamingSTT is a deterministic recognizer for tests and examples: the
// first audio chunk triggers the scripted partial/final sequence.
type StreamingSTT struct {
	cfg     STTConfig
	out     chan frames.Frame
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	emitted bool
}

func NewSTT(cfg STTConfig) *StreamingSTT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &StreamingSTT{cfg: cfg, out: make(chan frames.Frame, 16)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
	s.started = false
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("not started")
	}
	if s.emitted {
		s.mu.Unlock()
		return nil
	}
	s.emitted = true
	s.mu.Unlock()

	for _, partial := range s.cfg.Partials {
		s.out <- s.textFrame(partial, false)
	}
	s.out <- s.textFrame(s.cfg.Transcript, true)
	s.out <- frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(), frames.ControlFlush, map[string]string{
		frames.MetaSource: "stt",
		frames.MetaReason: "final_transcript",
	})
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

func (s *StreamingSTT) textFrame(text string, isFinal bool) frames.TextFrame {
	meta := map[string]string{
		frames.MetaStreamID:  s.cfg.StreamID,
		frames.MetaSource:    "stt",
		frames.MetaUserID:    s.cfg.UserID,
		frames.MetaLanguage:  s.cfg.Language,
		frames.MetaTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if isFinal {
		meta[frames.MetaIsFinal] = "true"
	} else {
		meta[frames.MetaIsFinal] = "false"
	}
	return frames.NewTextFrame(s.cfg.StreamID, time.Now().UnixNano(), text, meta)
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
