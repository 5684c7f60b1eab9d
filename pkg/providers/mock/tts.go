package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/adapters/tts"
	"github.com/voxline/voxline/pkg/frames"
)

type TTSConfig struct {
	StreamID   string
	SampleRate int
	Channels   int
	// FrameCount audio frames of FrameBytes silence per synthesis.
	FrameCount int
	FrameBytes int
	// Fail makes every call emit an error frame instead of audio.
	Fail bool
}

// SpeechSynthesizer emits a deterministic start/audio/stop sequence per call.
type SpeechSynthesizer struct {
	cfg TTSConfig
	mu  sync.Mutex

	Calls []string
}

func NewTTS(cfg TTSConfig) *SpeechSynthesizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.FrameCount == 0 {
		cfg.FrameCount = 2
	}
	if cfg.FrameBytes == 0 {
		cfg.FrameBytes = 320
	}
	return &SpeechSynthesizer{cfg: cfg}
}

func (s *SpeechSynthesizer) Name() string { return "mock_tts" }

func (s *SpeechSynthesizer) Start(ctx context.Context) error { return nil }

func (s *SpeechSynthesizer) Close() error { return nil }

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) <-chan frames.Frame {
	s.mu.Lock()
	s.Calls = append(s.Calls, text)
	s.mu.Unlock()

	out := make(chan frames.Frame, s.cfg.FrameCount+2)
	go func() {
		defer close(out)
		defer func() {
			out <- frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(),
				frames.ControlSynthesisStopped, map[string]string{frames.MetaSource: "tts"})
		}()

		if s.cfg.Fail {
			out <- frames.NewErrorFrame(s.cfg.StreamID, time.Now().UnixNano(),
				"mock tts failure", "tts_status", map[string]string{frames.MetaSource: "tts"})
			return
		}

		out <- frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(),
			frames.ControlSynthesisStarted, map[string]string{frames.MetaSource: "tts"})
		for i := 0; i < s.cfg.FrameCount; i++ {
			if ctx != nil && ctx.Err() != nil {
				return
			}
			pcm := make([]byte, s.cfg.FrameBytes)
			out <- frames.NewAudioFrame(s.cfg.StreamID, time.Now().UnixNano(), pcm,
				s.cfg.SampleRate, s.cfg.Channels, map[string]string{frames.MetaSource: "tts"})
		}
	}()
	return out
}

var _ tts.SpeechSynthesizer = (*SpeechSynthesizer)(nil)
