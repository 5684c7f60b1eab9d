package processors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxline/voxline/pkg/adapters/tts"
	"github.com/voxline/voxline/pkg/logging"
	"github.com/voxline/voxline/pkg/pipeline"
)

// TTSProcessor runs synthesis calls against one synthesizer and forwards the
// produced frames to the sink. Calls are serialized per processor so the
// started/stopped marker pairs of concurrent utterances never interleave.
type TTSProcessor struct {
	synth  tts.SpeechSynthesizer
	sink   pipeline.FrameSink
	logger *slog.Logger

	mu sync.Mutex
}

func NewTTSProcessor(synth tts.SpeechSynthesizer, sink pipeline.FrameSink) *TTSProcessor {
	return &TTSProcessor{
		synth:  synth,
		sink:   sink,
		logger: logging.NewComponentLogger(slog.Default(), "tts_processor"),
	}
}

func (p *TTSProcessor) Name() string { return "tts_processor" }

func (p *TTSProcessor) Start(ctx context.Context) error {
	return p.synth.Start(ctx)
}

func (p *TTSProcessor) Stop() error {
	return p.synth.Close()
}

// Speak runs one synthesis to completion, pushing every frame to the sink in
// stream order. A synthesis failure surfaces downstream as an error frame,
// not as a returned error; the pipeline treats it as "no audio for this
// utterance".
func (p *TTSProcessor) Speak(ctx context.Context, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("speaking",
		slog.String("synth", p.synth.Name()),
		slog.Int("chars", len(text)))

	for f := range p.synth.Synthesize(ctx, text) {
		p.sink.PushFrame(f)
	}
}
