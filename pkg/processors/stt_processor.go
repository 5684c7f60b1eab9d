package processors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxline/voxline/pkg/adapters/stt"
	"github.com/voxline/voxline/pkg/frames"
	"github.com/voxline/voxline/pkg/logging"
	"github.com/voxline/voxline/pkg/pipeline"
	"github.com/voxline/voxline/pkg/resilience"
)

// STTProcessor bridges one recognizer to the frame sink: pipeline audio goes
// in through ProcessAudio, recognition frames come out through the sink. The
// provider itself never retries; the reconnect policy lives here.
type STTProcessor struct {
	provider stt.StreamingSTT
	sink     pipeline.FrameSink
	retry    resilience.RetryPolicy
	logger   *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	pumpDone chan struct{}

	mu      sync.Mutex
	started bool
}

func NewSTTProcessor(provider stt.StreamingSTT, sink pipeline.FrameSink, retry resilience.RetryPolicy) *STTProcessor {
	return &STTProcessor{
		provider: provider,
		sink:     sink,
		retry:    retry,
		logger:   logging.NewComponentLogger(slog.Default(), "stt_processor"),
	}
}

func (p *STTProcessor) Name() string { return "stt_processor" }

func (p *STTProcessor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(ctx)
	if err := p.retry.Do(func() error { return p.provider.Start(p.ctx) }); err != nil {
		p.logger.Error("stt provider start failed",
			slog.String("provider", p.provider.Name()),
			slog.String("error", err.Error()))
		return err
	}

	p.pumpDone = make(chan struct{})
	go p.pump()

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	return nil
}

// ProcessAudio forwards one audio chunk, retrying transient send failures.
func (p *STTProcessor) ProcessAudio(frame frames.AudioFrame) error {
	return p.retry.Do(func() error { return p.provider.SendAudio(frame) })
}

// Stop tears the provider down and waits for the pump to exit, so nothing is
// pushed to the sink after Stop returns.
func (p *STTProcessor) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	err := p.provider.Close()
	if p.pumpDone != nil {
		<-p.pumpDone
	}
	return err
}

func (p *STTProcessor) pump() {
	defer close(p.pumpDone)
	for {
		select {
		case <-p.ctx.Done():
			return
		case f, ok := <-p.provider.Results():
			if !ok {
				return
			}
			p.sink.PushFrame(f)
		}
	}
}
