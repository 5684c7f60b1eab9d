package pocket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voxline/voxline/pkg/adapters/tts"
	"github.com/voxline/voxline/pkg/errorsx"
	"github.com/voxline/voxline/pkg/frames"
	"github.com/voxline/voxline/pkg/logging"
	"github.com/voxline/voxline/pkg/metrics"
)

// wavHeaderSize is the minimal RIFF/WAVE header the pocket-tts server
// prepends to its PCM stream. Servers with a longer header are handled via
// Config.HeaderSize, not by parsing the container.
const wavHeaderSize = 44

const defaultChunkSize = 1024

// defaultSendTimeout bounds how long a synthesis waits on a consumer that
// has stopped draining its channel without cancelling the context. Hitting
// it abandons the call so the response body is not held open forever.
const defaultSendTimeout = 30 * time.Second

type Config struct {
	BaseURL     string
	VoiceID     string
	SampleRate  int
	ChunkSize   int
	HeaderSize  int
	StreamID    string
	SendTimeout time.Duration
}

// SpeechSynthesizer talks to a pocket-tts HTTP server. One shared client
// serves all Synthesize calls; each call is an independent exchange, so
// concurrent calls are safe.
type SpeechSynthesizer struct {
	cfg    Config
	logger *slog.Logger
	obs    metrics.Observer

	mu     sync.Mutex
	client *http.Client
}

func New(cfg Config) *SpeechSynthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.HeaderSize == 0 {
		cfg.HeaderSize = wavHeaderSize
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	baseLogger := slog.Default()
	logger := logging.NewComponentLogger(baseLogger, "pocket_tts")

	return &SpeechSynthesizer{
		cfg:    cfg,
		logger: logger,
		obs:    metrics.NoopObserver{},
	}
}

func (s *SpeechSynthesizer) Name() string { return "pocket_tts" }

func (s *SpeechSynthesizer) SetObserver(obs metrics.Observer) {
	if obs != nil {
		s.obs = obs
	}
}

func (s *SpeechSynthesizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		s.client = &http.Client{}
	}
	return nil
}

func (s *SpeechSynthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

// Synthesize submits text and streams the resulting frames: a
// synthesis_started marker once a success status is confirmed, audio frames
// of ChunkSize bytes with the WAV header stripped, and a synthesis_stopped
// marker last on every path. Errors during the exchange become a single
// error frame; they never make the adapter unusable. Cancelling ctx
// abandons the call cleanly with no error frame. A consumer that simply
// stops draining without cancelling is walked away from after SendTimeout.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) <-chan frames.Frame {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make(chan frames.Frame, 64)
	go s.run(ctx, text, out)
	return out
}

func (s *SpeechSynthesizer) run(ctx context.Context, text string, out chan frames.Frame) {
	requestID := uuid.NewString()
	tracker := metrics.NewTTFBTracker(s.obs, map[string]string{
		frames.MetaStreamID:  s.cfg.StreamID,
		frames.MetaRequestID: requestID,
		frames.MetaSource:    "tts",
	})

	defer func() {
		tracker.Stop()
		tracker.Report()
		stop := frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(),
			frames.ControlSynthesisStopped, map[string]string{
				frames.MetaSource:    "tts",
				frames.MetaRequestID: requestID,
			})
		s.send(ctx, out, stop)
		close(out)
	}()

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		client = &http.Client{}
		s.mu.Lock()
		s.client = client
		s.mu.Unlock()
	}

	s.logger.Debug("generating tts",
		slog.String("stream_id", s.cfg.StreamID),
		slog.String("request_id", requestID),
		slog.Int("chars", len(text)))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("text", text); err != nil {
		s.emitError(ctx, out, fmt.Sprintf("pocket tts form error: %v", err), errorsx.ReasonTTSRequest, 0)
		return
	}
	if s.cfg.VoiceID != "" {
		if err := form.WriteField("voice", s.cfg.VoiceID); err != nil {
			s.emitError(ctx, out, fmt.Sprintf("pocket tts form error: %v", err), errorsx.ReasonTTSRequest, 0)
			return
		}
	}
	if err := form.Close(); err != nil {
		s.emitError(ctx, out, fmt.Sprintf("pocket tts form error: %v", err), errorsx.ReasonTTSRequest, 0)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/tts", &body)
	if err != nil {
		s.emitError(ctx, out, fmt.Sprintf("pocket tts request error: %v", err), errorsx.ReasonTTSRequest, 0)
		return
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	tracker.Start()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.emitError(ctx, out, fmt.Sprintf("pocket tts request error: %v", err), errorsx.ReasonTTSRequest, 0)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("pocket tts error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(detail)),
			slog.String("stream_id", s.cfg.StreamID))
		s.emitError(ctx, out,
			fmt.Sprintf("pocket tts error: %d - %s", resp.StatusCode, string(detail)),
			errorsx.ReasonTTSStatus, resp.StatusCode)
		return
	}

	tracker.RecordUsage(float64(len(text)), "characters")

	start := frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(),
		frames.ControlSynthesisStarted, map[string]string{
			frames.MetaSource:    "tts",
			frames.MetaRequestID: requestID,
		})
	if !s.send(ctx, out, start) {
		return
	}

	s.streamAudio(ctx, resp.Body, out, tracker, requestID)
}

// streamAudio strips exactly HeaderSize bytes from the front of the stream,
// wherever the transport's chunk boundaries fall, and re-chunks the rest
// into ChunkSize audio frames. The last frame may be short.
func (s *SpeechSynthesizer) streamAudio(ctx context.Context, r io.Reader, out chan frames.Frame, tracker *metrics.TTFBTracker, requestID string) {
	meta := map[string]string{
		frames.MetaSource:    "tts",
		frames.MetaRequestID: requestID,
	}
	skip := s.cfg.HeaderSize
	pending := make([]byte, 0, s.cfg.ChunkSize*2)
	readBuf := make([]byte, 4096)

	emit := func(chunk []byte) bool {
		f := frames.NewAudioFrameFromPool(s.cfg.StreamID, time.Now().UnixNano(),
			chunk, s.cfg.SampleRate, 1, meta)
		if !s.send(ctx, out, f) {
			frames.ReleaseAudioFrame(f)
			return false
		}
		tracker.Stop()
		return true
	}

	for {
		n, err := r.Read(readBuf)
		if n > 0 {
			p := readBuf[:n]
			if skip > 0 {
				d := skip
				if d > len(p) {
					d = len(p)
				}
				skip -= d
				p = p[d:]
			}
			pending = append(pending, p...)
			for len(pending) >= s.cfg.ChunkSize {
				if !emit(pending[:s.cfg.ChunkSize]) {
					return
				}
				pending = pending[:copy(pending, pending[s.cfg.ChunkSize:])]
			}
		}
		if err != nil {
			if err == io.EOF {
				if len(pending) > 0 {
					emit(pending)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("pocket tts stream error",
				slog.String("error", err.Error()),
				slog.String("stream_id", s.cfg.StreamID))
			s.emitError(ctx, out, fmt.Sprintf("pocket tts stream error: %v", err), errorsx.ReasonTTSStream, 0)
			return
		}
	}
}

func (s *SpeechSynthesizer) emitError(ctx context.Context, out chan frames.Frame, msg string, reason errorsx.ReasonCode, status int) {
	meta := map[string]string{frames.MetaSource: "tts"}
	if status != 0 {
		meta[frames.MetaStatusCode] = strconv.Itoa(status)
	}
	s.send(ctx, out, frames.NewErrorFrame(s.cfg.StreamID, time.Now().UnixNano(), msg, string(reason), meta))
}

// send delivers f unless the context is cancelled or the consumer stops
// draining for longer than SendTimeout. A false return means the synthesis
// should be abandoned.
func (s *SpeechSynthesizer) send(ctx context.Context, out chan frames.Frame, f frames.Frame) bool {
	stall := time.NewTimer(s.cfg.SendTimeout)
	defer stall.Stop()
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	case <-stall.C:
		s.logger.Warn("tts consumer stalled, abandoning synthesis",
			slog.String("stream_id", s.cfg.StreamID))
		return false
	}
}

var _ tts.SpeechSynthesizer = (*SpeechSynthesizer)(nil)
