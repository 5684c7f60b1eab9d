package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/voxline/voxline/pkg/adapters/stt"
	"github.com/voxline/voxline/pkg/errorsx"
	"github.com/voxline/voxline/pkg/frames"
	"github.com/voxline/voxline/pkg/logging"
	"github.com/voxline/voxline/pkg/metrics"
)

type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateClosing
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

type Config struct {
	URI        string
	SampleRate int
	Language   string
	StreamID   string
	UserID     string
}

// StreamingSTT speaks the Vosk server protocol: one JSON config handshake on
// connect, raw audio as binary messages, JSON results back. The send path and
// the receive loop share one connection guarded by mu; the adapter never
// reconnects on its own.
type StreamingSTT struct {
	cfg    Config
	out    chan frames.Frame
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	obs    metrics.Observer

	mu       sync.Mutex
	conn     *websocket.Conn
	state    connState
	loopDone chan struct{}
	ttfb     *metrics.TTFBTracker
}

func New(cfg Config) *StreamingSTT {
	if cfg.URI == "" {
		cfg.URI = "ws://localhost:2700"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
	}

	baseLogger := slog.Default()
	logger := logging.NewComponentLogger(baseLogger, "vosk_stt")

	return &StreamingSTT{
		cfg:    cfg,
		out:    make(chan frames.Frame, 256),
		logger: logger,
		obs:    metrics.NoopObserver{},
	}
}

func (s *StreamingSTT) Name() string { return "vosk_streaming" }

func (s *StreamingSTT) SetObserver(obs metrics.Observer) {
	if obs != nil {
		s.obs = obs
	}
}

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s.Connect()
}

// Connect dials the recognizer and sends the sample-rate handshake. On any
// failure the state is reset to disconnected so a later Connect is safe.
// There is no internal retry; that policy belongs to the caller.
func (s *StreamingSTT) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateConnected:
		return nil
	case stateConnecting, stateClosing:
		return errorsx.Wrap(fmt.Errorf("connect during %s", s.state), errorsx.ReasonSTTConnect)
	}
	s.state = stateConnecting

	if s.ctx == nil || s.ctx.Err() != nil {
		// A fresh lifetime for reconnects after Close.
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	s.logger.Debug("connecting to vosk",
		slog.String("uri", s.cfg.URI),
		slog.String("stream_id", s.cfg.StreamID))

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URI, nil)
	if err != nil {
		s.state = stateDisconnected
		s.logger.Error("vosk dial failed",
			slog.String("uri", s.cfg.URI),
			slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}

	handshake, _ := json.Marshal(map[string]any{
		"config": map[string]any{"sample_rate": s.cfg.SampleRate},
	})
	if err := conn.WriteMessage(websocket.TextMessage, handshake); err != nil {
		_ = conn.Close()
		s.state = stateDisconnected
		s.logger.Error("vosk handshake failed",
			slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}

	s.conn = conn
	s.state = stateConnected
	s.loopDone = make(chan struct{})
	go s.receiveLoop(conn, s.loopDone)

	s.logger.Info("vosk connected",
		slog.String("uri", s.cfg.URI),
		slog.String("stream_id", s.cfg.StreamID),
		slog.Int("sample_rate", s.cfg.SampleRate))
	return nil
}

// SendAudio forwards one chunk as a binary message, connecting first if no
// connection is live. Results arrive asynchronously on Results().
func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	connected := s.state == stateConnected
	s.mu.Unlock()
	if !connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	conn := s.conn
	if conn == nil || s.state != stateConnected {
		s.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("not connected"), errorsx.ReasonSTTSend)
	}
	err := conn.WriteMessage(websocket.BinaryMessage, frame.RawPayload())
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("failed to send audio to vosk",
			slog.String("error", err.Error()),
			slog.String("stream_id", s.cfg.StreamID))
		return errorsx.Wrap(err, errorsx.ReasonSTTSend)
	}

	s.mu.Lock()
	if s.ttfb == nil {
		tracker := metrics.NewTTFBTracker(s.obs, map[string]string{
			frames.MetaStreamID: s.cfg.StreamID,
			frames.MetaSource:   "stt",
		})
		tracker.Start()
		s.ttfb = tracker
	}
	s.mu.Unlock()

	rate := frame.Rate()
	if rate == 0 {
		rate = s.cfg.SampleRate
	}
	// 16-bit mono PCM.
	seconds := float64(len(frame.RawPayload())) / float64(2*rate)
	s.obs.RecordEvent(metrics.MetricsEvent{
		Name:  "stt_audio_seconds",
		Time:  time.Now(),
		Value: seconds,
		Tags: map[string]string{
			frames.MetaStreamID: s.cfg.StreamID,
			frames.MetaSource:   "stt",
		},
	})
	return nil
}

// Close cancels the receive loop and tears the connection down. It blocks
// until the loop has exited, so no frame is emitted after Close returns.
// Closing an already-closed adapter is a no-op.
func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	// A live loopDone means the receive loop may still emit, even when a
	// socket error has already reset state. Only skip the wait when no loop
	// was ever started or the previous Close finished it.
	if s.loopDone == nil && s.conn == nil {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosing
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = s.conn.Close()
		s.conn = nil
	}
	done := s.loopDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.state = stateDisconnected
	s.loopDone = nil
	// An open first-transcript window dies with the connection.
	s.ttfb = nil
	s.mu.Unlock()

	s.logger.Info("vosk disconnected",
		slog.String("stream_id", s.cfg.StreamID))
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

type resultMessage struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
}

func (s *StreamingSTT) receiveLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(err)
			return
		}
		s.handleMessage(data)
	}
}

func (s *StreamingSTT) handleDisconnect(err error) {
	s.mu.Lock()
	closing := s.state == stateClosing
	cancelled := s.ctx != nil && s.ctx.Err() != nil
	if !closing {
		s.state = stateDisconnected
		s.conn = nil
	}
	s.mu.Unlock()

	if closing || cancelled {
		s.logger.Debug("vosk receive loop exit",
			slog.String("stream_id", s.cfg.StreamID),
			slog.String("reason", "closed"))
		return
	}

	s.logger.Error("vosk socket error",
		slog.String("stream_id", s.cfg.StreamID),
		slog.String("error", err.Error()))
	s.emit(frames.NewErrorFrame(s.cfg.StreamID, time.Now().UnixNano(),
		fmt.Sprintf("vosk socket error: %v", err),
		string(errorsx.ReasonSTTReceive),
		map[string]string{frames.MetaSource: "stt"}))
}

func (s *StreamingSTT) handleMessage(data []byte) {
	var msg resultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("vosk malformed message",
			slog.String("stream_id", s.cfg.StreamID),
			slog.String("error", err.Error()))
		s.emit(frames.NewErrorFrame(s.cfg.StreamID, time.Now().UnixNano(),
			fmt.Sprintf("vosk decode error: %v", err),
			string(errorsx.ReasonSTTDecode),
			map[string]string{frames.MetaSource: "stt"}))
		return
	}

	switch {
	case msg.Text != nil:
		if *msg.Text == "" {
			return
		}
		s.emitTranscript(*msg.Text, true)
	case msg.Partial != nil:
		if *msg.Partial == "" {
			return
		}
		s.emitTranscript(*msg.Partial, false)
	}
	// Anything else is ignored.
}

func (s *StreamingSTT) emitTranscript(text string, isFinal bool) {
	s.mu.Lock()
	if s.ttfb != nil {
		s.ttfb.Stop()
		s.ttfb = nil
	}
	s.mu.Unlock()

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

	s.logger.Debug("transcript received",
		slog.String("stream_id", s.cfg.StreamID),
		slog.String("transcript", text),
		slog.Bool("is_final", isFinal))

	s.emit(frames.NewTextFrame(s.cfg.StreamID, time.Now().UnixNano(), text, meta))

	if isFinal {
		flushMeta := map[string]string{
			frames.MetaStreamID: s.cfg.StreamID,
			frames.MetaSource:   "stt",
			frames.MetaReason:   "final_transcript",
		}
		s.emit(frames.NewControlFrame(s.cfg.StreamID, time.Now().UnixNano(), frames.ControlFlush, flushMeta))
	}
}

func (s *StreamingSTT) emit(f frames.Frame) {
	select {
	case s.out <- f:
	default:
		s.logger.Warn("vosk out channel full",
			slog.String("stream_id", s.cfg.StreamID))
	}
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
