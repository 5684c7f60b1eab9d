package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/metrics"
)

// LatencyObserver assembles per-stream timing from adapter metric events:
// audio seconds in, recognizer TTFB, synthesis TTFB, per-request usage.
type LatencyObserver struct {
	mu      sync.Mutex
	streams map[string]*trace
	log     *slog.Logger
}

type trace struct {
	audioSeconds float64
	sttTTFB      float64
	ttsTTFB      float64
	usage        float64
	usageUnit    string
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		streams: make(map[string]*trace),
		log:     log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	streamID := ""
	if ev.Tags != nil {
		streamID = ev.Tags["stream_id"]
	}
	if streamID == "" {
		return
	}
	o.mu.Lock()
	t := o.streams[streamID]
	if t == nil {
		t = &trace{}
		o.streams[streamID] = t
	}
	switch ev.Name {
	case "stt_audio_seconds":
		t.audioSeconds += ev.Value
	case "ttfb":
		if ev.Tags["source"] == "stt" {
			t.sttTTFB = ev.Value
		} else {
			t.ttsTTFB = ev.Value
		}
	case "usage":
		t.usage += ev.Value
		t.usageUnit = ev.Tags["unit"]
		o.logTraceLocked(streamID, t)
	}
	o.mu.Unlock()
}

func (o *LatencyObserver) logTraceLocked(streamID string, t *trace) {
	o.log.Info("latency",
		"stream_id", streamID,
		"audio_seconds", t.audioSeconds,
		"stt_ttfb_ms", toMs(t.sttTTFB),
		"tts_ttfb_ms", toMs(t.ttsTTFB),
		"usage", t.usage,
		"usage_unit", t.usageUnit,
	)
}

func toMs(seconds float64) int64 {
	if seconds <= 0 {
		return -1
	}
	return time.Duration(seconds * float64(time.Second)).Milliseconds()
}
