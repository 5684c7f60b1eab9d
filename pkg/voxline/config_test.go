package voxline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxline/voxline/pkg/configutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "vendors:\n  stt:\n    provider: vosk\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Vendors.STT.Provider != "vosk" {
		t.Fatalf("stt provider = %q", cfg.Vendors.STT.Provider)
	}
	if cfg.Vendors.TTS.Provider != "pocket" {
		t.Fatalf("tts provider = %q", cfg.Vendors.TTS.Provider)
	}

	var stt VoskSettings
	if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &stt); err != nil {
		t.Fatalf("decode stt settings: %v", err)
	}
	if stt.URI != "ws://localhost:2700" || stt.SampleRate != 16000 {
		t.Fatalf("stt defaults = %+v", stt)
	}

	var tts PocketSettings
	if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &tts); err != nil {
		t.Fatalf("decode tts settings: %v", err)
	}
	if tts.BaseURL != "http://localhost:8000" || tts.SampleRate != 24000 ||
		tts.ChunkSize != 1024 || tts.HeaderSize != 44 {
		t.Fatalf("tts defaults = %+v", tts)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
vendors:
  stt:
    provider: vosk
    settings:
      uri: ws://stt.internal:2700
      sample_rate: 8000
  tts:
    provider: pocket
    settings:
      base_url: http://tts.internal:9000
      voice_id: nova
      chunk_size: 640
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}

	var stt VoskSettings
	if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &stt); err != nil {
		t.Fatalf("decode stt settings: %v", err)
	}
	if stt.URI != "ws://stt.internal:2700" || stt.SampleRate != 8000 {
		t.Fatalf("stt settings = %+v", stt)
	}

	var tts PocketSettings
	if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &tts); err != nil {
		t.Fatalf("decode tts settings: %v", err)
	}
	if tts.BaseURL != "http://tts.internal:9000" || tts.VoiceID != "nova" || tts.ChunkSize != 640 {
		t.Fatalf("tts settings = %+v", tts)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
