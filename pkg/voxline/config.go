package voxline

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Vendors   VendorsConfig `mapstructure:"vendors"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
	// MetricsPath, when set, appends metric events as JSON lines to the file.
	MetricsPath string `mapstructure:"metrics_path"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
}

// VoskSettings are the recognized options for the vosk recognizer vendor.
type VoskSettings struct {
	URI        string `mapstructure:"uri"`
	SampleRate int    `mapstructure:"sample_rate"`
	Language   string `mapstructure:"language"`
}

// PocketSettings are the recognized options for the pocket-tts vendor.
type PocketSettings struct {
	BaseURL    string `mapstructure:"base_url"`
	VoiceID    string `mapstructure:"voice_id"`
	SampleRate int    `mapstructure:"sample_rate"`
	ChunkSize  int    `mapstructure:"chunk_size"`
	HeaderSize int    `mapstructure:"header_size"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("vendors.stt.provider", "vosk")
	v.SetDefault("vendors.stt.settings.uri", "ws://localhost:2700")
	v.SetDefault("vendors.stt.settings.sample_rate", 16000)
	v.SetDefault("vendors.stt.settings.language", "en")
	v.SetDefault("vendors.tts.provider", "pocket")
	v.SetDefault("vendors.tts.settings.base_url", "http://localhost:8000")
	v.SetDefault("vendors.tts.settings.sample_rate", 24000)
	v.SetDefault("vendors.tts.settings.chunk_size", 1024)
	v.SetDefault("vendors.tts.settings.header_size", 44)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_path", "")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}
