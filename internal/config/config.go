// Package config provides configuration for the prepdeck analysis server.
package config

import "time"

// Config holds all server and analysis settings.
type Config struct {
	// Server
	Addr     string `koanf:"addr"`      // HTTP listen address
	LogLevel string `koanf:"log_level"` // debug, info, warn, error

	// Detection
	ModelPath    string        `koanf:"model_path"`    // YuNet ONNX model; empty disables the backend
	TickInterval time.Duration `koanf:"tick_interval"` // video analysis cadence
	DetectBudget time.Duration `koanf:"detect_budget"` // per-detector deadline within one tick

	// Transcription
	WhisperURL string `koanf:"whisper_url"` // whisper-server base URL; empty disables server-side STT

	// Sessions
	MaxSessions int           `koanf:"max_sessions"` // concurrent interview sessions
	SessionTTL  time.Duration `koanf:"session_ttl"`  // idle session reaping
	RecordDir   string        `koanf:"record_dir"`   // JSONL session recordings; empty disables
}

// Default returns the recommended server configuration.
func Default() *Config {
	return &Config{
		Addr:     ":8085",
		LogLevel: "info",

		ModelPath:    "models/face_detection_yunet.onnx",
		TickInterval: 500 * time.Millisecond, // 2 analysis ticks per second
		DetectBudget: 400 * time.Millisecond, // leave headroom before the next tick

		WhisperURL: "",

		MaxSessions: 16,
		SessionTTL:  30 * time.Minute,
		RecordDir:   "",
	}
}
