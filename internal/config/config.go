// Package config provides the configuration schema, loader, and provider
// registry for the voicelink sidecar.
package config

import "time"

// LogLevel controls log verbosity for the voicelink server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voicelink.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Agent     AgentConfig     `yaml:"agent"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds network and logging settings for the voicelink server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8766").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AgentConfig describes the remote agent gateway and the default agent a new
// session is bound to before any client reconfiguration.
type AgentConfig struct {
	// ID is the default agent identifier (e.g. "main"). A session derives its
	// gateway session key from this until the client sends a config message.
	ID string `yaml:"id"`

	// GatewayURL is the agent gateway WebSocket endpoint
	// (e.g. "ws://localhost:3001/gateway").
	GatewayURL string `yaml:"gateway_url"`

	// AuthToken is sent as a Bearer token on gateway handshakes. Optional.
	AuthToken string `yaml:"auth_token"`

	// Deadline caps one full agent exchange. Zero means the built-in 90 s.
	Deadline time.Duration `yaml:"deadline"`

	// DialTimeout caps connection establishment per exchange. Zero means the
	// built-in 10 s.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ProvidersConfig declares which provider implementation to use for each
// speech direction. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "whisper", "piper", "openai", "mock").
	Name string `yaml:"name"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint: the Piper server
	// address for local synthesis, or an OpenAI-compatible API base URL.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider: a whisper.cpp model file
	// path for native recognition, or a hosted model name.
	Model string `yaml:"model"`

	// Language hints the spoken language for recognition (ISO-639-1).
	Language string `yaml:"language"`

	// Voice is the default synthesis voice identifier.
	Voice string `yaml:"voice"`

	// ModelsDir is the on-disk voice model directory for local synthesis;
	// used to serve the voice catalogue.
	ModelsDir string `yaml:"models_dir"`

	// Fallbacks lists additional providers of the same kind to try, in order,
	// when this one fails. Each fallback gets its own circuit breaker.
	// Fallbacks must not nest.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// PipelineConfig tunes the per-session processing behaviour.
type PipelineConfig struct {
	// Workers caps concurrent recognition/synthesis jobs across all
	// sessions. Zero means half the logical CPUs.
	Workers int `yaml:"workers"`

	// KeepaliveInterval is how long a connection may stay silent before the
	// server sends an unsolicited pong. Zero means the built-in 120 s.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`

	// MinAudioBytes rejects audio payloads smaller than this. Zero means the
	// built-in 1024.
	MinAudioBytes int `yaml:"min_audio_bytes"`
}
