package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "openai", "mock"},
	"tts": {"piper", "openai", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the fields that have serviceable defaults so the
// minimal useful config is just a gateway URL and two provider names.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8766"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Agent.ID == "" {
		cfg.Agent.ID = "main"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Agent gateway
	if cfg.Agent.GatewayURL == "" {
		errs = append(errs, errors.New("agent.gateway_url is required"))
	}
	if cfg.Agent.Deadline < 0 {
		errs = append(errs, fmt.Errorf("agent.deadline %s must not be negative", cfg.Agent.Deadline))
	}
	if cfg.Agent.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent.dial_timeout %s must not be negative", cfg.Agent.DialTimeout))
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}
	errs = append(errs, validateEntry("stt", "providers.stt", cfg.Providers.STT)...)
	errs = append(errs, validateEntry("tts", "providers.tts", cfg.Providers.TTS)...)
	for i, fb := range cfg.Providers.STT.Fallbacks {
		path := fmt.Sprintf("providers.stt.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s.fallbacks must not nest", path))
		}
		errs = append(errs, validateEntry("stt", path, fb)...)
	}
	for i, fb := range cfg.Providers.TTS.Fallbacks {
		path := fmt.Sprintf("providers.tts.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s.fallbacks must not nest", path))
		}
		errs = append(errs, validateEntry("tts", path, fb)...)
	}

	// Pipeline
	if cfg.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers %d must not be negative", cfg.Pipeline.Workers))
	}
	if cfg.Pipeline.MinAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_audio_bytes %d must not be negative", cfg.Pipeline.MinAudioBytes))
	}

	return errors.Join(errs...)
}

// validateEntry checks the per-provider requirements of one entry. path is
// the YAML location used in error messages.
func validateEntry(kind, path string, e ProviderEntry) []error {
	validateProviderName(kind, e.Name)

	var errs []error
	switch {
	case kind == "stt" && e.Name == "whisper" && e.Model == "":
		errs = append(errs, fmt.Errorf("%s.model (model file path) is required for the whisper provider", path))
	case kind == "tts" && e.Name == "piper" && e.BaseURL == "":
		errs = append(errs, fmt.Errorf("%s.base_url (Piper server address) is required for the piper provider", path))
	case e.Name == "openai" && e.APIKey == "":
		errs = append(errs, fmt.Errorf("%s.api_key is required for the openai provider", path))
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
