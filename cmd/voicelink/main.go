// Command voicelink is the real-time voice conversation sidecar: it bridges
// browser microphone audio to a conversational agent gateway, speaking the
// agent's replies back as synthesised audio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openclaw/voicelink/internal/app"
	"github.com/openclaw/voicelink/internal/config"
	"github.com/openclaw/voicelink/internal/observe"
	"github.com/openclaw/voicelink/internal/resilience"
	"github.com/openclaw/voicelink/pkg/provider/stt"
	sttmock "github.com/openclaw/voicelink/pkg/provider/stt/mock"
	sttopenai "github.com/openclaw/voicelink/pkg/provider/stt/openai"
	"github.com/openclaw/voicelink/pkg/provider/stt/whisper"
	"github.com/openclaw/voicelink/pkg/provider/tts"
	ttsmock "github.com/openclaw/voicelink/pkg/provider/tts/mock"
	ttsopenai "github.com/openclaw/voicelink/pkg/provider/tts/openai"
	"github.com/openclaw/voicelink/pkg/provider/tts/piper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voicelink: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voicelink: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voicelink starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voicelink",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	// Log level, default agent, and default voice follow edits to the config
	// file; everything else needs a restart. A broken watcher is not fatal.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Changed() {
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		application.Reconfigure(d)
	})
	if err != nil {
		slog.Warn("config hot-reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// Warm the speech models in the background; /readyz flips once done.
	go func() {
		if err := application.Preload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("provider preload failed", "err", err)
		} else if err == nil {
			slog.Info("speech providers preloaded")
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	errCh := make(chan error, 1)
	go func() { errCh <- application.Run() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("run error", "err", err)
			return 1
		}
		return 0
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, sttopenai.WithLanguage(entry.Language))
		}
		return sttopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{TranscribeResult: "mock transcript"}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []piper.Option
		if entry.Voice != "" {
			opts = append(opts, piper.WithDefaultVoice(entry.Voice))
		}
		if entry.ModelsDir != "" {
			opts = append(opts, piper.WithModelsDir(entry.ModelsDir))
		}
		return piper.New(entry.BaseURL, opts...), nil
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.Voice != "" {
			opts = append(opts, ttsopenai.WithDefaultVoice(entry.Voice))
		}
		return ttsopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{SynthesizeResult: []byte("mock audio")}, nil
	})
}

// buildProviders instantiates the providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Entries with fallbacks are wrapped in a failover chain with
// per-backend circuit breakers.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	sttP, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if fbs := cfg.Providers.STT.Fallbacks; len(fbs) > 0 {
		chain := resilience.NewSTTFallback(sttP, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		for _, fb := range fbs {
			p, err := reg.CreateSTT(fb)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
			}
			chain.AddFallback(fb.Name, p)
			slog.Info("fallback provider created", "kind", "stt", "name", fb.Name)
		}
		sttP = chain
	}

	ttsP, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	if fbs := cfg.Providers.TTS.Fallbacks; len(fbs) > 0 {
		chain := resilience.NewTTSFallback(ttsP, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
		for _, fb := range fbs {
			p, err := reg.CreateTTS(fb)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
			}
			chain.AddFallback(fb.Name, p)
			slog.Info("fallback provider created", "kind", "tts", "name", fb.Name)
		}
		ttsP = chain
	}

	return &app.Providers{STT: sttP, TTS: ttsP}, nil
}

// newLogger builds the process logger at the configured level. The returned
// LevelVar lets the config watcher adjust verbosity at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

// slogLevel maps the config log level to its slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
