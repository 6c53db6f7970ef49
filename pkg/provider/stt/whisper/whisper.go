// Package whisper implements stt.Provider on top of the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model file is loaded lazily on first use and shared by all connections
// for the lifetime of the process. Each Transcribe call creates its own
// whisper context from the shared model, so transcriptions from different
// connections can run concurrently (bounded by the caller's worker pool).
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/openclaw/voicelink/pkg/audio"
	"github.com/openclaw/voicelink/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

const defaultLanguage = "en"

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the language code passed to whisper.cpp (e.g. "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements stt.Provider using a local whisper.cpp model.
type Provider struct {
	modelPath string
	language  string

	loadOnce sync.Once
	loadErr  error
	model    whisperlib.Model
}

// New creates a Provider for the whisper.cpp model at modelPath. The model is
// not loaded until [Provider.Load] or the first [Provider.Transcribe] call.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	p := &Provider{
		modelPath: modelPath,
		language:  defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Load reads the model file into memory. The first caller performs the load;
// concurrent and subsequent callers share its outcome.
func (p *Provider) Load(_ context.Context) error {
	p.loadOnce.Do(func() {
		start := time.Now()
		slog.Info("loading whisper model", "path", p.modelPath)
		model, err := whisperlib.New(p.modelPath)
		if err != nil {
			p.loadErr = fmt.Errorf("whisper: load model %q: %w", p.modelPath, err)
			return
		}
		p.model = model
		slog.Info("whisper model ready", "path", p.modelPath, "took", time.Since(start))
	})
	return p.loadErr
}

// Transcribe decodes the WAV clip, normalises it to mono 16 kHz, runs
// whisper.cpp inference, and returns the concatenated segment text. Returns
// [stt.ErrNoSpeech] when inference produces no segments.
func (p *Provider) Transcribe(ctx context.Context, clip []byte) (string, error) {
	if err := p.Load(ctx); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	decoded, err := audio.DecodeWAV(clip)
	if err != nil {
		return "", fmt.Errorf("whisper: decode clip: %w", err)
	}
	samples := audio.PCM16ToFloat32(audio.ToMono16k(decoded).Data)
	if len(samples) == 0 {
		return "", stt.ErrNoSpeech
	}

	// Each whisper context is single-use and not thread-safe, but the model
	// itself can be shared across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", stt.ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

// Close releases the model if it was loaded.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}
