package resilience

import (
	"context"

	"github.com/openclaw/voicelink/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across
// multiple synthesis backends. Each backend has its own circuit breaker.
//
// Voice identifiers are backend-specific, so a failover can change which
// voice actually speaks: each backend resolves an unknown voice to its own
// default rather than erroring.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis backend. Fallbacks are tried
// in registration order after the primary.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Load warms every backend in the chain. It succeeds when at least one
// backend loaded.
func (f *TTSFallback) Load(ctx context.Context) error {
	return loadAny(ctx, f.group.Entries(), func(p tts.Provider) error {
		return p.Load(ctx)
	})
}

// Synthesize renders text using the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, voice)
	})
}

// Voices lists the voices of the first healthy backend. The catalogue follows
// the backend that would currently serve synthesis, so the voice picker in
// the client stays honest during an outage.
func (f *TTSFallback) Voices(ctx context.Context) ([]string, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]string, error) {
		return p.Voices(ctx)
	})
}
