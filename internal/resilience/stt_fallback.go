package resilience

import (
	"context"
	"errors"

	"github.com/openclaw/voicelink/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across
// multiple recognition backends. Each backend has its own circuit breaker.
//
// A clip that decodes cleanly but contains no speech is a successful
// recognition, not a backend failure: [stt.ErrNoSpeech] never trips a breaker
// and never triggers failover.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognition backend. Fallbacks are
// tried in registration order after the primary.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Load warms every backend in the chain. It succeeds when at least one
// backend loaded; the chain can still serve turns with a dead primary.
func (f *STTFallback) Load(ctx context.Context) error {
	return loadAny(ctx, f.group.Entries(), func(p stt.Provider) error {
		return p.Load(ctx)
	})
}

// Transcribe recognises speech using the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, clip []byte) (string, error) {
	var noSpeech bool
	text, err := ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		text, err := p.Transcribe(ctx, clip)
		if errors.Is(err, stt.ErrNoSpeech) {
			noSpeech = true
			return "", nil
		}
		return text, err
	})
	if err != nil {
		return "", err
	}
	if noSpeech {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}

// loadAny runs load against each entry, tolerating individual failures.
// Returns the joined errors only when every entry failed to load.
func loadAny[T any](_ context.Context, entries []T, load func(T) error) error {
	var errs []error
	for _, e := range entries {
		if err := load(e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(entries) {
		return errors.Join(errs...)
	}
	return nil
}
