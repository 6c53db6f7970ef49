// Package mock provides an in-memory mock implementation of [tts.Provider]
// for use in unit tests.
//
// The mock records every method call and allows the test to configure return
// values via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/openclaw/voicelink/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records the arguments of a single [Provider.Synthesize] call.
type SynthesizeCall struct {
	Text  string
	Voice string
}

// Provider is a mock implementation of [tts.Provider]. All exported *Result
// and *Err fields control return values; call records accumulate in
// SynthesizeCalls.
type Provider struct {
	mu sync.Mutex

	// LoadErr is returned by [Provider.Load].
	LoadErr error

	// SynthesizeResult is returned by [Provider.Synthesize] when SynthesizeFn
	// is nil.
	SynthesizeResult []byte

	// SynthesizeErr is the error returned by [Provider.Synthesize] when
	// SynthesizeFn is nil.
	SynthesizeErr error

	// SynthesizeFn, when non-nil, fully controls Synthesize behaviour.
	SynthesizeFn func(ctx context.Context, text, voice string) ([]byte, error)

	// VoicesResult is returned by [Provider.Voices].
	VoicesResult []string

	// VoicesErr is the error returned by [Provider.Voices].
	VoicesErr error

	// SynthesizeCalls records every Synthesize invocation.
	SynthesizeCalls []SynthesizeCall
}

// Load returns LoadErr.
func (p *Provider) Load(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LoadErr
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	fn := p.SynthesizeFn
	res, err := p.SynthesizeResult, p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	return res, err
}

// Voices returns the configured voice list.
func (p *Provider) Voices(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VoicesResult, p.VoicesErr
}

// Calls returns the number of recorded Synthesize invocations.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}
