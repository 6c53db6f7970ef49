// Package mock provides an in-memory mock implementation of [stt.Provider]
// for use in unit tests.
//
// The mock records every method call and allows the test to configure return
// values via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/openclaw/voicelink/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock implementation of [stt.Provider]. All exported *Result
// and *Err fields control return values; call records accumulate in
// TranscribeCalls.
type Provider struct {
	mu sync.Mutex

	// LoadErr is returned by [Provider.Load].
	LoadErr error

	// TranscribeResult is returned by [Provider.Transcribe] when TranscribeFn
	// is nil.
	TranscribeResult string

	// TranscribeErr is the error returned by [Provider.Transcribe] when
	// TranscribeFn is nil.
	TranscribeErr error

	// TranscribeFn, when non-nil, fully controls Transcribe behaviour.
	TranscribeFn func(ctx context.Context, clip []byte) (string, error)

	// TranscribeCalls records the clip passed to each Transcribe invocation.
	TranscribeCalls [][]byte

	loadCalls int
}

// Load records the call and returns LoadErr.
func (p *Provider) Load(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadCalls++
	return p.LoadErr
}

// LoadCalls returns how many times Load was invoked.
func (p *Provider) LoadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadCalls
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, clip []byte) (string, error) {
	p.mu.Lock()
	cp := make([]byte, len(clip))
	copy(cp, clip)
	p.TranscribeCalls = append(p.TranscribeCalls, cp)
	fn := p.TranscribeFn
	res, err := p.TranscribeResult, p.TranscribeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, clip)
	}
	return res, err
}

// Calls returns the number of recorded Transcribe invocations.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}
