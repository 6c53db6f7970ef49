// Package tts defines the Provider interface for text-to-speech backends.
//
// A provider wraps a synthesis engine (a local Piper server or a hosted API)
// behind a batch interface: reply text in, a complete WAV clip out. The
// session layer is responsible for stripping markup and truncating
// excessively long text before calling Synthesize.
//
// Implementations must be safe for concurrent use; a single provider instance
// serves every connection in the process.
package tts

import "context"

// Provider is the abstraction over any text-to-speech backend.
type Provider interface {
	// Load makes the provider ready to synthesise. Idempotent and safe for
	// concurrent first use; Synthesize triggers it implicitly.
	Load(ctx context.Context) error

	// Synthesize renders text as speech and returns a complete WAV payload.
	// voice selects a provider-specific voice; an empty string uses the
	// provider's configured default. The call is blocking and potentially
	// CPU-bound — callers must dispatch it to a worker.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// Voices returns the identifiers of the voices currently available from
	// this provider.
	Voices(ctx context.Context) ([]string, error)
}
