// Package stt defines the Provider interface for speech-to-text backends.
//
// A provider wraps a transcription engine (a local whisper.cpp model or a
// hosted API) behind a narrow batch interface: one encoded audio clip in, one
// transcript out. Decoding the clip to whatever representation the engine
// wants is the provider's business; callers hand over the bytes they received
// from the client.
//
// Providers holding heavyweight model state load it lazily: Load is idempotent
// and safe for concurrent first use, and Transcribe triggers it implicitly.
// Implementations must be safe for concurrent use — one provider instance is
// shared by every connection in the process.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by Transcribe when the clip decoded cleanly but the
// engine found no speech in it. Callers report this to the user rather than
// treating it as a provider failure.
var ErrNoSpeech = errors.New("stt: no speech detected")

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Load makes the provider ready to transcribe: local implementations load
	// their model into memory, remote ones may verify reachability. Load is
	// idempotent; concurrent calls perform the work once and share the result.
	Load(ctx context.Context) error

	// Transcribe recognises speech in an encoded audio clip and returns the
	// transcript text. The call is blocking and, for local models, CPU-bound —
	// callers must dispatch it to a worker rather than run it on a connection's
	// serving goroutine. Returns ErrNoSpeech when the clip contains no usable
	// speech.
	Transcribe(ctx context.Context, clip []byte) (string, error)
}
