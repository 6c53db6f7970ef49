package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	ttsmock "github.com/openclaw/voicelink/pkg/provider/tts/mock"
)

func newTTSChain(primary, secondary *ttsmock.Provider) *TTSFallback {
	f := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour},
	})
	f.AddFallback("secondary", secondary)
	return f
}

func TestTTSFallback_PrimaryServes(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeResult: []byte("primary wav")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("secondary wav")}
	f := newTTSChain(primary, secondary)

	wav, err := f.Synthesize(context.Background(), "hello", "narrator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(wav, []byte("primary wav")) {
		t.Fatalf("wav = %q, want primary wav", wav)
	}
	if len(primary.SynthesizeCalls) != 1 || primary.SynthesizeCalls[0].Voice != "narrator" {
		t.Errorf("primary calls = %+v", primary.SynthesizeCalls)
	}
}

func TestTTSFallback_FailsOverOnError(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errTest}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("secondary wav")}
	f := newTTSChain(primary, secondary)

	wav, err := f.Synthesize(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(wav, []byte("secondary wav")) {
		t.Fatalf("wav = %q, want secondary wav", wav)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errTest}
	secondary := &ttsmock.Provider{SynthesizeErr: errTest}
	f := newTTSChain(primary, secondary)

	_, err := f.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTTSFallback_VoicesFollowServingBackend(t *testing.T) {
	primary := &ttsmock.Provider{VoicesResult: []string{"alpha"}}
	secondary := &ttsmock.Provider{VoicesResult: []string{"beta"}}
	f := newTTSChain(primary, secondary)

	voices, err := f.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0] != "alpha" {
		t.Fatalf("voices = %v, want [alpha]", voices)
	}

	primary.VoicesErr = errTest
	voices, err = f.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after primary outage: %v", err)
	}
	if len(voices) != 1 || voices[0] != "beta" {
		t.Fatalf("voices = %v, want [beta]", voices)
	}
}

func TestTTSFallback_LoadToleratesDeadPrimary(t *testing.T) {
	primary := &ttsmock.Provider{LoadErr: errTest}
	secondary := &ttsmock.Provider{}
	f := newTTSChain(primary, secondary)

	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load with one healthy backend: %v", err)
	}
}
