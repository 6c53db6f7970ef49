package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openclaw/voicelink/pkg/provider/stt"
	sttmock "github.com/openclaw/voicelink/pkg/provider/stt/mock"
)

func newSTTChain(primary, secondary *sttmock.Provider) *STTFallback {
	f := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour},
	})
	f.AddFallback("secondary", secondary)
	return f
}

func TestSTTFallback_PrimaryServes(t *testing.T) {
	primary := &sttmock.Provider{TranscribeResult: "from primary"}
	secondary := &sttmock.Provider{TranscribeResult: "from secondary"}
	f := newSTTChain(primary, secondary)

	text, err := f.Transcribe(context.Background(), []byte("clip"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from primary" {
		t.Fatalf("text = %q, want from primary", text)
	}
	if secondary.Calls() != 0 {
		t.Errorf("secondary was called %d times", secondary.Calls())
	}
}

func TestSTTFallback_FailsOverOnError(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: errTest}
	secondary := &sttmock.Provider{TranscribeResult: "from secondary"}
	f := newSTTChain(primary, secondary)

	text, err := f.Transcribe(context.Background(), []byte("clip"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from secondary" {
		t.Fatalf("text = %q, want from secondary", text)
	}
}

func TestSTTFallback_NoSpeechIsNotFailover(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: stt.ErrNoSpeech}
	secondary := &sttmock.Provider{TranscribeResult: "should not be reached"}
	f := newSTTChain(primary, secondary)

	_, err := f.Transcribe(context.Background(), []byte("clip"))
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if secondary.Calls() != 0 {
		t.Errorf("no-speech result triggered failover (%d secondary calls)", secondary.Calls())
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: errTest}
	secondary := &sttmock.Provider{TranscribeErr: errTest}
	f := newSTTChain(primary, secondary)

	_, err := f.Transcribe(context.Background(), []byte("clip"))
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestSTTFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &sttmock.Provider{TranscribeErr: errTest}
	secondary := &sttmock.Provider{TranscribeResult: "from secondary"}
	f := NewSTTFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	f.AddFallback("secondary", secondary)

	for i := 0; i < 2; i++ {
		_, _ = f.Transcribe(context.Background(), []byte("clip"))
	}
	before := primary.Calls()

	if _, err := f.Transcribe(context.Background(), []byte("clip")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.Calls() != before {
		t.Errorf("primary called while its breaker was open")
	}
}

func TestSTTFallback_LoadToleratesDeadPrimary(t *testing.T) {
	primary := &sttmock.Provider{LoadErr: errTest}
	secondary := &sttmock.Provider{}
	f := newSTTChain(primary, secondary)

	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load with one healthy backend: %v", err)
	}
	if secondary.LoadCalls() != 1 {
		t.Errorf("secondary load calls = %d, want 1", secondary.LoadCalls())
	}
}

func TestSTTFallback_LoadFailsWhenAllDead(t *testing.T) {
	primary := &sttmock.Provider{LoadErr: errTest}
	secondary := &sttmock.Provider{LoadErr: errTest}
	f := newSTTChain(primary, secondary)

	if err := f.Load(context.Background()); err == nil {
		t.Fatal("expected load failure when every backend is dead")
	}
}
