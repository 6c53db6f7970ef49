package config

import (
	"errors"
	"testing"

	"github.com/openclaw/voicelink/pkg/provider/stt"
	sttmock "github.com/openclaw/voicelink/pkg/provider/stt/mock"
	"github.com/openclaw/voicelink/pkg/provider/tts"
	ttsmock "github.com/openclaw/voicelink/pkg/provider/tts/mock"
)

func TestRegistryCreateSTT(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var gotEntry ProviderEntry
	r.RegisterSTT("mock", func(e ProviderEntry) (stt.Provider, error) {
		gotEntry = e
		return &sttmock.Provider{}, nil
	})

	p, err := r.CreateSTT(ProviderEntry{Name: "mock", Model: "tiny"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if p == nil {
		t.Fatal("CreateSTT returned nil provider")
	}
	if gotEntry.Model != "tiny" {
		t.Errorf("factory received model %q, want tiny", gotEntry.Model)
	}
}

func TestRegistryCreateTTSUnregistered(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.CreateTTS(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistryOverwriteRegistration(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := &ttsmock.Provider{}
	second := &ttsmock.Provider{}
	r.RegisterTTS("mock", func(ProviderEntry) (tts.Provider, error) { return first, nil })
	r.RegisterTTS("mock", func(ProviderEntry) (tts.Provider, error) { return second, nil })

	p, err := r.CreateTTS(ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateTTS: %v", err)
	}
	if p != second {
		t.Error("later registration did not overwrite earlier one")
	}
}
