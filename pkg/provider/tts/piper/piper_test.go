package piper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSynthesizeSendsTextAndVoice(t *testing.T) {
	t.Parallel()

	var (
		gotBody  string
		gotVoice string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotVoice = r.URL.Query().Get("voice")
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFfakewav"))
	}))
	defer srv.Close()

	p := New(srv.URL, WithDefaultVoice("en_US-lessac-medium"))
	wav, err := p.Synthesize(context.Background(), "Hello there.", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "RIFFfakewav" {
		t.Errorf("unexpected payload %q", wav)
	}
	if gotBody != "Hello there." {
		t.Errorf("server received body %q", gotBody)
	}
	if gotVoice != "en_US-lessac-medium" {
		t.Errorf("server received voice %q, want default", gotVoice)
	}
}

func TestSynthesizeExplicitVoiceOverridesDefault(t *testing.T) {
	t.Parallel()

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			gotVoice = r.URL.Query().Get("voice")
		}
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := New(srv.URL, WithDefaultVoice("default-voice"))
	// Path-style selectors are reduced to the model stem.
	if _, err := p.Synthesize(context.Background(), "hi", "/models/de_DE-thorsten-high.onnx"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotVoice != "de_DE-thorsten-high" {
		t.Errorf("voice = %q, want de_DE-thorsten-high", gotVoice)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	t.Parallel()

	p := New("http://localhost:1")
	if _, err := p.Synthesize(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestSynthesizeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "no such voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(srv.URL)
	if _, err := p.Synthesize(context.Background(), "hi", "nope"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestLoadCachesUnreachableServer(t *testing.T) {
	t.Parallel()

	// Port 1 is never listening; both calls must fail without a fresh dial
	// changing the outcome.
	p := New("http://127.0.0.1:1")
	err1 := p.Load(context.Background())
	if err1 == nil {
		t.Fatal("expected probe failure")
	}
	err2 := p.Load(context.Background())
	if err2 != err1 {
		t.Errorf("second Load returned a different error: %v vs %v", err2, err1)
	}
}

func TestVoicesListsModelDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		"en_US-lessac-medium.onnx",
		"en_US-lessac-medium.onnx.json",
		"de_DE-thorsten-high.onnx",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := New("http://localhost:1", WithModelsDir(dir))
	voices, err := p.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	want := []string{"de_DE-thorsten-high", "en_US-lessac-medium"}
	if len(voices) != len(want) {
		t.Fatalf("voices = %v, want %v", voices, want)
	}
	for i := range want {
		if voices[i] != want[i] {
			t.Errorf("voices[%d] = %q, want %q", i, voices[i], want[i])
		}
	}
}

func TestVoicesWithoutModelDirFallsBackToDefault(t *testing.T) {
	t.Parallel()

	p := New("http://localhost:1", WithDefaultVoice("en_US-amy-low"))
	voices, err := p.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 1 || voices[0] != "en_US-amy-low" {
		t.Errorf("voices = %v, want [en_US-amy-low]", voices)
	}
}
