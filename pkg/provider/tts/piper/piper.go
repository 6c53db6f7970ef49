// Package piper provides a tts.Provider backed by a locally-running Piper
// HTTP server.
//
// Piper operates in batch mode — one HTTP call per utterance — so Synthesize
// maps directly onto a single POST request whose body is the text to speak
// and whose response is a complete WAV payload. The voice catalogue is read
// from the on-disk voice model directory that the Piper server itself loads
// from (one ".onnx" model plus its ".onnx.json" config per voice).
//
// Typical usage:
//
//	p := piper.New("http://localhost:5000",
//	    piper.WithDefaultVoice("en_US-lessac-medium"),
//	    piper.WithModelsDir("/var/lib/voicelink/voices"),
//	)
//	wav, err := p.Synthesize(ctx, "Hello there.", "")
package piper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/voicelink/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 60 * time.Second

	// maxResponseBytes caps the synthesised WAV size read from the server.
	// At 22.05 kHz mono 16-bit, 32 MiB is over ten minutes of speech.
	maxResponseBytes = 32 << 20
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for synthesis calls.
// Defaults to 60 s; long replies at full quality can take a while on CPU.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithDefaultVoice sets the voice used when Synthesize is called with an
// empty voice identifier.
func WithDefaultVoice(voice string) Option {
	return func(p *Provider) { p.defaultVoice = voice }
}

// WithModelsDir points the provider at the directory the Piper server loads
// voice models from. [Provider.Voices] lists the "*.onnx" files found there.
func WithModelsDir(dir string) Option {
	return func(p *Provider) { p.modelsDir = dir }
}

// Provider implements tts.Provider backed by a Piper HTTP server. It is safe
// for concurrent use; multiple Synthesize calls may run in parallel.
type Provider struct {
	serverURL    string
	defaultVoice string
	modelsDir    string
	httpClient   *http.Client

	probeOnce sync.Once
	probeErr  error
}

// New creates a Provider targeting the Piper server at serverURL
// (e.g. "http://localhost:5000").
func New(serverURL string, opts ...Option) *Provider {
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Load probes the Piper server once to verify it is reachable. The outcome is
// cached: a process talks to one fixed server, so a failed probe fails fast
// for every caller instead of re-dialling a dead endpoint per turn.
func (p *Provider) Load(ctx context.Context) error {
	p.probeOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/", nil)
		if err != nil {
			p.probeErr = fmt.Errorf("piper: build probe request: %w", err)
			return
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.probeErr = fmt.Errorf("piper: server unreachable at %s: %w", p.serverURL, err)
			return
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	})
	return p.probeErr
}

// Synthesize sends text to the Piper server and returns the synthesised WAV
// payload. An empty voice selects the provider's default voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("piper: text must not be empty")
	}
	if err := p.Load(ctx); err != nil {
		return nil, err
	}

	u := p.serverURL + "/"
	if v := p.resolveVoice(voice); v != "" {
		u += "?" + url.Values{"voice": []string{v}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("piper: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("piper: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("piper: server returned %s: %s",
			resp.Status, strings.TrimSpace(string(body)))
	}

	wav, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("piper: read response: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("piper: server returned empty audio")
	}
	return wav, nil
}

// Voices lists the voice models available in the configured models directory.
// When no directory is configured, only the default voice is reported.
func (p *Provider) Voices(_ context.Context) ([]string, error) {
	if p.modelsDir == "" {
		if p.defaultVoice == "" {
			return nil, nil
		}
		return []string{p.defaultVoice}, nil
	}

	entries, err := os.ReadDir(p.modelsDir)
	if err != nil {
		return nil, fmt.Errorf("piper: read models dir %q: %w", p.modelsDir, err)
	}

	var voices []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		voices = append(voices, strings.TrimSuffix(name, ".onnx"))
	}
	sort.Strings(voices)
	return voices, nil
}

// DefaultVoice returns the configured default voice identifier.
func (p *Provider) DefaultVoice() string { return p.defaultVoice }

// resolveVoice maps an empty or path-like voice selector to the voice name
// Piper expects. Clients may send a full model path; only the stem matters.
func (p *Provider) resolveVoice(voice string) string {
	if voice == "" {
		voice = p.defaultVoice
	}
	voice = filepath.Base(voice)
	return strings.TrimSuffix(voice, ".onnx")
}
