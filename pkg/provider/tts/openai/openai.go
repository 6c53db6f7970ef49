// Package openai provides a tts.Provider backed by the OpenAI speech API.
// It is the hosted alternative to the local Piper provider.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/openclaw/voicelink/pkg/provider/tts"
)

// DefaultModel is the default OpenAI speech model.
const DefaultModel = oai.SpeechModelTTS1

// DefaultVoice is used when Synthesize is called with an empty voice.
const DefaultVoice = string(oai.AudioSpeechNewParamsVoiceAlloy)

// knownVoices is the fixed voice catalogue of the OpenAI speech API.
var knownVoices = []string{
	"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer",
}

// Ensure Provider implements the tts.Provider interface.
var _ tts.Provider = (*Provider)(nil)

// Provider implements tts.Provider using the OpenAI API.
type Provider struct {
	client       oai.Client
	model        string
	defaultVoice string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	timeout      time.Duration
	defaultVoice string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithDefaultVoice sets the voice used when Synthesize receives an empty
// voice identifier. Defaults to "alloy".
func WithDefaultVoice(voice string) Option {
	return func(c *config) {
		c.defaultVoice = voice
	}
}

// New constructs a new OpenAI speech Provider.
// If model is empty, DefaultModel (tts-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{defaultVoice: DefaultVoice}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, defaultVoice: cfg.defaultVoice}, nil
}

// Load implements tts.Provider. The hosted API needs no warm-up.
func (p *Provider) Load(context.Context) error {
	return nil
}

// Synthesize implements tts.Provider. The response is requested in WAV
// format so downstream handling matches the local providers.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("openai tts: text must not be empty")
	}
	if voice == "" {
		voice = p.defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("openai tts: empty audio response")
	}
	return wav, nil
}

// Voices implements tts.Provider. The OpenAI speech API exposes a fixed
// voice set; there is no listing endpoint.
func (p *Provider) Voices(context.Context) ([]string, error) {
	out := make([]string, len(knownVoices))
	copy(out, knownVoices)
	return out, nil
}
