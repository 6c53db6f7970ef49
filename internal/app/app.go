// Package app wires all voicelink subsystems into a running HTTP server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown drains
// connections in order. The HTTP surface is small: health and readiness
// probes, Prometheus metrics, two read-only settings endpoints, and the /ws
// voice endpoint where each accepted connection becomes a session.
//
// For testing, inject doubles via functional options (WithGateway,
// WithMetrics, ...). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/voicelink/internal/config"
	"github.com/openclaw/voicelink/internal/gateway"
	"github.com/openclaw/voicelink/internal/health"
	"github.com/openclaw/voicelink/internal/observe"
	"github.com/openclaw/voicelink/internal/session"
	"github.com/openclaw/voicelink/internal/worker"
	"github.com/openclaw/voicelink/pkg/provider/stt"
	"github.com/openclaw/voicelink/pkg/provider/tts"
)

// shutdownTimeout bounds the drain of in-flight connections on Shutdown.
const shutdownTimeout = 10 * time.Second

// Providers holds the speech provider singletons shared by every session.
// Populated by main.go via the config registry.
type Providers struct {
	STT stt.Provider
	TTS tts.Provider
}

// App owns all subsystem lifetimes and serves the voicelink HTTP surface.
type App struct {
	cfg       *config.Config
	providers *Providers
	gateway   session.Exchanger
	pool      *worker.Pool
	metrics   *observe.Metrics
	log       *slog.Logger

	httpSrv *http.Server

	// defaultsMu guards the hot-reloadable defaults below. New sessions and
	// the settings endpoints read them; Reconfigure swaps them when the config
	// file changes on disk. Sessions already running keep the binding they
	// were created with.
	defaultsMu     sync.RWMutex
	defaultAgentID string
	defaultVoice   string

	// sessions tracks live connections so Shutdown can wait for them.
	sessions sync.WaitGroup

	// runCtx is the lifetime context handed to sessions; cancelling it on
	// Shutdown unblocks their reads.
	runCtx    context.Context
	runCancel context.CancelFunc

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithGateway injects an agent exchanger instead of building a gateway
// client from config.
func WithGateway(g session.Exchanger) Option {
	return func(a *App) { a.gateway = g }
}

// WithMetrics injects a metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger injects a logger instead of slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil || providers.TTS == nil {
		return nil, errors.New("app: both speech providers are required")
	}

	a := &App{
		cfg:            cfg,
		providers:      providers,
		pool:           worker.NewPool(cfg.Pipeline.Workers),
		defaultAgentID: cfg.Agent.ID,
		defaultVoice:   cfg.Providers.TTS.Voice,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gateway == nil {
		gwOpts := []gateway.Option{}
		if cfg.Agent.AuthToken != "" {
			gwOpts = append(gwOpts, gateway.WithAuthToken(cfg.Agent.AuthToken))
		}
		if cfg.Agent.Deadline > 0 {
			gwOpts = append(gwOpts, gateway.WithDeadline(cfg.Agent.Deadline))
		}
		if cfg.Agent.DialTimeout > 0 {
			gwOpts = append(gwOpts, gateway.WithDialTimeout(cfg.Agent.DialTimeout))
		}
		a.gateway = gateway.New(cfg.Agent.GatewayURL, gwOpts...)
	}

	a.runCtx, a.runCancel = context.WithCancel(context.Background())

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// routes assembles the HTTP mux with the observability middleware applied to
// everything but the long-lived websocket endpoint.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	hh := health.New(
		health.ProviderChecker("stt", a.providers.STT),
		health.ProviderChecker("tts", a.providers.TTS),
	)
	hh.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/settings", a.handleSettings)
	mux.HandleFunc("GET /api/voices", a.handleVoices)

	instrumented := observe.Middleware(a.metrics)(mux)

	// The websocket route bypasses the middleware: a session lives for
	// minutes and would record one giant meaningless request duration.
	root := http.NewServeMux()
	root.HandleFunc("GET /ws", a.handleWS)
	root.Handle("/", instrumented)
	return root
}

// Preload warms both speech providers concurrently so the first turn does not
// pay the model load. Errors are returned joined; the server can still start,
// with /readyz reporting the failing provider.
func (a *App) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.providers.STT.Load(ctx); err != nil {
			return fmt.Errorf("app: preload stt: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.providers.TTS.Load(ctx); err != nil {
			return fmt.Errorf("app: preload tts: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Run serves HTTP until the listener fails or Shutdown is called. It blocks.
func (a *App) Run() error {
	a.log.Info("voicelink listening",
		"addr", a.cfg.Server.ListenAddr,
		"agent", a.cfg.Agent.ID,
		"workers", a.pool.Size())

	var err error
	if tls := a.cfg.Server.TLS; tls != nil {
		err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
	} else {
		err = a.httpSrv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Reconfigure applies a hot-reload diff produced by [config.Diff]. Only the
// default agent binding and synthesis voice live here; the caller handles the
// log level through its own level var.
func (a *App) Reconfigure(d config.ConfigDiff) {
	if !d.AgentIDChanged && !d.VoiceChanged {
		return
	}
	a.defaultsMu.Lock()
	if d.AgentIDChanged {
		a.defaultAgentID = d.NewAgentID
	}
	if d.VoiceChanged {
		a.defaultVoice = d.NewVoice
	}
	agentID, voice := a.defaultAgentID, a.defaultVoice
	a.defaultsMu.Unlock()

	a.log.Info("defaults reconfigured", "agent", agentID, "voice", voice)
}

// defaults returns the current hot-reloadable defaults.
func (a *App) defaults() (agentID, voice string) {
	a.defaultsMu.RLock()
	defer a.defaultsMu.RUnlock()
	return a.defaultAgentID, a.defaultVoice
}

// Shutdown stops accepting connections, cancels live sessions, and waits for
// them to drain, bounded by shutdownTimeout. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		err = a.httpSrv.Shutdown(ctx)
		a.runCancel()

		done := make(chan struct{})
		go func() {
			a.sessions.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.log.Warn("shutdown timed out waiting for sessions")
		}
	})
	return err
}

// ─── Handlers ────────────────────────────────────────────────────────────────

// handleWS upgrades the connection and runs a session until the client goes
// away.
func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients connect from an app served on another port.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		a.log.Warn("websocket accept failed", "error", err)
		return
	}

	agentID, voice := a.defaults()
	sess := session.New(conn, session.Config{
		STT:               a.providers.STT,
		TTS:               a.providers.TTS,
		Gateway:           a.gateway,
		Pool:              a.pool,
		Metrics:           a.metrics,
		Logger:            a.log.With("remote", r.RemoteAddr),
		SessionKey:        gateway.SessionKey,
		AgentID:           agentID,
		STTModel:          a.cfg.Providers.STT.Model,
		Voice:             voice,
		KeepaliveInterval: a.cfg.Pipeline.KeepaliveInterval,
		MinAudioBytes:     a.cfg.Pipeline.MinAudioBytes,
	})

	a.sessions.Add(1)
	defer a.sessions.Done()

	if err := sess.Run(a.runCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Debug("session ended", "remote", r.RemoteAddr, "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "session over")
}

// handleSettings reports the resolved runtime configuration clients care
// about: which models are in play and the default voice.
func (a *App) handleSettings(w http.ResponseWriter, _ *http.Request) {
	agentID, voice := a.defaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"agentId":     agentID,
		"sttProvider": a.cfg.Providers.STT.Name,
		"sttModel":    a.cfg.Providers.STT.Model,
		"ttsProvider": a.cfg.Providers.TTS.Name,
		"voice":       voice,
		"modelsDir":   a.cfg.Providers.TTS.ModelsDir,
	})
}

// handleVoices lists the synthesis voices the TTS provider offers.
func (a *App) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := a.providers.TTS.Voices(r.Context())
	if err != nil {
		a.log.Error("list voices", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "voice catalogue unavailable",
		})
		return
	}
	if voices == nil {
		voices = []string{}
	}
	_, voice := a.defaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"voices":  voices,
		"current": voice,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
