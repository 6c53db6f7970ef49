// Package session implements the per-connection voice conversation loop.
//
// One Session serves one client WebSocket for its whole lifetime. The client
// sends control frames (ping, config, cancel) and complete audio clips; the
// session answers with a stream of lifecycle events: the recognised
// transcript, partial and final agent reply text, and the synthesised reply
// audio in fixed-size chunks.
//
// At most one audio turn is in flight per session. A turn runs on its own
// goroutine so the connection loop keeps servicing pings and cancels while
// recognition, the agent exchange, and synthesis proceed. Cancellation is
// cooperative: in-flight recognition or synthesis is left to finish and its
// result dropped, while the agent exchange is torn down actively.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/openclaw/voicelink/internal/observe"
	"github.com/openclaw/voicelink/internal/worker"
	"github.com/openclaw/voicelink/pkg/provider/stt"
	"github.com/openclaw/voicelink/pkg/provider/tts"
)

const (
	// defaultMinAudioBytes rejects clips too small to contain speech; a WAV header
	// alone is 44 bytes and anything under a kilobyte is a fraction of a
	// single audio frame.
	defaultMinAudioBytes = 1024

	// defaultKeepaliveInterval bounds how long the connection stays silent
	// before an unsolicited pong keeps intermediaries from reaping it.
	defaultKeepaliveInterval = 120 * time.Second

	// writeTimeout bounds a single outbound event delivery.
	writeTimeout = 10 * time.Second
)

// Exchanger performs one conversational exchange with the remote agent.
// Implemented by gateway.Client.
type Exchanger interface {
	Exchange(ctx context.Context, sessionKey, message string, onDelta func(string)) (string, error)
}

// KeyFunc derives the gateway session key from an agent identifier.
type KeyFunc func(agentID string) string

// Config carries the collaborators and initial settings for a Session.
type Config struct {
	STT     stt.Provider
	TTS     tts.Provider
	Gateway Exchanger
	Pool    *worker.Pool
	Metrics *observe.Metrics
	Logger  *slog.Logger

	// SessionKey derives the gateway session key from an agent id.
	SessionKey KeyFunc

	// AgentID is the agent addressed until a config message changes it.
	AgentID string

	// STTModel is the recognition model name echoed in config_ok.
	STTModel string

	// Voice is the synthesis voice until a config message changes it.
	Voice string

	// KeepaliveInterval overrides the silent-connection pong cadence.
	KeepaliveInterval time.Duration

	// MinAudioBytes overrides the minimum accepted clip size.
	MinAudioBytes int
}

// turnState is the cancellation token of a single audio turn. Each turn gets
// a fresh one, so a cancel aimed at turn N can never unsuppress or suppress
// events of turn N+1.
type turnState struct {
	cancelled atomic.Bool
}

// Session is the state machine for one client connection.
type Session struct {
	conn *websocket.Conn
	cfg  Config
	log  *slog.Logger

	writeMu sync.Mutex

	processing atomic.Bool
	turn       atomic.Pointer[turnState]

	// mu guards the reconfigurable fields below.
	mu         sync.Mutex
	agentID    string
	sttModel   string
	voice      string
	sessionKey string

	lastInbound atomic.Int64 // unix nanoseconds

	// turnWG tracks in-flight pipeline runs; Run waits on it during
	// shutdown so a turn never outlives its connection loop.
	turnWG sync.WaitGroup
}

// New creates a Session for an accepted connection. The connection is not
// read until [Session.Run].
func New(conn *websocket.Conn, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = defaultKeepaliveInterval
	}
	if cfg.MinAudioBytes <= 0 {
		cfg.MinAudioBytes = defaultMinAudioBytes
	}
	s := &Session{
		conn:     conn,
		cfg:      cfg,
		log:      cfg.Logger,
		agentID:  cfg.AgentID,
		sttModel: cfg.STTModel,
		voice:    cfg.Voice,
	}
	if cfg.SessionKey != nil {
		s.sessionKey = cfg.SessionKey(cfg.AgentID)
	}
	s.lastInbound.Store(time.Now().UnixNano())
	return s
}

// Run services the connection until the client disconnects or ctx is
// cancelled. It returns nil on a clean client close.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.cfg.Metrics.SessionStarted(ctx)
	defer s.cfg.Metrics.SessionEnded(context.WithoutCancel(ctx))

	s.send(ctx, outboundEvent{Type: evtReady})

	go s.keepalive(ctx)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			cancel()
			s.turnWG.Wait()
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.lastInbound.Store(time.Now().UnixNano())
		s.dispatch(ctx, data)
	}
}

// keepalive emits an unsolicited pong whenever the client has been silent for
// a full interval, so idle connections survive proxy timeouts. Reads cannot
// carry their own deadline here: expiring a read context closes the
// connection, hence the side ticker.
func (s *Session) keepalive(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.KeepaliveInterval / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			silent := time.Since(time.Unix(0, s.lastInbound.Load()))
			if silent >= s.cfg.KeepaliveInterval {
				s.send(ctx, outboundEvent{Type: evtPong})
				s.lastInbound.Store(time.Now().UnixNano())
			}
		}
	}
}

// dispatch handles one inbound frame. Malformed frames get an error event;
// they never terminate the session.
func (s *Session) dispatch(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.send(ctx, outboundEvent{Type: evtError, Message: "malformed message"})
		return
	}

	switch msg.Type {
	case msgPing:
		s.send(ctx, outboundEvent{Type: evtPong})

	case msgConfig:
		s.handleConfig(ctx, msg)

	case msgCancel:
		s.handleCancel(ctx)

	case msgAudio:
		s.handleAudio(ctx, msg)

	default:
		s.send(ctx, outboundEvent{Type: evtError, Message: "unknown message type"})
	}
}

// handleConfig updates the session's agent binding and voice. Changes apply
// to turns started afterwards; a turn already in flight keeps the session
// key it captured at its start.
func (s *Session) handleConfig(ctx context.Context, msg inboundMessage) {
	s.mu.Lock()
	if msg.AgentID != "" {
		s.agentID = msg.AgentID
		if s.cfg.SessionKey != nil {
			s.sessionKey = s.cfg.SessionKey(msg.AgentID)
		}
	}
	if msg.STTModel != "" {
		s.sttModel = msg.STTModel
	}
	if msg.VoiceModel != "" {
		s.voice = msg.VoiceModel
	}
	ack := outboundEvent{
		Type:       evtConfigOK,
		AgentID:    s.agentID,
		STTModel:   s.sttModel,
		SessionKey: s.sessionKey,
	}
	s.mu.Unlock()

	s.log.Info("session reconfigured",
		"agent", ack.AgentID, "sttModel", ack.STTModel)
	s.send(ctx, ack)
}

// handleCancel marks the current turn as superseded. Clearing processing
// here, before the pipeline goroutine winds down, lets the client start a
// new turn immediately; the old turn's own token keeps its late events
// suppressed. Idempotent, and a no-op beyond the ack when idle.
func (s *Session) handleCancel(ctx context.Context) {
	if t := s.turn.Load(); t != nil {
		t.cancelled.Store(true)
	}
	s.processing.Store(false)
	s.send(ctx, outboundEvent{Type: evtCancelled})
}

// handleAudio validates and admits one audio turn.
func (s *Session) handleAudio(ctx context.Context, msg inboundMessage) {
	if !s.processing.CompareAndSwap(false, true) {
		s.cfg.Metrics.RecordTurn(ctx, observe.TurnRejected)
		s.send(ctx, outboundEvent{Type: evtError, Message: "already processing"})
		return
	}

	clip, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		s.processing.Store(false)
		s.cfg.Metrics.RecordTurn(ctx, observe.TurnRejected)
		s.send(ctx, outboundEvent{Type: evtError, Message: "invalid audio payload"})
		return
	}
	if len(clip) < s.cfg.MinAudioBytes {
		s.processing.Store(false)
		s.cfg.Metrics.RecordTurn(ctx, observe.TurnRejected)
		s.send(ctx, outboundEvent{Type: evtError, Message: "audio too short"})
		return
	}

	t := &turnState{}
	s.turn.Store(t)

	s.turnWG.Add(1)
	go func() {
		defer s.turnWG.Done()
		s.runTurn(ctx, t, clip)
	}()
}

// send marshals and delivers one outbound event. Delivery failures are
// swallowed: a client that already went away must not take the session loop
// down with it.
func (s *Session) send(ctx context.Context, evt outboundEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("marshal outbound event", "type", evt.Type, "error", err)
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	s.writeMu.Lock()
	err = s.conn.Write(wctx, websocket.MessageText, data)
	s.writeMu.Unlock()
	if err != nil {
		s.log.Debug("drop outbound event", "type", evt.Type, "error", err)
	}
}

// snapshot returns the reconfigurable settings captured for one turn.
func (s *Session) snapshot() (sessionKey, voice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionKey, s.voice
}
