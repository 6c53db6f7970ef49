// Package gateway implements the streaming client for the conversational
// agent gateway.
//
// Each user turn is a single request/response exchange over its own WebSocket
// connection: dial, wait for the gateway's readiness frame, send one chat
// frame, then consume chat events until the reply is final, the exchange is
// aborted, or the overall deadline elapses. Incremental reply fragments are
// accumulated and optionally published to a delta sink as they arrive, so the
// caller can stream partial text onward without waiting for the full reply.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Sentinel errors for the gateway failure classes callers distinguish.
var (
	// ErrUnavailable means the gateway never signalled readiness: the dial
	// failed, the first frame was an error, or the connection dropped before
	// a ready frame arrived.
	ErrUnavailable = errors.New("gateway: unavailable")

	// ErrCommunication means the gateway was ready but the exchange broke
	// underneath it: the chat frame could not be sent, or the connection
	// dropped before a terminal chat event.
	ErrCommunication = errors.New("gateway: communication failure")

	// ErrAborted means the agent ended the exchange without producing any
	// text. Exchanges aborted after some deltas arrived are not errors; the
	// accumulated text is returned instead.
	ErrAborted = errors.New("gateway: chat aborted")
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultDeadline    = 90 * time.Second

	frameChat      = "chat"
	frameChatEvent = "chat_event"
	frameReady     = "ready"
	frameError     = "error"

	stateDelta   = "delta"
	stateFinal   = "final"
	stateAborted = "aborted"
	stateError   = "error"
)

// ── Wire frames ───────────────────────────────────────────────────────────────

type chatFrame struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	IdempotencyKey string `json:"idempotencyKey"`
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
}

type eventFrame struct {
	Type      string   `json:"type"`
	State     string   `json:"state,omitempty"`
	Fragments []string `json:"fragments,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// ── Client ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithDialTimeout bounds how long a single exchange waits to establish its
// connection and receive the readiness frame. Defaults to 10 s.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithDeadline sets the overall exchange deadline. When it elapses before a
// terminal chat event, Exchange returns whatever text accumulated, without
// error. Defaults to 90 s.
func WithDeadline(d time.Duration) Option {
	return func(c *Client) { c.deadline = d }
}

// WithAuthToken sends a bearer token on the connection handshake.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// Client performs chat exchanges against the agent gateway. It holds no
// connection state; every Exchange dials fresh. Safe for concurrent use.
type Client struct {
	url         string
	authToken   string
	dialTimeout time.Duration
	deadline    time.Duration
}

// New creates a Client for the gateway WebSocket endpoint at url
// (e.g. "ws://localhost:3001/gateway").
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		dialTimeout: defaultDialTimeout,
		deadline:    defaultDeadline,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SessionKey derives the gateway session key for an agent's voice channel.
func SessionKey(agentID string) string {
	return "agent:" + agentID + ":voice"
}

// Exchange sends one user message for the given session key and returns the
// agent's reply text. onDelta, when non-nil, receives each incremental
// fragment as it arrives; it is called from the Exchange goroutine and must
// not block for long.
//
// Cancellation of ctx tears the connection down and returns ctx's error.
// Expiry of the exchange deadline is not an error: the text accumulated so
// far (possibly empty) is returned.
func (c *Client) Exchange(ctx context.Context, sessionKey, message string, onDelta func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close(websocket.StatusNormalClosure, "exchange complete")

	if err := c.awaitReady(ctx, conn); err != nil {
		return "", err
	}

	req := chatFrame{
		Type:           frameChat,
		ID:             uuid.NewString(),
		IdempotencyKey: uuid.NewString(),
		SessionKey:     sessionKey,
		Message:        message,
	}
	if err := writeJSON(ctx, conn, req); err != nil {
		return "", fmt.Errorf("%w: send chat frame: %v", ErrCommunication, err)
	}

	return c.readReply(ctx, conn, onDelta)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if c.authToken != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + c.authToken},
		}
	}
	conn, _, err := websocket.Dial(dialCtx, c.url, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, c.url, err)
	}
	return conn, nil
}

// awaitReady blocks until the gateway's first frame. Anything other than a
// ready frame means the gateway cannot take this exchange.
func (c *Client) awaitReady(ctx context.Context, conn *websocket.Conn) error {
	readyCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var frame eventFrame
	if err := readJSON(readyCtx, conn, &frame); err != nil {
		return fmt.Errorf("%w: awaiting readiness: %v", ErrUnavailable, err)
	}
	switch frame.Type {
	case frameReady:
		return nil
	case frameError:
		return fmt.Errorf("%w: gateway error: %s", ErrUnavailable, frame.Message)
	default:
		return fmt.Errorf("%w: unexpected first frame %q", ErrUnavailable, frame.Type)
	}
}

// readReply consumes chat events until a terminal state or the deadline.
func (c *Client) readReply(ctx context.Context, conn *websocket.Conn, onDelta func(string)) (string, error) {
	var accumulated strings.Builder

	for {
		var frame eventFrame
		if err := readJSON(ctx, conn, &frame); err != nil {
			// The exchange deadline elapsing is a soft stop: the caller gets
			// whatever arrived so far and decides what to do with it.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return accumulated.String(), nil
			}
			if ctx.Err() != nil {
				return "", fmt.Errorf("gateway: exchange cancelled: %w", ctx.Err())
			}
			return "", fmt.Errorf("%w: read chat event: %v", ErrCommunication, err)
		}
		if frame.Type != frameChatEvent {
			continue
		}

		switch frame.State {
		case stateDelta:
			for _, f := range frame.Fragments {
				if f == "" {
					continue
				}
				accumulated.WriteString(f)
				if onDelta != nil {
					onDelta(f)
				}
			}

		case stateFinal:
			if final := strings.Join(frame.Fragments, ""); final != "" {
				return final, nil
			}
			return accumulated.String(), nil

		case stateAborted, stateError:
			if accumulated.Len() > 0 {
				return accumulated.String(), nil
			}
			if frame.Message != "" {
				return "", fmt.Errorf("%w: %s", ErrAborted, frame.Message)
			}
			return "", ErrAborted
		}
	}
}

// ── JSON frame helpers ────────────────────────────────────────────────────────

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func readJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
