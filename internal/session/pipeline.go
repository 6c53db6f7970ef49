package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/openclaw/voicelink/internal/gateway"
	"github.com/openclaw/voicelink/internal/observe"
	"github.com/openclaw/voicelink/pkg/provider/stt"
)

const (
	// audioChunkSize is the slice size for streaming synthesised audio back
	// to the client.
	audioChunkSize = 32 << 10

	// deltaPollInterval bounds how long the delta-forwarding loop waits
	// before re-checking for cancellation while the agent is thinking.
	deltaPollInterval = 500 * time.Millisecond
)

// runTurn executes one audio turn: recognise, exchange with the agent,
// synthesise, stream. Every stage boundary is a cancellation checkpoint; a
// superseded turn finishes its in-flight stage and then stops emitting.
// processing is cleared on every exit path.
func (s *Session) runTurn(ctx context.Context, t *turnState, clip []byte) {
	defer s.processing.Store(false)

	ctx, span := observe.StartSpan(ctx, "voice.turn")
	outcome := observe.TurnError
	defer func() {
		span.SetAttributes(observe.Attr("outcome", outcome))
		span.End()
		s.cfg.Metrics.RecordTurn(context.WithoutCancel(ctx), outcome)
	}()

	log := s.log
	if cid := observe.CorrelationID(ctx); cid != "" {
		log = log.With("correlation_id", cid)
	}

	sessionKey, voice := s.snapshot()

	// ── Recognition ──
	transcript, err := s.transcribe(ctx, clip)
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			outcome = observe.TurnNoSpeech
			s.send(ctx, outboundEvent{Type: evtError, Message: "No speech detected"})
			return
		}
		log.Error("speech recognition failed", "error", err)
		s.send(ctx, outboundEvent{Type: evtError, Message: "speech recognition failed"})
		return
	}

	s.send(ctx, outboundEvent{Type: evtTranscript, Text: transcript})
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}

	// ── Agent exchange ──
	s.send(ctx, outboundEvent{Type: evtThinking})

	reply, err := s.exchange(ctx, t, sessionKey, transcript)
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}
	if err != nil {
		log.Error("agent exchange failed", "error", err)
		s.send(ctx, outboundEvent{Type: evtError, Message: exchangeErrorMessage(err)})
		return
	}

	s.send(ctx, outboundEvent{Type: evtResponseText, Text: reply, Final: boolPtr(true)})
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}

	// ── Synthesis ──
	speech := prepareSpeech(reply)
	if speech == "" {
		// Nothing to speak; close the turn's audio phase so the client's
		// lifecycle still completes.
		s.send(ctx, outboundEvent{Type: evtAudioEnd})
		outcome = observe.TurnCompleted
		return
	}

	wav, err := s.synthesize(ctx, speech, voice)
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}
	if err != nil {
		log.Error("speech synthesis failed", "error", err)
		s.send(ctx, outboundEvent{Type: evtError, Message: "speech synthesis failed"})
		return
	}

	for off := 0; off < len(wav); off += audioChunkSize {
		if t.cancelled.Load() {
			outcome = observe.TurnCancelled
			return
		}
		end := off + audioChunkSize
		if end > len(wav) {
			end = len(wav)
		}
		s.send(ctx, outboundEvent{
			Type: evtAudioChunk,
			Data: base64.StdEncoding.EncodeToString(wav[off:end]),
		})
	}
	if t.cancelled.Load() {
		outcome = observe.TurnCancelled
		return
	}
	s.send(ctx, outboundEvent{Type: evtAudioEnd})
	outcome = observe.TurnCompleted
}

// transcribe runs recognition on a pool worker and reports its latency.
func (s *Session) transcribe(ctx context.Context, clip []byte) (string, error) {
	start := time.Now()
	defer func() {
		s.cfg.Metrics.RecordStage(context.WithoutCancel(ctx), observe.StageSTT, time.Since(start))
	}()

	var transcript string
	err := s.cfg.Pool.Do(ctx, func() error {
		var err error
		transcript, err = s.cfg.STT.Transcribe(ctx, clip)
		return err
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", stt.ErrNoSpeech
	}
	return transcript, nil
}

// exchange runs the gateway request concurrently with a delta-forwarding
// loop. Each delta is folded into the accumulated text and published as a
// non-final response_text event; the loop re-checks for cancellation on a
// short tick and tears the exchange down when the turn is superseded.
func (s *Session) exchange(ctx context.Context, t *turnState, sessionKey, message string) (string, error) {
	start := time.Now()
	defer func() {
		s.cfg.Metrics.RecordStage(context.WithoutCancel(ctx), observe.StageGateway, time.Since(start))
	}()

	exCtx, exCancel := context.WithCancel(ctx)
	defer exCancel()

	type result struct {
		text string
		err  error
	}
	deltaCh := make(chan string, 64)
	resCh := make(chan result, 1)

	go func() {
		text, err := s.cfg.Gateway.Exchange(exCtx, sessionKey, message, func(d string) {
			select {
			case deltaCh <- d:
			case <-exCtx.Done():
			}
		})
		resCh <- result{text: text, err: err}
	}()

	var accumulated strings.Builder
	ticker := time.NewTicker(deltaPollInterval)
	defer ticker.Stop()

	for {
		select {
		case d := <-deltaCh:
			accumulated.WriteString(d)
			if !t.cancelled.Load() {
				s.send(ctx, outboundEvent{
					Type:  evtResponseText,
					Text:  accumulated.String(),
					Final: boolPtr(false),
				})
			}

		case <-ticker.C:
			if t.cancelled.Load() {
				exCancel()
			}

		case r := <-resCh:
			// Once Exchange has returned no further deltas are produced, but
			// some may still sit in the buffer; flush them so every partial
			// precedes the final event.
			for {
				select {
				case d := <-deltaCh:
					accumulated.WriteString(d)
					if !t.cancelled.Load() {
						s.send(ctx, outboundEvent{
							Type:  evtResponseText,
							Text:  accumulated.String(),
							Final: boolPtr(false),
						})
					}
					continue
				default:
				}
				break
			}
			if r.err != nil {
				return "", r.err
			}
			if r.text == "" {
				return accumulated.String(), nil
			}
			return r.text, nil
		}
	}
}

// synthesize runs synthesis on a pool worker and reports its latency.
func (s *Session) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	start := time.Now()
	defer func() {
		s.cfg.Metrics.RecordStage(context.WithoutCancel(ctx), observe.StageTTS, time.Since(start))
	}()

	var wav []byte
	err := s.cfg.Pool.Do(ctx, func() error {
		var err error
		wav, err = s.cfg.TTS.Synthesize(ctx, text, voice)
		return err
	})
	return wav, err
}

// exchangeErrorMessage maps gateway failures to the message shown to the
// client.
func exchangeErrorMessage(err error) string {
	switch {
	case errors.Is(err, gateway.ErrUnavailable):
		return "agent gateway unavailable"
	case errors.Is(err, gateway.ErrCommunication):
		return "agent connection lost"
	case errors.Is(err, gateway.ErrAborted):
		return "agent aborted the reply"
	default:
		return "agent exchange failed"
	}
}
