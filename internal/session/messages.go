package session

// Inbound message types (client → server).
const (
	msgPing   = "ping"
	msgConfig = "config"
	msgCancel = "cancel"
	msgAudio  = "audio"
)

// Outbound event types (server → client).
const (
	evtReady        = "ready"
	evtPong         = "pong"
	evtConfigOK     = "config_ok"
	evtCancelled    = "cancelled"
	evtTranscript   = "transcript"
	evtThinking     = "thinking"
	evtResponseText = "response_text"
	evtAudioChunk   = "audio_chunk"
	evtAudioEnd     = "audio_end"
	evtError        = "error"
)

// inboundMessage is the envelope for every client frame. Fields beyond Type
// are populated depending on the message kind.
type inboundMessage struct {
	Type string `json:"type"`

	// config fields.
	AgentID    string `json:"agentId,omitempty"`
	STTModel   string `json:"sttModel,omitempty"`
	VoiceModel string `json:"voiceModel,omitempty"`

	// audio field: base64-encoded clip.
	Data string `json:"data,omitempty"`
}

// outboundEvent is the envelope for every server frame. Zero-valued fields
// are omitted so each event type carries only its own payload.
type outboundEvent struct {
	Type string `json:"type"`

	// transcript, response_text and error payloads.
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`

	// response_text: distinguishes streaming partials from the final text.
	// A pointer so partial events serialise "final": false explicitly.
	Final *bool `json:"final,omitempty"`

	// audio_chunk payload: base64-encoded slice.
	Data string `json:"data,omitempty"`

	// config_ok payload.
	AgentID    string `json:"agentId,omitempty"`
	STTModel   string `json:"sttModel,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
