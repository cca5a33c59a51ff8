package grok

// Wire shapes for the xAI realtime websocket protocol. The event surface
// follows the OpenAI realtime shape with a "type" discriminator; the tool
// definition shape is the plain chat-completions function wrapper instead.

// TurnDetection is the server-side VAD configuration
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// InputTranscription enables user-audio transcription
type InputTranscription struct {
	Model string `json:"model"`
}

// SessionConfig is the session object inside session.update
type SessionConfig struct {
	Modalities              []string            `json:"modalities,omitempty"`
	Instructions            string              `json:"instructions,omitempty"`
	Voice                   string              `json:"voice,omitempty"`
	InputAudioFormat        string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string              `json:"output_audio_format,omitempty"`
	InputAudioTranscription *InputTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection      `json:"turn_detection,omitempty"`
	Temperature             float64             `json:"temperature,omitempty"`
	Tools                   []ToolDef           `json:"tools,omitempty"`
	ToolChoice              string              `json:"tool_choice,omitempty"`
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCancel struct {
	Type string `json:"type"`
}

type responseCreate struct {
	Type string `json:"type"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type itemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

// serverEvent is the superset of inbound frame fields the client reads
type serverEvent struct {
	Type string `json:"type"`

	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	Response *responseDone `json:"response,omitempty"`
	Error    *serverError  `json:"error,omitempty"`
}

type serverError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type responseDone struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Usage  *responseUsage `json:"usage,omitempty"`
}

type responseUsage struct {
	InputTokens        int           `json:"input_tokens"`
	OutputTokens       int           `json:"output_tokens"`
	InputTokenDetails  *tokenDetails `json:"input_token_details,omitempty"`
	OutputTokenDetails *tokenDetails `json:"output_token_details,omitempty"`
}

type tokenDetails struct {
	AudioTokens  int `json:"audio_tokens"`
	CachedTokens int `json:"cached_tokens"`
}
