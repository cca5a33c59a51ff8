package openai

import "encoding/json"

// Wire shapes for the realtime websocket protocol. Every frame in both
// directions is a JSON object with a "type" discriminator.

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
	Model                   string              `json:"model,omitempty"`
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

// sessionUpdate is the client "session.update" frame
type sessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// audioAppend is the client "input_audio_buffer.append" frame
type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// responseCancel is the client "response.cancel" frame
type responseCancel struct {
	Type string `json:"type"`
}

// responseCreate is the client "response.create" frame
type responseCreate struct {
	Type string `json:"type"`
}

// contentPart is one part of a conversation item's content
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// conversationItem is a history or tool-output item
type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// itemCreate is the client "conversation.item.create" frame
type itemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

// serverEvent is the superset of inbound frame fields the client reads
type serverEvent struct {
	Type string `json:"type"`

	// response.audio.delta, response.audio_transcript.delta
	Delta string `json:"delta,omitempty"`

	// conversation.item.input_audio_transcription.completed
	Transcript string `json:"transcript,omitempty"`

	// response.function_call_arguments.done
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// response.done
	Response *responseDone `json:"response,omitempty"`

	// error
	Error *serverError `json:"error,omitempty"`
}

type serverError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type responseDone struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status,omitempty"`
	Usage  *responseUsage  `json:"usage,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
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
