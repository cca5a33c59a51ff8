package grok

import (
	"time"

	"github.com/voicebridge/voicebridge/internal/tools"
)

const (
	// DefaultBaseURL is the xAI realtime websocket endpoint
	DefaultBaseURL = "wss://api.x.ai/v1/realtime"

	// SampleRate is the PCM16 rate in both directions
	SampleRate = 24000
)

// Settings configures one realtime session. The xAI realtime API does not
// honor session updates on a live socket, so changing settings forces a
// reconnect.
type Settings struct {
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	Temperature  float64

	// Transcription enables user-input transcription events
	Transcription bool

	// Server-side VAD turn detection
	VADThreshold       float64
	VADPrefixPaddingMs int
	VADSilenceMs       int

	ConnectTimeout time.Duration

	// BaseURL overrides the realtime endpoint, used by tests
	BaseURL string

	Tools []tools.Schema
}

// ProviderName identifies these settings as Grok settings
func (Settings) ProviderName() string { return "grok" }

func (s Settings) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return DefaultBaseURL
}

func (s Settings) connectTimeout() time.Duration {
	if s.ConnectTimeout > 0 {
		return s.ConnectTimeout
	}
	return 15 * time.Second
}
