package gemini

import (
	"time"

	"github.com/voicebridge/voicebridge/internal/tools"
)

const (
	// DefaultBaseURL is the BidiGenerateContent websocket endpoint
	DefaultBaseURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// InputSampleRate is the PCM16 rate for microphone audio
	InputSampleRate = 16000

	// OutputSampleRate is the PCM16 rate of model audio
	OutputSampleRate = 24000
)

// Settings configures one live session. The live API has no in-place session
// update, so changing settings forces a reconnect.
type Settings struct {
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	Temperature  float64
	TopP         float64

	// Transcription enables input and output transcription events
	Transcription bool

	// SilenceGap is how long input must stay silent before the client sends
	// the audioStreamEnd marker that flushes server-side buffering
	SilenceGap time.Duration

	// SilenceRMSLimit is the RMS energy below which a chunk counts as silent
	SilenceRMSLimit float64

	ConnectTimeout time.Duration

	// BaseURL overrides the live endpoint, used by tests
	BaseURL string

	Tools []tools.Schema
}

// ProviderName identifies these settings as Gemini settings
func (Settings) ProviderName() string { return "gemini" }

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

func (s Settings) silenceGap() time.Duration {
	if s.SilenceGap > 0 {
		return s.SilenceGap
	}
	return 1500 * time.Millisecond
}

func (s Settings) silenceRMSLimit() float64 {
	if s.SilenceRMSLimit > 0 {
		return s.SilenceRMSLimit
	}
	return 500.0
}
