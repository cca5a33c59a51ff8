package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voicebridge service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Provider selects which realtime voice vendor to use: openai, gemini, grok
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// OpenAI Realtime API configuration
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-realtime-preview"`
	OpenAIVoice  string `envconfig:"OPENAI_VOICE" default:"alloy"`

	// Gemini Live API configuration
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-live-001"`
	GeminiVoice  string `envconfig:"GEMINI_VOICE" default:"Puck"`

	// Grok (xAI) Realtime API configuration
	GrokAPIKey string `envconfig:"XAI_API_KEY" default:""`
	GrokModel  string `envconfig:"XAI_MODEL" default:"grok-3-realtime"`
	GrokVoice  string `envconfig:"XAI_VOICE" default:"ara"`

	// Session defaults
	Instructions  string  `envconfig:"INSTRUCTIONS" default:"You are a helpful voice assistant."`
	Temperature   float64 `envconfig:"TEMPERATURE" default:"0.8"`
	TopP          float64 `envconfig:"TOP_P" default:"1.0"`
	Transcription bool    `envconfig:"TRANSCRIPTION" default:"true"` // Emit user/model transcripts into history

	// Connection configuration
	ConnectTimeout int `envconfig:"CONNECT_TIMEOUT" default:"15"` // Seconds to wait for socket open + setup ack

	// Turn detection (server VAD) configuration
	VADThreshold       float64 `envconfig:"VAD_THRESHOLD" default:"0.5"` // Server VAD speech probability threshold
	VADPrefixPaddingMs int     `envconfig:"VAD_PREFIX_PADDING_MS" default:"300"`
	VADSilenceMs       int     `envconfig:"VAD_SILENCE_MS" default:"500"` // Server-side silence to end a turn

	// Client-side silence tracking (stream-end marker for vendors that need it)
	SilenceGapMs    int     `envconfig:"SILENCE_GAP_MS" default:"1500"`     // Silence gap before the stream-end marker
	SilenceRMSLimit float64 `envconfig:"SILENCE_RMS_LIMIT" default:"500.0"` // RMS energy below which a frame counts as silent

	// Microphone test configuration
	MicTestWindowSecs  int `envconfig:"MIC_TEST_WINDOW_SECS" default:"3"`      // Recording window for the microphone test
	RecordingBufferLen int `envconfig:"RECORDING_BUFFER_LEN" default:"262144"` // Ring buffer size for mic-test capture, bytes

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the selected provider has the credentials it needs
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when PROVIDER=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when PROVIDER=gemini")
		}
	case "grok":
		if c.GrokAPIKey == "" {
			return fmt.Errorf("XAI_API_KEY is required when PROVIDER=grok")
		}
	default:
		return fmt.Errorf("unknown provider %q (expected openai, gemini or grok)", c.Provider)
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
