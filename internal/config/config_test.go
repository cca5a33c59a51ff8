package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Set required environment variables
	os.Setenv("PROVIDER", "openai")
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}

	if cfg.Provider != "openai" {
		t.Errorf("Expected Provider 'openai', got '%s'", cfg.Provider)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Setenv("PROVIDER", "gemini")
	defer os.Unsetenv("PROVIDER")
	os.Unsetenv("GEMINI_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when the selected provider key is missing")
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	os.Setenv("PROVIDER", "acme")
	defer os.Unsetenv("PROVIDER")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("PROVIDER", "openai")
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.OpenAIModel != "gpt-4o-realtime-preview" {
		t.Errorf("Expected default OpenAIModel 'gpt-4o-realtime-preview', got '%s'", cfg.OpenAIModel)
	}

	if cfg.OpenAIVoice != "alloy" {
		t.Errorf("Expected default OpenAIVoice 'alloy', got '%s'", cfg.OpenAIVoice)
	}

	if cfg.GeminiModel != "gemini-2.0-flash-live-001" {
		t.Errorf("Expected default GeminiModel 'gemini-2.0-flash-live-001', got '%s'", cfg.GeminiModel)
	}

	if cfg.Temperature != 0.8 {
		t.Errorf("Expected default Temperature 0.8, got %f", cfg.Temperature)
	}

	if cfg.ConnectTimeout != 15 {
		t.Errorf("Expected default ConnectTimeout 15, got %d", cfg.ConnectTimeout)
	}

	if cfg.SilenceGapMs != 1500 {
		t.Errorf("Expected default SilenceGapMs 1500, got %d", cfg.SilenceGapMs)
	}

	if cfg.SilenceRMSLimit != 500.0 {
		t.Errorf("Expected default SilenceRMSLimit 500.0, got %f", cfg.SilenceRMSLimit)
	}

	if cfg.MicTestWindowSecs != 3 {
		t.Errorf("Expected default MicTestWindowSecs 3, got %d", cfg.MicTestWindowSecs)
	}

	if !cfg.Transcription {
		t.Error("Expected Transcription enabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PROVIDER", "grok")
	os.Setenv("XAI_API_KEY", "test-xai-key")
	defer os.Unsetenv("PROVIDER")
	defer os.Unsetenv("XAI_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.GrokAPIKey != "test-xai-key" {
		t.Errorf("Expected GrokAPIKey 'test-xai-key', got '%s'", cfg.GrokAPIKey)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
