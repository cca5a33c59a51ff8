package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voicebridge/voicebridge/internal/audio"
	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/provider"
	"github.com/voicebridge/voicebridge/internal/provider/gemini"
	"github.com/voicebridge/voicebridge/internal/provider/grok"
	"github.com/voicebridge/voicebridge/internal/provider/openai"
	"github.com/voicebridge/voicebridge/internal/session"
	"github.com/voicebridge/voicebridge/internal/tools"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("provider", cfg.Provider).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voicebridge service starting")

	registry := tools.NewRegistry()
	if err := registerBuiltinTools(registry); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register tools")
	}

	sessionID := observability.NewSessionID()
	metrics := observability.NewSessionMetrics(sessionID, cfg.Provider)

	ctrl := session.NewController(session.Options{
		Device: audio.NewLoopback(),
		Host: session.HostCallbacks{
			OnMessage: func(msg chat.Message) {
				logger.Info().
					Str("role", string(msg.Role)).
					Str("content", msg.Content).
					Msg("Transcript")
			},
			OnStatus: func(text string) {
				logger.Info().Str("status", text).Msg("Session status")
			},
		},
		Metrics:            metrics,
		Logger:             observability.WithSessionID(sessionID),
		InputRate:          inputRateFor(cfg.Provider),
		OutputRate:         24000,
		MicTestWindow:      time.Duration(cfg.MicTestWindowSecs) * time.Second,
		RecordingBufferLen: cfg.RecordingBufferLen,
	})

	client, settings, err := buildProvider(cfg, ctrl.Events(), registry, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build provider client")
	}
	ctrl.AttachClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx, settings); err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Provider).Msg("Failed to start session")
	}

	// Create HTTP server
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	sessionCheck := func(ctx context.Context) (bool, error) {
		if client.State() != provider.StateReady && client.State() != provider.StateInterrupted {
			return false, fmt.Errorf("session not live: %s", client.State())
		}
		return true, nil
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"session": sessionCheck,
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	if err := ctrl.Stop(); err != nil {
		logger.Error().Err(err).Msg("Session stop failed")
	}
	if err := ctrl.Close(); err != nil {
		logger.Error().Err(err).Msg("Controller close failed")
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// buildProvider constructs the client and settings for the configured vendor.
// All three clients share the controller's event callbacks and tool registry.
func buildProvider(cfg *config.Config, events provider.Events, registry *tools.Registry, metrics *observability.Metrics) (provider.Client, provider.Settings, error) {
	connectTimeout := time.Duration(cfg.ConnectTimeout) * time.Second

	switch cfg.Provider {
	case "openai":
		settings := openai.Settings{
			APIKey:             cfg.OpenAIAPIKey,
			Model:              cfg.OpenAIModel,
			Voice:              cfg.OpenAIVoice,
			Instructions:       cfg.Instructions,
			Temperature:        cfg.Temperature,
			Transcription:      cfg.Transcription,
			VADThreshold:       cfg.VADThreshold,
			VADPrefixPaddingMs: cfg.VADPrefixPaddingMs,
			VADSilenceMs:       cfg.VADSilenceMs,
			ConnectTimeout:     connectTimeout,
			Tools:              registry.Schemas(),
		}
		return openai.NewClient(events, registry, metrics), settings, nil

	case "gemini":
		settings := gemini.Settings{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.GeminiModel,
			Voice:           cfg.GeminiVoice,
			Instructions:    cfg.Instructions,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			Transcription:   cfg.Transcription,
			SilenceGap:      time.Duration(cfg.SilenceGapMs) * time.Millisecond,
			SilenceRMSLimit: cfg.SilenceRMSLimit,
			ConnectTimeout:  connectTimeout,
			Tools:           registry.Schemas(),
		}
		return gemini.NewClient(events, registry, metrics), settings, nil

	case "grok":
		settings := grok.Settings{
			APIKey:             cfg.GrokAPIKey,
			Model:              cfg.GrokModel,
			Voice:              cfg.GrokVoice,
			Instructions:       cfg.Instructions,
			Temperature:        cfg.Temperature,
			Transcription:      cfg.Transcription,
			VADThreshold:       cfg.VADThreshold,
			VADPrefixPaddingMs: cfg.VADPrefixPaddingMs,
			VADSilenceMs:       cfg.VADSilenceMs,
			ConnectTimeout:     connectTimeout,
			Tools:              registry.Schemas(),
		}
		return grok.NewClient(events, registry, metrics), settings, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// inputRateFor returns the microphone sample rate the vendor expects
func inputRateFor(providerName string) int {
	if providerName == "gemini" {
		return gemini.InputSampleRate
	}
	return openai.SampleRate
}

type timeArgs struct {
	Timezone string `json:"timezone,omitempty" desc:"IANA timezone name, defaults to UTC"`
}

// registerBuiltinTools installs the tools every session exposes to the model
func registerBuiltinTools(registry *tools.Registry) error {
	return registry.Register(tools.Tool{
		Name:        "get_time",
		Description: "Get the current date and time, optionally in a specific timezone",
		Args:        timeArgs{},
		Handler: func(ctx context.Context, args string) (string, error) {
			var a timeArgs
			if err := tools.DecodeArgs(args, &a); err != nil {
				return "", err
			}
			loc := time.UTC
			if a.Timezone != "" {
				var err error
				loc, err = time.LoadLocation(a.Timezone)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", a.Timezone)
				}
			}
			return time.Now().In(loc).Format(time.RFC1123), nil
		},
	})
}
