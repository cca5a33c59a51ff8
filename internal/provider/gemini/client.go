// Package gemini implements the realtime voice protocol client for the
// Gemini Live API (BidiGenerateContent).
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicebridge/voicebridge/internal/audio"
	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/provider"
	"github.com/voicebridge/voicebridge/internal/tools"
	"github.com/voicebridge/voicebridge/internal/usage"
)

// Client is the Gemini Live protocol client. It owns its websocket and
// receive loop exclusively. The live API runs server-side VAD, so barge-in
// arrives as an interrupted signal rather than requiring an explicit cancel.
type Client struct {
	events   provider.Events
	registry *tools.Registry
	metrics  *observability.Metrics
	logger   zerolog.Logger

	mu     sync.Mutex // guards conn, cancel, done across connect/disconnect
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
	state   atomic.Int32

	settingsMu sync.Mutex
	settings   Settings

	transcript *provider.Transcript
	setupAck   chan struct{}

	// Audio stream-end tracking; guarded by audioMu
	audioMu sync.Mutex
	silence *audio.SilenceTracker

	// Receive-loop only: set once the model turn has produced output, so
	// the user transcript flushes exactly once per turn
	modelTurnStarted bool
}

// NewClient creates a disconnected client
func NewClient(events provider.Events, registry *tools.Registry, metrics *observability.Metrics) *Client {
	return &Client{
		events:     events,
		registry:   registry,
		metrics:    metrics,
		logger:     observability.WithProvider("gemini"),
		transcript: provider.NewTranscript(),
	}
}

// State reports the current connection state
func (c *Client) State() provider.ConnState {
	return provider.ConnState(c.state.Load())
}

func (c *Client) setState(s provider.ConnState) {
	c.state.Store(int32(s))
}

// Connect dials the live endpoint, sends the setup message, and waits for
// setupComplete before returning.
func (c *Client) Connect(ctx context.Context, settings provider.Settings) error {
	cfg, ok := settings.(Settings)
	if !ok {
		return provider.NewConfigurationError("gemini", "expected gemini.Settings, got %T", settings)
	}
	if cfg.APIKey == "" {
		return provider.NewConfigurationError("gemini", "missing API key")
	}
	if c.State() != provider.StateDisconnected {
		return provider.NewConnectionError("gemini", fmt.Errorf("already connected"))
	}

	c.settingsMu.Lock()
	c.settings = cfg
	c.settingsMu.Unlock()

	silenceCfg := audio.DefaultSilenceConfig()
	silenceCfg.EnergyThreshold = cfg.silenceRMSLimit()
	silenceCfg.Gap = cfg.silenceGap()
	c.audioMu.Lock()
	c.silence = audio.NewSilenceTracker(silenceCfg)
	c.audioMu.Unlock()

	c.setState(provider.StateConnecting)
	if c.metrics != nil {
		c.metrics.RecordConnectStart()
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer dialCancel()

	url := cfg.baseURL() + "?key=" + cfg.APIKey
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		c.setState(provider.StateDisconnected)
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("gemini", err)
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancel = loopCancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.setupAck = make(chan struct{}, 1)
	c.transcript.Discard()
	c.modelTurnStarted = false
	c.setState(provider.StateAwaitingSetup)

	go c.readLoop(loopCtx, conn, c.done)

	if err := c.sendJSON(clientFrame{Setup: c.buildSetup(cfg)}); err != nil {
		_ = c.Disconnect()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("gemini", err)
	}

	select {
	case <-c.setupAck:
	case <-time.After(cfg.connectTimeout()):
		_ = c.Disconnect()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("gemini", fmt.Errorf("timed out waiting for setupComplete"))
	case <-ctx.Done():
		_ = c.Disconnect()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("gemini", ctx.Err())
	}

	c.setState(provider.StateReady)
	if c.metrics != nil {
		c.metrics.RecordConnectEnd(true)
	}
	c.logger.Info().Str("model", cfg.Model).Msg("Live session ready")
	return nil
}

// Disconnect closes the socket and waits for the receive loop to finish.
// Idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if conn == nil {
		c.setState(provider.StateDisconnected)
		return nil
	}

	c.setState(provider.StateClosing)
	cancel()

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	c.writeMu.Unlock()
	_ = conn.Close()

	<-done
	c.setState(provider.StateDisconnected)
	c.logger.Info().Msg("Disconnected from live session")
	return nil
}

// ProcessAudio streams one base64 PCM16 chunk. The silence tracker watches
// every captured frame; once speech has ended and input has stayed silent
// past the configured gap, the next silent chunk turns into a single
// audioStreamEnd marker instead, flushing server-side buffering. The marker
// is decided lazily here rather than from a timer, so it can never fire
// during active speech.
func (c *Client) ProcessAudio(base64Chunk string) error {
	switch c.State() {
	case provider.StateReady, provider.StateInterrupted:
	default:
		return nil
	}

	c.audioMu.Lock()
	markerDue := c.silence != nil && c.silence.ObserveChunk(base64Chunk)
	c.audioMu.Unlock()

	if markerDue {
		c.logger.Debug().Msg("Input silent past gap, sending audioStreamEnd")
		return c.sendJSON(clientFrame{RealtimeInput: &realtimeInput{AudioStreamEnd: true}})
	}
	if base64Chunk == "" {
		return nil
	}

	if c.metrics != nil {
		if raw, err := base64.StdEncoding.DecodeString(base64Chunk); err == nil {
			c.metrics.RecordAudioBytes("in", int64(len(raw)))
		}
	}
	return c.sendJSON(clientFrame{RealtimeInput: &realtimeInput{
		MediaChunks: []inlineData{{
			MimeType: fmt.Sprintf("audio/pcm;rate=%d", InputSampleRate),
			Data:     base64Chunk,
		}},
	}})
}

// SendInterrupt is a no-op: the live API's server VAD detects barge-in on
// its own and reports it with an interrupted signal.
func (c *Client) SendInterrupt() error {
	return nil
}

// InjectHistory replays prior user and assistant turns as completed client
// content. Tool turns are not replayed.
func (c *Client) InjectHistory(messages []chat.Message) error {
	if c.State() != provider.StateReady {
		return nil
	}
	turns := make([]content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			turns = append(turns, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		case chat.RoleAssistant:
			turns = append(turns, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(turns) == 0 {
		return nil
	}
	c.logger.Debug().Int("turns", len(turns)).Msg("Injected conversation history")
	return c.sendJSON(clientFrame{ClientContent: &clientContent{
		Turns:        turns,
		TurnComplete: true,
	}})
}

// UpdateSettings tears down the live connection and reconnects with the new
// settings; the live API has no in-place session update.
func (c *Client) UpdateSettings(ctx context.Context, settings provider.Settings) error {
	cfg, ok := settings.(Settings)
	if !ok {
		return provider.NewConfigurationError("gemini", "expected gemini.Settings, got %T", settings)
	}
	c.logger.Info().Msg("Settings changed, reconnecting live session")
	if err := c.Disconnect(); err != nil {
		return err
	}
	return c.Connect(ctx, cfg)
}

func (c *Client) buildSetup(cfg Settings) *setupMessage {
	setup := &setupMessage{
		Model: "models/" + cfg.Model,
		GenerationConfig: &generationConfig{
			Temperature:        cfg.Temperature,
			TopP:               cfg.TopP,
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
				},
			},
		},
		Tools: TranslateSchemas(cfg.Tools),
	}
	if cfg.Instructions != "" {
		setup.SystemInstruction = &content{Parts: []part{{Text: cfg.Instructions}}}
	}
	if cfg.Transcription {
		setup.InputAudioTranscription = &struct{}{}
		setup.OutputAudioTranscription = &struct{}{}
	}
	return setup
}

func (c *Client) sendJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("gemini: not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.State() == provider.StateClosing {
				return
			}
			c.setState(provider.StateDisconnected)
			c.logger.Warn().Err(err).Msg("Live socket closed unexpectedly")
			if c.metrics != nil {
				c.metrics.RecordError("connection_error", "gemini")
			}
			c.events.EmitError(fmt.Sprintf("Connection lost: %v", err))
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Error().Err(err).Msg("Skipping malformed frame")
			if c.metrics != nil {
				c.metrics.RecordError("protocol_error", "gemini")
			}
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame serverFrame) {
	switch {
	case frame.SetupComplete != nil:
		if c.metrics != nil {
			c.metrics.RecordProviderEvent("setup_complete")
		}
		select {
		case c.setupAck <- struct{}{}:
		default:
		}

	case frame.ServerContent != nil:
		c.handleServerContent(frame.ServerContent)

	case frame.ToolCall != nil:
		if c.metrics != nil {
			c.metrics.RecordProviderEvent("tool_call")
		}
		c.handleToolCall(frame.ToolCall)

	case frame.UsageMetadata != nil:
		if c.metrics != nil {
			c.metrics.RecordProviderEvent("usage_metadata")
		}
		c.events.EmitUsage(translateUsage(frame.UsageMetadata))

	case frame.Error != nil:
		c.logger.Error().Int("code", frame.Error.Code).Str("error", frame.Error.Message).Msg("Server reported an error")
		if c.metrics != nil {
			c.metrics.RecordError("protocol_error", "gemini")
		}
		c.events.EmitError(frame.Error.Message)

	default:
		c.logger.Debug().Msg("Ignoring unrecognized frame")
	}
}

func (c *Client) handleServerContent(sc *serverContent) {
	if c.metrics != nil {
		c.metrics.RecordProviderEvent("server_content")
	}

	if sc.Interrupted {
		// Barge-in: drop the partial turn, nothing reaches history
		c.transcript.Discard()
		c.modelTurnStarted = false
		c.setState(provider.StateInterrupted)
		if c.metrics != nil {
			c.metrics.RecordInterruption("server")
		}
		c.events.EmitInterrupt()
		return
	}

	if sc.InputTranscription != nil {
		c.transcript.AddUser(sc.InputTranscription.Text)
	}
	if sc.OutputTranscription != nil {
		c.transcript.AddAssistant(sc.OutputTranscription.Text)
	}

	if sc.ModelTurn != nil {
		c.beginModelTurn()
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				c.events.EmitAudio(p.InlineData.Data)
				if c.metrics != nil {
					if raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data); err == nil {
						c.metrics.RecordAudioBytes("out", int64(len(raw)))
					}
				}
			}
			if p.Text != "" {
				c.transcript.AddAssistant(p.Text)
			}
		}
	}

	if sc.TurnComplete {
		if msg, ok := c.transcript.FlushAssistant(); ok {
			c.events.EmitMessage(msg)
		}
		c.modelTurnStarted = false
		c.setState(provider.StateReady)
	}
}

// beginModelTurn flushes the user transcript exactly once when the model
// starts producing output for a turn
func (c *Client) beginModelTurn() {
	if c.modelTurnStarted {
		return
	}
	c.modelTurnStarted = true
	if msg, ok := c.transcript.FlushUser(); ok {
		c.events.EmitMessage(msg)
	}
}

// handleToolCall executes the batched calls and answers each id exactly
// once, in request order, inside a single toolResponse message.
func (c *Client) handleToolCall(tc *toolCall) {
	c.beginModelTurn()

	reqs := make([]tools.CallRequest, len(tc.FunctionCalls))
	for i, fc := range tc.FunctionCalls {
		args := "{}"
		if len(fc.Args) > 0 {
			args = string(fc.Args)
		}
		reqs[i] = tools.CallRequest{ID: fc.ID, Name: fc.Name, Args: args}
	}

	responses := c.registry.ExecuteAll(context.Background(), reqs, c.metrics)
	batch := make([]functionResponse, len(responses))
	for i, resp := range responses {
		c.events.EmitMessage(chat.NewToolMessage(resp.ID, resp.Name, resp.Result))
		batch[i] = TranslateResult(resp)
	}

	if err := c.sendJSON(clientFrame{ToolResponse: &toolResponse{FunctionResponses: batch}}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to send tool responses")
	}
}

func translateUsage(u *usageMetadata) usage.Report {
	report := usage.Report{
		InputTokens:  u.PromptTokenCount,
		OutputTokens: u.ResponseTokenCount,
		CachedTokens: u.CachedContentTokens,
	}
	for _, d := range u.PromptTokensDetails {
		if d.Modality == "AUDIO" {
			report.InputAudioTokens += d.TokenCount
		}
	}
	for _, d := range u.ResponseTokensDetails {
		if d.Modality == "AUDIO" {
			report.OutputAudioTokens += d.TokenCount
		}
	}
	return report
}
