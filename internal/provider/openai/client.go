// Package openai implements the realtime voice protocol client for the
// OpenAI Realtime API.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/provider"
	"github.com/voicebridge/voicebridge/internal/tools"
	"github.com/voicebridge/voicebridge/internal/usage"
)

// Client is the OpenAI realtime protocol client. It owns its websocket and
// receive loop exclusively.
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

	// Function calls collected for the in-flight response; receive-loop only
	pendingCalls []tools.CallRequest
}

// NewClient creates a disconnected client
func NewClient(events provider.Events, registry *tools.Registry, metrics *observability.Metrics) *Client {
	return &Client{
		events:     events,
		registry:   registry,
		metrics:    metrics,
		logger:     observability.WithProvider("openai"),
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

// Connect dials the realtime endpoint, sends the session configuration, and
// waits for the server's session acknowledgement before returning.
func (c *Client) Connect(ctx context.Context, settings provider.Settings) error {
	cfg, ok := settings.(Settings)
	if !ok {
		return provider.NewConfigurationError("openai", "expected openai.Settings, got %T", settings)
	}
	if cfg.APIKey == "" {
		return provider.NewConfigurationError("openai", "missing API key")
	}
	if c.State() != provider.StateDisconnected {
		return provider.NewConnectionError("openai", fmt.Errorf("already connected"))
	}

	c.settingsMu.Lock()
	c.settings = cfg
	c.settingsMu.Unlock()

	c.setState(provider.StateConnecting)
	if c.metrics != nil {
		c.metrics.RecordConnectStart()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer dialCancel()

	url := cfg.baseURL() + "?model=" + cfg.Model
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, header)
	if err != nil {
		c.setState(provider.StateDisconnected)
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("openai", err)
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancel = loopCancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.setupAck = make(chan struct{}, 1)
	c.pendingCalls = nil
	c.transcript.Discard()
	c.setState(provider.StateAwaitingSetup)

	go c.readLoop(loopCtx, conn, c.done)

	if err := c.sendJSON(sessionUpdate{Type: "session.update", Session: c.buildSessionConfig(cfg)}); err != nil {
		c.teardown()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("openai", err)
	}

	select {
	case <-c.setupAck:
	case <-time.After(cfg.connectTimeout()):
		c.teardown()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("openai", fmt.Errorf("timed out waiting for session acknowledgement"))
	case <-ctx.Done():
		c.teardown()
		if c.metrics != nil {
			c.metrics.RecordConnectEnd(false)
		}
		return provider.NewConnectionError("openai", ctx.Err())
	}

	c.setState(provider.StateReady)
	if c.metrics != nil {
		c.metrics.RecordConnectEnd(true)
	}
	c.logger.Info().Str("model", cfg.Model).Msg("Realtime session ready")
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
	c.logger.Info().Msg("Disconnected from realtime session")
	return nil
}

// teardown aborts a half-open connection during Connect
func (c *Client) teardown() {
	_ = c.Disconnect()
}

// ProcessAudio appends one base64 PCM16 chunk to the input buffer. No-op
// when not connected.
func (c *Client) ProcessAudio(base64Chunk string) error {
	switch c.State() {
	case provider.StateReady, provider.StateInterrupted:
	default:
		return nil
	}
	if base64Chunk == "" {
		return nil
	}
	if c.metrics != nil {
		if raw, err := base64.StdEncoding.DecodeString(base64Chunk); err == nil {
			c.metrics.RecordAudioBytes("in", int64(len(raw)))
		}
	}
	return c.sendJSON(audioAppend{Type: "input_audio_buffer.append", Audio: base64Chunk})
}

// SendInterrupt cancels the in-progress model response
func (c *Client) SendInterrupt() error {
	switch c.State() {
	case provider.StateReady, provider.StateInterrupted:
	default:
		return nil
	}
	if c.metrics != nil {
		c.metrics.RecordInterruption("client")
	}
	return c.sendJSON(responseCancel{Type: "response.cancel"})
}

// InjectHistory replays prior user and assistant turns as completed
// conversation items. Tool turns are not replayed.
func (c *Client) InjectHistory(messages []chat.Message) error {
	if c.State() != provider.StateReady {
		return nil
	}
	for _, msg := range messages {
		var item conversationItem
		switch msg.Role {
		case chat.RoleUser:
			item = conversationItem{
				Type:    "message",
				Role:    "user",
				Content: []contentPart{{Type: "input_text", Text: msg.Content}},
			}
		case chat.RoleAssistant:
			item = conversationItem{
				Type:    "message",
				Role:    "assistant",
				Content: []contentPart{{Type: "text", Text: msg.Content}},
			}
		default:
			continue
		}
		if err := c.sendJSON(itemCreate{Type: "conversation.item.create", Item: item}); err != nil {
			return err
		}
	}
	c.logger.Debug().Int("messages", len(messages)).Msg("Injected conversation history")
	return nil
}

// UpdateSettings applies new settings to the live session in place
func (c *Client) UpdateSettings(ctx context.Context, settings provider.Settings) error {
	cfg, ok := settings.(Settings)
	if !ok {
		return provider.NewConfigurationError("openai", "expected openai.Settings, got %T", settings)
	}
	switch c.State() {
	case provider.StateReady, provider.StateInterrupted:
	default:
		return provider.NewConnectionError("openai", fmt.Errorf("not connected"))
	}

	c.settingsMu.Lock()
	// Key and endpoint belong to the existing socket
	cfg.APIKey = c.settings.APIKey
	cfg.BaseURL = c.settings.BaseURL
	c.settings = cfg
	c.settingsMu.Unlock()

	c.logger.Info().Msg("Updating session settings in place")
	return c.sendJSON(sessionUpdate{Type: "session.update", Session: c.buildSessionConfig(cfg)})
}

func (c *Client) buildSessionConfig(cfg Settings) SessionConfig {
	session := SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      cfg.Instructions,
		Voice:             cfg.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		Temperature:       cfg.Temperature,
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         cfg.VADThreshold,
			PrefixPaddingMs:   cfg.VADPrefixPaddingMs,
			SilenceDurationMs: cfg.VADSilenceMs,
		},
		Tools:      TranslateSchemas(cfg.Tools),
		ToolChoice: "auto",
	}
	if cfg.Transcription {
		session.InputAudioTranscription = &InputTranscription{Model: "whisper-1"}
	}
	return session
}

func (c *Client) sendJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("openai: not connected")
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
			c.logger.Warn().Err(err).Msg("Realtime socket closed unexpectedly")
			if c.metrics != nil {
				c.metrics.RecordError("connection_error", "openai")
			}
			c.events.EmitError(fmt.Sprintf("Connection lost: %v", err))
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Error().Err(err).Msg("Skipping malformed frame")
			if c.metrics != nil {
				c.metrics.RecordError("protocol_error", "openai")
			}
			continue
		}
		c.handleEvent(ev)
	}
}

func (c *Client) handleEvent(ev serverEvent) {
	if c.metrics != nil {
		c.metrics.RecordProviderEvent(ev.Type)
	}

	switch ev.Type {
	case "session.created", "session.updated":
		select {
		case c.setupAck <- struct{}{}:
		default:
		}

	case "input_audio_buffer.speech_started":
		// Server VAD heard the user over in-flight playback
		if c.State() == provider.StateReady {
			c.setState(provider.StateInterrupted)
		}
		c.transcript.Discard()
		if c.metrics != nil {
			c.metrics.RecordInterruption("server")
		}
		c.events.EmitInterrupt()

	case "conversation.item.input_audio_transcription.completed":
		c.transcript.AddUser(ev.Transcript)

	case "response.created":
		// Model turn begins; the user's utterance is complete
		if msg, ok := c.transcript.FlushUser(); ok {
			c.events.EmitMessage(msg)
		}
		c.setState(provider.StateReady)

	case "response.audio.delta":
		c.events.EmitAudio(ev.Delta)
		if c.metrics != nil {
			if raw, err := base64.StdEncoding.DecodeString(ev.Delta); err == nil {
				c.metrics.RecordAudioBytes("out", int64(len(raw)))
			}
		}

	case "response.audio_transcript.delta":
		c.transcript.AddAssistant(ev.Delta)

	case "response.function_call_arguments.done":
		c.pendingCalls = append(c.pendingCalls, tools.CallRequest{
			ID:   ev.CallID,
			Name: ev.Name,
			Args: ev.Arguments,
		})

	case "response.done":
		c.finishResponse(ev.Response)

	case "error":
		msg := "unknown error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		c.logger.Error().Str("error", msg).Msg("Server reported an error")
		if c.metrics != nil {
			c.metrics.RecordError("protocol_error", "openai")
		}
		c.events.EmitError(msg)

	default:
		c.logger.Debug().Str("event", ev.Type).Msg("Ignoring event")
	}
}

// finishResponse closes out one model turn: report usage, answer any
// function calls, flush the assistant transcript.
func (c *Client) finishResponse(resp *responseDone) {
	if resp != nil && resp.Usage != nil {
		c.events.EmitUsage(translateUsage(resp.Usage))
	}

	if len(c.pendingCalls) > 0 {
		calls := c.pendingCalls
		c.pendingCalls = nil
		c.answerToolCalls(calls)
		return
	}

	if msg, ok := c.transcript.FlushAssistant(); ok {
		c.events.EmitMessage(msg)
	}
	if c.State() == provider.StateInterrupted {
		c.setState(provider.StateReady)
	}
}

// answerToolCalls executes the batched calls and sends exactly one output
// item per call id, in request order, then asks for the follow-up response.
func (c *Client) answerToolCalls(calls []tools.CallRequest) {
	if msg, ok := c.transcript.FlushUser(); ok {
		c.events.EmitMessage(msg)
	}

	responses := c.registry.ExecuteAll(context.Background(), calls, c.metrics)
	for _, resp := range responses {
		c.events.EmitMessage(chat.NewToolMessage(resp.ID, resp.Name, resp.Result))
		if err := c.sendJSON(itemCreate{Type: "conversation.item.create", Item: TranslateResult(resp)}); err != nil {
			c.logger.Error().Err(err).Str("call_id", resp.ID).Msg("Failed to send tool output")
			return
		}
	}
	if err := c.sendJSON(responseCreate{Type: "response.create"}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to request follow-up response")
	}
}

func translateUsage(u *responseUsage) usage.Report {
	report := usage.Report{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
	}
	if u.InputTokenDetails != nil {
		report.InputAudioTokens = u.InputTokenDetails.AudioTokens
		report.CachedTokens = u.InputTokenDetails.CachedTokens
	}
	if u.OutputTokenDetails != nil {
		report.OutputAudioTokens = u.OutputTokenDetails.AudioTokens
	}
	return report
}
