// Package session binds one provider protocol client to the audio hardware
// and fans provider events out to the host application.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicebridge/voicebridge/internal/audio"
	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/observability"
	"github.com/voicebridge/voicebridge/internal/provider"
	"github.com/voicebridge/voicebridge/internal/usage"
)

// HostCallbacks are fired toward the embedding application. Both are
// optional.
type HostCallbacks struct {
	OnMessage func(msg chat.Message)
	OnStatus  func(text string)
}

// Options configures a session controller
type Options struct {
	Device     audio.Device
	Host       HostCallbacks
	Metrics    *observability.Metrics
	Logger     zerolog.Logger
	InputRate  int
	OutputRate int

	// Microphone test parameters
	MicTestWindow      time.Duration
	RecordingBufferLen int
}

// Controller drives one voice session: start, stop, interrupt, and the
// microphone diagnostic. It exclusively owns the chat history and usage
// accumulator; the host gets read access through Snapshot methods.
type Controller struct {
	client  provider.Client
	device  audio.Device
	host    HostCallbacks
	metrics *observability.Metrics
	logger  zerolog.Logger

	history *chat.History
	usage   *usage.Accumulator
	tones   *audio.ToneGenerator

	playback *PlaybackQueue
	drained  chan struct{}

	inputRate  int
	outputRate int

	micTestWindow   time.Duration
	recordingBufLen int

	mu               sync.Mutex
	isInitialized    bool
	isConnecting     bool
	isRecording      bool
	isMicTesting     bool
	lastError        string
	connectionStatus string
}

func (o Options) withDefaults() Options {
	if o.InputRate == 0 {
		o.InputRate = 24000
	}
	if o.OutputRate == 0 {
		o.OutputRate = 24000
	}
	if o.MicTestWindow == 0 {
		o.MicTestWindow = 3 * time.Second
	}
	if o.RecordingBufferLen == 0 {
		o.RecordingBufferLen = 262144
	}
	return o
}

// NewController creates a controller with an empty history and usage
// accumulator and starts the playback drainer goroutine.
func NewController(opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		device:           opts.Device,
		host:             opts.Host,
		metrics:          opts.Metrics,
		logger:           opts.Logger,
		history:          chat.NewHistory(),
		usage:            usage.NewAccumulator(),
		tones:            audio.NewToneGenerator(),
		playback:         NewPlaybackQueue(),
		drained:          make(chan struct{}),
		inputRate:        opts.InputRate,
		outputRate:       opts.OutputRate,
		micTestWindow:    opts.MicTestWindow,
		recordingBufLen:  opts.RecordingBufferLen,
		connectionStatus: "disconnected",
	}
	go c.drainPlayback()
	return c
}

// AttachClient binds the provider client. Must be called before Start.
func (c *Controller) AttachClient(client provider.Client) {
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
}

// Events returns the callback wiring a provider client should be built with
func (c *Controller) Events() provider.Events {
	return provider.Events{
		OnMessage:           c.onMessage,
		OnAudio:             c.playback.Push,
		OnStatus:            c.onStatus,
		OnError:             c.onError,
		OnInterruptDetected: c.onInterruptDetected,
		OnUsage:             c.usage.Add,
	}
}

// History returns the controller-owned chat history for read access
func (c *Controller) History() *chat.History {
	return c.history
}

// Usage returns the controller-owned usage accumulator for read access
func (c *Controller) Usage() *usage.Accumulator {
	return c.usage
}

// Status reports the connection status text and last error
func (c *Controller) Status() (status, lastError string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionStatus, c.lastError
}

// IsRecording reports whether microphone capture is running
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRecording
}

// Start connects the provider with the given settings, replays prior
// history, and begins microphone capture. When a connection is already live
// it updates settings in place instead.
func (c *Controller) Start(ctx context.Context, settings provider.Settings) error {
	c.mu.Lock()
	if c.client == nil {
		c.mu.Unlock()
		return fmt.Errorf("no provider client attached")
	}
	if c.isConnecting {
		c.mu.Unlock()
		return fmt.Errorf("connection already in progress")
	}
	if c.isMicTesting {
		c.mu.Unlock()
		return fmt.Errorf("microphone test in progress")
	}
	client := c.client
	state := client.State()
	alreadyLive := state == provider.StateReady || state == provider.StateInterrupted
	c.isConnecting = !alreadyLive
	c.mu.Unlock()

	if alreadyLive {
		c.logger.Info().Msg("Session live, applying settings update")
		if err := client.UpdateSettings(ctx, settings); err != nil {
			c.recordError(err)
			return err
		}
		c.emitStatus("Settings updated")
		return nil
	}

	defer func() {
		c.mu.Lock()
		c.isConnecting = false
		c.mu.Unlock()
	}()

	c.emitStatus("Connecting...")
	if err := client.Connect(ctx, settings); err != nil {
		c.recordError(err)
		c.emitStatus(fmt.Sprintf("Connection failed: %v", err))
		return err
	}

	// Replay prior turns, dropping any trailing assistant message so the
	// model does not continue a response it never finished
	if replay := c.history.ReplayableSnapshot(); len(replay) > 0 {
		if err := client.InjectHistory(replay); err != nil {
			c.logger.Warn().Err(err).Msg("History replay failed")
		}
	}

	c.mu.Lock()
	needInit := !c.isInitialized
	c.mu.Unlock()
	if needInit {
		if err := c.device.Init(); err != nil {
			_ = client.Disconnect()
			c.recordError(err)
			return err
		}
		c.mu.Lock()
		c.isInitialized = true
		c.mu.Unlock()
	}

	if err := c.device.StartRecording(c.inputRate, func(chunk string) {
		if err := client.ProcessAudio(chunk); err != nil {
			c.logger.Warn().Err(err).Msg("Dropping audio frame")
		}
	}); err != nil {
		_ = client.Disconnect()
		c.mu.Lock()
		c.isRecording = false
		c.mu.Unlock()
		c.recordError(err)
		return err
	}

	c.mu.Lock()
	c.isRecording = true
	c.connectionStatus = "connected"
	c.lastError = ""
	c.mu.Unlock()

	c.usage.StartSession()
	if c.metrics != nil {
		c.metrics.RecordSessionStart()
	}
	c.emitStatus("Session started")
	c.logger.Info().Msg("Voice session started")
	return nil
}

// Stop ends the session: capture stops first so no new audio enters a
// closing socket, queued playback is cleared so stale audio goes silent,
// then the provider disconnects.
func (c *Controller) Stop() error {
	c.mu.Lock()
	client := c.client
	wasRecording := c.isRecording
	c.isRecording = false
	c.connectionStatus = "disconnected"
	c.mu.Unlock()

	if wasRecording {
		if err := c.device.StopRecording(); err != nil {
			c.logger.Warn().Err(err).Msg("Stopping capture failed")
		}
	}

	c.playback.Clear()
	c.device.ClearQueue()

	var err error
	if client != nil {
		err = client.Disconnect()
	}

	c.usage.EndSession()
	if c.metrics != nil && wasRecording {
		c.metrics.RecordSessionEnd()
	}
	c.emitStatus("Session stopped")
	c.logger.Info().Msg("Voice session stopped")
	return err
}

// Interrupt cancels the in-progress model response and silences queued
// playback immediately, without waiting for provider acknowledgement.
func (c *Controller) Interrupt() error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	c.playback.Clear()
	c.device.ClearQueue()

	if client == nil {
		return nil
	}
	return client.SendInterrupt()
}

// Close shuts the controller down, stopping the playback drainer
func (c *Controller) Close() error {
	err := c.Stop()
	c.playback.Close()
	<-c.drained
	return err
}

func (c *Controller) drainPlayback() {
	defer close(c.drained)
	for {
		chunk, ok := c.playback.Pop()
		if !ok {
			return
		}
		if err := c.device.Play(chunk, c.outputRate); err != nil {
			c.logger.Warn().Err(err).Msg("Playback failed")
		}
	}
}

func (c *Controller) onMessage(msg chat.Message) {
	c.history.Append(msg)
	if c.host.OnMessage != nil {
		c.host.OnMessage(msg)
	}
}

func (c *Controller) onStatus(text string) {
	// Some vendors signal barge-in only through status text
	if strings.Contains(strings.ToLower(text), "interrupt") {
		c.playback.Clear()
		c.device.ClearQueue()
	}
	c.emitStatus(text)
}

func (c *Controller) onError(text string) {
	c.mu.Lock()
	c.lastError = text
	c.mu.Unlock()
	c.emitStatus("Error: " + text)
}

func (c *Controller) onInterruptDetected() {
	c.playback.Clear()
	c.device.ClearQueue()
	c.logger.Debug().Msg("Barge-in, cleared playback queue")
}

func (c *Controller) emitStatus(text string) {
	if c.host.OnStatus != nil {
		c.host.OnStatus(text)
	}
}

func (c *Controller) recordError(err error) {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordError("session_error", "controller")
	}
}
