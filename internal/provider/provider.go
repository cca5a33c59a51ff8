// Package provider defines the contract shared by the realtime voice
// providers. Each vendor client owns one websocket and its receive loop,
// emits normalized events toward the session controller, and accepts
// normalized commands.
package provider

import (
	"context"

	"github.com/voicebridge/voicebridge/internal/chat"
	"github.com/voicebridge/voicebridge/internal/usage"
)

// ConnState tracks one client's connection lifecycle
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateAwaitingSetup
	StateReady
	StateInterrupted
	StateClosing
)

// String returns the state name for logging
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingSetup:
		return "awaiting_setup"
	case StateReady:
		return "ready"
	case StateInterrupted:
		return "interrupted"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Settings is the marker interface for vendor-specific session settings.
// Each client type-asserts to its own concrete settings type and fails fast
// with a ConfigurationError on mismatch, before any I/O.
type Settings interface {
	ProviderName() string
}

// Events carries the callbacks a client fires toward the session controller.
// All callbacks are optional and fire from the client's receive loop, so they
// must not block.
type Events struct {
	OnMessage           func(msg chat.Message)
	OnAudio             func(base64Chunk string)
	OnStatus            func(text string)
	OnError             func(text string)
	OnInterruptDetected func()
	OnUsage             func(report usage.Report)
}

// EmitMessage forwards msg to the OnMessage callback if set
func (e Events) EmitMessage(msg chat.Message) {
	if e.OnMessage != nil {
		e.OnMessage(msg)
	}
}

// EmitAudio forwards a base64 PCM16 chunk to the OnAudio callback if set
func (e Events) EmitAudio(chunk string) {
	if e.OnAudio != nil {
		e.OnAudio(chunk)
	}
}

// EmitStatus forwards text to the OnStatus callback if set
func (e Events) EmitStatus(text string) {
	if e.OnStatus != nil {
		e.OnStatus(text)
	}
}

// EmitError forwards text to the OnError callback if set
func (e Events) EmitError(text string) {
	if e.OnError != nil {
		e.OnError(text)
	}
}

// EmitInterrupt fires the OnInterruptDetected callback if set
func (e Events) EmitInterrupt() {
	if e.OnInterruptDetected != nil {
		e.OnInterruptDetected()
	}
}

// EmitUsage forwards a usage report to the OnUsage callback if set
func (e Events) EmitUsage(r usage.Report) {
	if e.OnUsage != nil {
		e.OnUsage(r)
	}
}

// Client is the realtime provider contract. Implementations own their socket
// exclusively; the session controller never touches it directly.
type Client interface {
	// Connect opens the socket, sends the vendor setup message, and returns
	// once the vendor acknowledges setup or the configured timeout elapses.
	// It starts the receive loop.
	Connect(ctx context.Context, settings Settings) error

	// Disconnect cancels the receive loop, closes the socket if open, and
	// waits for the loop to finish. Idempotent.
	Disconnect() error

	// ProcessAudio sends one base64 PCM16 chunk. No-op when not connected.
	ProcessAudio(base64Chunk string) error

	// SendInterrupt cancels the in-progress model response. A no-op for
	// vendors whose server-side VAD handles barge-in on its own.
	SendInterrupt() error

	// InjectHistory replays prior turns as completed content messages.
	// Skipped while disconnected.
	InjectHistory(messages []chat.Message) error

	// UpdateSettings applies new settings to a live connection, either in
	// place or by reconnecting, vendor-dependent.
	UpdateSettings(ctx context.Context, settings Settings) error

	// State reports the current connection state
	State() ConnState
}
