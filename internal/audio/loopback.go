package audio

import (
	"fmt"
	"sync"
)

// Loopback is a pure-Go Device used by the demo binary and tests.
// Captured chunks are fed in by the caller via Feed; played chunks are
// retained so tests can assert on ordering and queue clearing.
type Loopback struct {
	mu          sync.Mutex
	initialized bool
	recording   bool
	captureFn   CaptureFunc
	captureRate int
	played      []string
	mics        []Microphone
	selectedMic string
}

// NewLoopback creates a loopback device with a single default microphone
func NewLoopback() *Loopback {
	return &Loopback{
		mics: []Microphone{
			{ID: "loopback-0", Name: "Loopback Microphone", IsDefault: true},
		},
		selectedMic: "loopback-0",
	}
}

// Init marks the device ready
func (l *Loopback) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.initialized = true
	return nil
}

// StartRecording begins capture; chunks arrive via Feed
func (l *Loopback) StartRecording(sampleRate int, fn CaptureFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return fmt.Errorf("audio device is not initialized")
	}
	if l.recording {
		return fmt.Errorf("recording is already active")
	}
	l.recording = true
	l.captureFn = fn
	l.captureRate = sampleRate
	return nil
}

// StopRecording stops an active capture
func (l *Loopback) StopRecording() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recording = false
	l.captureFn = nil
	return nil
}

// Play records the chunk as played
func (l *Loopback) Play(base64PCM16 string, sampleRate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized {
		return fmt.Errorf("audio device is not initialized")
	}
	l.played = append(l.played, base64PCM16)
	return nil
}

// ClearQueue drops all retained playback audio
func (l *Loopback) ClearQueue() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.played = nil
}

// Microphones lists the loopback microphone
func (l *Loopback) Microphones() ([]Microphone, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Microphone, len(l.mics))
	copy(out, l.mics)
	return out, nil
}

// SetMicrophone selects a capture device by ID
func (l *Loopback) SetMicrophone(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, mic := range l.mics {
		if mic.ID == id {
			l.selectedMic = id
			return nil
		}
	}
	return fmt.Errorf("unknown microphone %q", id)
}

// Feed delivers one captured chunk to the active capture callback.
// Returns false if no capture is active.
func (l *Loopback) Feed(base64PCM16 string) bool {
	l.mu.Lock()
	fn := l.captureFn
	active := l.recording
	l.mu.Unlock()

	if !active || fn == nil {
		return false
	}
	fn(base64PCM16)
	return true
}

// IsRecording reports whether a capture is active
func (l *Loopback) IsRecording() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recording
}

// Played returns a snapshot of chunks handed to Play since the last clear
func (l *Loopback) Played() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.played))
	copy(out, l.played)
	return out
}
