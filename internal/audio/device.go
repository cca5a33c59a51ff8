package audio

// CaptureFunc receives one captured chunk of base64-encoded PCM16 audio
type CaptureFunc func(base64PCM16 string)

// Microphone describes one capture device
type Microphone struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// Device is the platform audio collaborator: microphone capture and speaker
// playback. Implementations wrap whatever audio backend the host platform
// provides; the session controller only ever talks to this interface.
type Device interface {
	// Init prepares the audio backend; must be called before any other method
	Init() error

	// StartRecording begins capture at the given sample rate, delivering each
	// chunk to fn. Only one capture may be active at a time.
	StartRecording(sampleRate int, fn CaptureFunc) error

	// StopRecording stops an active capture; no-op when idle
	StopRecording() error

	// Play queues one base64 PCM16 chunk for playback at the given sample rate
	Play(base64PCM16 string, sampleRate int) error

	// ClearQueue drops all queued playback audio immediately
	ClearQueue()

	// Microphones lists the available capture devices
	Microphones() ([]Microphone, error)

	// SetMicrophone selects the capture device by ID
	SetMicrophone(id string) error
}
