package audio

import "time"

// SilenceConfig holds configuration for client-side silence tracking
type SilenceConfig struct {
	EnergyThreshold float64       // RMS energy below which a frame counts as silent
	SilenceFrames   int           // Consecutive silent frames before speech counts as ended
	Gap             time.Duration // Silence since the last speech frame before the stream-end marker is due
}

// DefaultSilenceConfig returns a default silence tracking configuration
func DefaultSilenceConfig() *SilenceConfig {
	return &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
		Gap:             1500 * time.Millisecond,
	}
}

// SilenceTracker decides when captured input has stayed quiet long enough
// that the stream-end marker some vendors need is due. Vendors with
// server-side VAD own turn-taking; the tracker only feeds that marker.
// Speech ends after a run of SilenceFrames quiet frames, so a single dip
// mid-sentence does not start the gap clock.
type SilenceTracker struct {
	config       *SilenceConfig
	silentRun    int
	isSpeaking   bool
	lastSpeechAt time.Time
	markerSent   bool
}

// NewSilenceTracker creates a new silence tracker
func NewSilenceTracker(config *SilenceConfig) *SilenceTracker {
	if config == nil {
		config = DefaultSilenceConfig()
	}
	return &SilenceTracker{config: config}
}

// Observe classifies one captured frame and reports whether the stream-end
// marker should fire now. The marker fires at most once per silence run;
// any speech frame rearms it. Nil samples count as a silent frame. Before
// the first speech frame the marker never fires.
func (v *SilenceTracker) Observe(samples []int16) bool {
	return v.observe(DetectSilence(samples, v.config.EnergyThreshold))
}

// ObserveChunk classifies one base64 PCM16 chunk; see Observe. Empty and
// undecodable chunks count as silent frames.
func (v *SilenceTracker) ObserveChunk(chunk string) bool {
	return v.observe(IsSilentChunk(chunk, v.config.EnergyThreshold))
}

func (v *SilenceTracker) observe(silent bool) bool {
	if !silent {
		v.silentRun = 0
		v.isSpeaking = true
		v.lastSpeechAt = time.Now()
		v.markerSent = false
		return false
	}

	v.silentRun++
	if v.isSpeaking && v.silentRun >= v.config.SilenceFrames {
		v.isSpeaking = false
	}
	if v.isSpeaking || v.markerSent || v.lastSpeechAt.IsZero() {
		return false
	}
	if time.Since(v.lastSpeechAt) < v.config.Gap {
		return false
	}
	v.markerSent = true
	return true
}

// IsSpeaking returns whether the recent frames count as speech
func (v *SilenceTracker) IsSpeaking() bool {
	return v.isSpeaking
}

// Reset clears the tracker state
func (v *SilenceTracker) Reset() {
	v.silentRun = 0
	v.isSpeaking = false
	v.lastSpeechAt = time.Time{}
	v.markerSent = false
}
