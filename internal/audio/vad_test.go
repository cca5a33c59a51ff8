package audio

import (
	"testing"
	"time"
)

func speechFrame() []int16 {
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = 5000
	}
	return samples
}

func quietFrame() []int16 {
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = 10
	}
	return samples
}

func TestSilenceTracker_SpeechDetection(t *testing.T) {
	tracker := NewSilenceTracker(nil)

	if tracker.IsSpeaking() {
		t.Error("Expected new tracker to be idle")
	}
	for i := 0; i < 5; i++ {
		if tracker.Observe(speechFrame()) {
			t.Errorf("Marker fired during speech on frame %d", i)
		}
		if !tracker.IsSpeaking() {
			t.Errorf("Expected speech detection on frame %d", i)
		}
	}
}

func TestSilenceTracker_DipDoesNotEndSpeech(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   3,
		Gap:             time.Millisecond,
	}
	tracker := NewSilenceTracker(config)

	tracker.Observe(speechFrame())
	tracker.Observe(quietFrame())
	tracker.Observe(quietFrame())
	if !tracker.IsSpeaking() {
		t.Error("Two quiet frames must not end speech with SilenceFrames=3")
	}

	tracker.Observe(speechFrame())
	tracker.Observe(quietFrame())
	tracker.Observe(quietFrame())
	if !tracker.IsSpeaking() {
		t.Error("Speech must reset the silent run counter")
	}
}

func TestSilenceTracker_MarkerFiresOncePerSilenceRun(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   3,
		Gap:             10 * time.Millisecond,
	}
	tracker := NewSilenceTracker(config)

	tracker.Observe(speechFrame())
	time.Sleep(20 * time.Millisecond)

	fired := 0
	for i := 0; i < 6; i++ {
		if tracker.Observe(quietFrame()) {
			fired++
			if i != 2 {
				t.Errorf("Marker fired on silent frame %d, want frame 3", i+1)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("Marker fired %d times in one silence run, want 1", fired)
	}
	if tracker.IsSpeaking() {
		t.Error("Expected tracker idle after the silence run")
	}

	// New speech rearms the marker for the next run
	tracker.Observe(speechFrame())
	time.Sleep(20 * time.Millisecond)
	fired = 0
	for i := 0; i < 6; i++ {
		if tracker.Observe(quietFrame()) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("Marker fired %d times after rearm, want 1", fired)
	}
}

func TestSilenceTracker_MarkerWaitsForGap(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   2,
		Gap:             time.Hour,
	}
	tracker := NewSilenceTracker(config)

	tracker.Observe(speechFrame())
	for i := 0; i < 10; i++ {
		if tracker.Observe(quietFrame()) {
			t.Fatal("Marker fired before the silence gap elapsed")
		}
	}
	if tracker.IsSpeaking() {
		t.Error("Expected the silent run to end speech even before the gap")
	}
}

func TestSilenceTracker_NoMarkerWithoutSpeech(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   2,
		Gap:             time.Millisecond,
	}
	tracker := NewSilenceTracker(config)

	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 10; i++ {
		if tracker.Observe(quietFrame()) {
			t.Fatal("Marker fired although no speech was ever observed")
		}
	}
}

func TestSilenceTracker_ObserveChunk(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   1,
		Gap:             5 * time.Millisecond,
	}
	tracker := NewSilenceTracker(config)

	tracker.ObserveChunk(EncodeBase64PCM(SamplesToBytes(speechFrame())))
	if !tracker.IsSpeaking() {
		t.Fatal("Expected speech detection from a loud chunk")
	}

	time.Sleep(10 * time.Millisecond)
	if !tracker.ObserveChunk("") {
		t.Error("Expected the marker from an empty chunk past the gap")
	}
	if tracker.ObserveChunk("") {
		t.Error("Marker repeated for continued silence")
	}
}

func TestSilenceTracker_Reset(t *testing.T) {
	config := &SilenceConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   1,
		Gap:             time.Millisecond,
	}
	tracker := NewSilenceTracker(config)

	tracker.Observe(speechFrame())
	if !tracker.IsSpeaking() {
		t.Fatal("Expected tracker to detect speech")
	}

	tracker.Reset()
	if tracker.IsSpeaking() {
		t.Error("Expected tracker to be idle after reset")
	}
	time.Sleep(5 * time.Millisecond)
	if tracker.Observe(quietFrame()) {
		t.Error("Reset must disarm the marker until new speech arrives")
	}
}

func TestIsSilentChunk(t *testing.T) {
	if !IsSilentChunk("", 500.0) {
		t.Error("Expected empty chunk to count as silent")
	}

	loud := make([]int16, 320)
	for i := range loud {
		loud[i] = 8000
	}
	if IsSilentChunk(EncodeBase64PCM(SamplesToBytes(loud)), 500.0) {
		t.Error("Expected loud chunk to not count as silent")
	}

	quiet := make([]int16, 320)
	if !IsSilentChunk(EncodeBase64PCM(SamplesToBytes(quiet)), 500.0) {
		t.Error("Expected quiet chunk to count as silent")
	}
}
