package audio

import (
	"testing"
)

func TestBytesToSamples(t *testing.T) {
	// 0x0102 little-endian = bytes {0x02, 0x01}
	data := []byte{0x02, 0x01, 0xFE, 0xFF}
	samples, err := BytesToSamples(data)
	if err != nil {
		t.Fatalf("BytesToSamples() failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 0x0102 {
		t.Errorf("Expected sample 0x0102, got %#x", samples[0])
	}
	if samples[1] != -2 {
		t.Errorf("Expected sample -2, got %d", samples[1])
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	_, err := BytesToSamples([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestSamplesToBytes_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234, -1234}
	data := SamplesToBytes(samples)
	back, err := BytesToSamples(data)
	if err != nil {
		t.Fatalf("BytesToSamples() failed: %v", err)
	}
	if len(back) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(back))
	}
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], back[i])
		}
	}
}

func TestBase64PCM_RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x10, 0x7F, 0x80}
	chunk := EncodeBase64PCM(data)
	back, err := DecodeBase64PCM(chunk)
	if err != nil {
		t.Fatalf("DecodeBase64PCM() failed: %v", err)
	}
	if len(back) != len(data) {
		t.Fatalf("Expected %d bytes, got %d", len(data), len(back))
	}
	for i := range data {
		if back[i] != data[i] {
			t.Errorf("Byte %d: expected %d, got %d", i, data[i], back[i])
		}
	}
}

func TestDecodeBase64PCM_Invalid(t *testing.T) {
	_, err := DecodeBase64PCM("not-valid-base64!!!")
	if err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestCalculateRMS(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0.0 {
		t.Errorf("Expected RMS 0.0 for empty samples, got %f", rms)
	}

	// Constant signal: RMS equals the amplitude
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = 1000
	}
	rms := CalculateRMS(samples)
	if rms < 999.0 || rms > 1001.0 {
		t.Errorf("Expected RMS ~1000, got %f", rms)
	}
}

func TestDetectSilence(t *testing.T) {
	quiet := make([]int16, 100)
	for i := range quiet {
		quiet[i] = 5
	}
	if !DetectSilence(quiet, 500.0) {
		t.Error("Expected quiet samples to be silence")
	}

	loud := make([]int16, 100)
	for i := range loud {
		loud[i] = 5000
	}
	if DetectSilence(loud, 500.0) {
		t.Error("Expected loud samples to not be silence")
	}
}

func TestNormalizeAudio(t *testing.T) {
	samples := []int16{0, 16000, -32000}
	normalized := NormalizeAudio(samples, 16000)

	maxVal := int16(0)
	for _, s := range normalized {
		if s < 0 {
			s = -s
		}
		if s > maxVal {
			maxVal = s
		}
	}
	if maxVal > 16000 {
		t.Errorf("Expected max amplitude <= 16000, got %d", maxVal)
	}

	// Already-in-range audio is returned unchanged
	inRange := []int16{100, -100}
	out := NormalizeAudio(inRange, 16000)
	if out[0] != 100 || out[1] != -100 {
		t.Errorf("Expected in-range audio unchanged, got %v", out)
	}
}

func TestToneGenerator_Tone(t *testing.T) {
	gen := NewToneGenerator()

	tone := gen.Tone(880, 200, 24000)
	expectedLen := 24000 * 200 / 1000 * 2 // samples * 2 bytes
	if len(tone) != expectedLen {
		t.Errorf("Expected %d bytes, got %d", expectedLen, len(tone))
	}

	// A tone must not be silent
	samples, err := BytesToSamples(tone)
	if err != nil {
		t.Fatalf("BytesToSamples() failed: %v", err)
	}
	if DetectSilence(samples, 500.0) {
		t.Error("Expected generated tone to have audible energy")
	}

	// Cached: second call returns the identical slice
	tone2 := gen.Tone(880, 200, 24000)
	if &tone[0] != &tone2[0] {
		t.Error("Expected cached tone to be reused")
	}
}
