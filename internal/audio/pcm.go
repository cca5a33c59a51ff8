package audio

import (
	"encoding/base64"
	"fmt"
	"math"
)

// BytesToSamples converts little-endian PCM16 bytes to signed 16-bit samples
func BytesToSamples(pcmData []byte) ([]int16, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]int16, len(pcmData)/2)
	for i := 0; i < len(samples); i++ {
		// Little-endian 16-bit signed integer
		samples[i] = int16(pcmData[i*2]) | int16(pcmData[i*2+1])<<8
	}
	return samples, nil
}

// SamplesToBytes converts signed 16-bit samples to little-endian PCM16 bytes
func SamplesToBytes(samples []int16) []byte {
	pcmData := make([]byte, len(samples)*2)
	for i, sample := range samples {
		pcmData[i*2] = byte(sample)
		pcmData[i*2+1] = byte(sample >> 8)
	}
	return pcmData
}

// DecodeBase64PCM decodes a base64 chunk into raw PCM16 bytes
func DecodeBase64PCM(chunk string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return data, nil
}

// EncodeBase64PCM encodes raw PCM16 bytes as a base64 chunk
func EncodeBase64PCM(pcmData []byte) string {
	return base64.StdEncoding.EncodeToString(pcmData)
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting audio levels and silence
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// NormalizeAudio normalizes audio samples to prevent clipping
func NormalizeAudio(samples []int16, maxAmplitude int16) []int16 {
	if len(samples) == 0 {
		return samples
	}

	// Find maximum amplitude
	maxVal := int16(0)
	for _, sample := range samples {
		abs := sample
		if abs < 0 {
			abs = -abs
		}
		if abs > maxVal {
			maxVal = abs
		}
	}

	// If already within range, return as-is
	if maxVal <= maxAmplitude {
		return samples
	}

	// Normalize
	ratio := float64(maxAmplitude) / float64(maxVal)
	normalized := make([]int16, len(samples))
	for i, sample := range samples {
		normalized[i] = int16(float64(sample) * ratio)
	}

	return normalized
}

// DetectSilence detects if audio samples represent silence
// Uses a simple energy threshold
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}

// IsSilentChunk reports whether a base64 PCM16 chunk is empty or below the
// given RMS energy threshold. Undecodable chunks count as silent.
func IsSilentChunk(chunk string, threshold float64) bool {
	if chunk == "" {
		return true
	}
	data, err := DecodeBase64PCM(chunk)
	if err != nil || len(data) == 0 {
		return true
	}
	samples, err := BytesToSamples(data)
	if err != nil {
		return true
	}
	return DetectSilence(samples, threshold)
}
