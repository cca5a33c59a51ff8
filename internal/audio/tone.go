package audio

import (
	"math"
	"sync"
)

// ToneGenerator synthesizes PCM16 sine bursts used as audible markers during
// the microphone test. Generated tones are cached per generator instance, so
// two sessions never share hidden state.
type ToneGenerator struct {
	mu    sync.Mutex
	cache map[toneKey][]byte
}

type toneKey struct {
	freqHz     float64
	durationMs int
	sampleRate int
}

// NewToneGenerator creates an empty tone cache
func NewToneGenerator() *ToneGenerator {
	return &ToneGenerator{cache: make(map[toneKey][]byte)}
}

// Tone returns a PCM16 little-endian sine burst at the given frequency,
// duration and sample rate. Results are memoized.
func (g *ToneGenerator) Tone(freqHz float64, durationMs, sampleRate int) []byte {
	key := toneKey{freqHz: freqHz, durationMs: durationMs, sampleRate: sampleRate}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.cache[key]; ok {
		return cached
	}

	numSamples := sampleRate * durationMs / 1000
	samples := make([]int16, numSamples)
	const amplitude = 0.3 * math.MaxInt16

	// Short linear fade at both ends to avoid clicks
	fade := sampleRate / 100 // 10ms
	for i := 0; i < numSamples; i++ {
		v := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
		if i < fade {
			v *= float64(i) / float64(fade)
		}
		if remaining := numSamples - 1 - i; remaining < fade {
			v *= float64(remaining) / float64(fade)
		}
		samples[i] = int16(v)
	}

	data := SamplesToBytes(samples)
	g.cache[key] = data
	return data
}
