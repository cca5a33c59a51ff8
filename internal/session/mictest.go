package session

import (
	"fmt"
	"time"

	"github.com/voicebridge/voicebridge/internal/audio"
)

// Marker tone frequencies for the microphone test, chosen to be clearly
// distinguishable from each other.
const (
	toneRecordStart = 880.0
	toneRecordEnd   = 660.0
	toneSuccess     = 990.0
	toneDurationMs  = 200
)

// TestMicrophone runs the self-contained microphone diagnostic: play a
// marker tone, record for the configured window, play a second marker, play
// the recording back, and finish with a success tone. It refuses to run
// while a session is active or a test is already running.
func (c *Controller) TestMicrophone() error {
	c.mu.Lock()
	if c.isRecording || c.isConnecting {
		c.mu.Unlock()
		return fmt.Errorf("cannot test microphone during an active session")
	}
	if c.isMicTesting {
		c.mu.Unlock()
		return fmt.Errorf("microphone test already running")
	}
	c.isMicTesting = true
	needInit := !c.isInitialized
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isMicTesting = false
		c.mu.Unlock()
	}()

	if needInit {
		if err := c.device.Init(); err != nil {
			c.recordError(err)
			return err
		}
		c.mu.Lock()
		c.isInitialized = true
		c.mu.Unlock()
	}

	c.emitStatus("Microphone test starting")
	if err := c.playTone(toneRecordStart); err != nil {
		return err
	}

	recording := audio.NewRingBuffer(c.recordingBufLen)
	if err := c.device.StartRecording(c.inputRate, func(chunk string) {
		raw, err := audio.DecodeBase64PCM(chunk)
		if err != nil {
			return
		}
		if written := recording.Write(raw); written < len(raw) {
			c.logger.Debug().Int("dropped", len(raw)-written).Msg("Recording buffer full")
		}
	}); err != nil {
		c.recordError(err)
		return err
	}

	time.Sleep(c.micTestWindow)

	if err := c.device.StopRecording(); err != nil {
		c.recordError(err)
		return err
	}
	if err := c.playTone(toneRecordEnd); err != nil {
		return err
	}

	// Play the recording back
	buf := make([]byte, recording.Available())
	n := recording.Read(buf)
	if n > 0 {
		if err := c.device.Play(audio.EncodeBase64PCM(buf[:n]), c.inputRate); err != nil {
			c.recordError(err)
			return err
		}
	} else {
		c.emitStatus("Microphone test captured no audio")
	}

	if err := c.playTone(toneSuccess); err != nil {
		return err
	}
	c.emitStatus("Microphone test complete")
	return nil
}

func (c *Controller) playTone(freqHz float64) error {
	tone := c.tones.Tone(freqHz, toneDurationMs, c.outputRate)
	if err := c.device.Play(audio.EncodeBase64PCM(tone), c.outputRate); err != nil {
		c.recordError(err)
		return err
	}
	return nil
}
