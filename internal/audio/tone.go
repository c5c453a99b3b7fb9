// ABOUTME: Sine tone source for testing without a microphone
// ABOUTME: Generates a fixed-frequency tone at 50% amplitude
package audio

import (
	"math"
	"sync"
	"time"
)

// ToneSource generates a continuous sine tone.
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
}

// NewToneSource creates a tone source at the given frequency in Hz.
func NewToneSource(frequency float64) *ToneSource {
	if frequency <= 0 {
		frequency = 440.0 // A4 note
	}
	return &ToneSource{frequency: frequency}
}

func (s *ToneSource) CaptureFrame(timeout time.Duration) (Frame, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	frame := make(Frame, FrameSize)
	for i := range frame {
		t := float64(s.sampleIndex+uint64(i)) / float64(SampleRate)
		frame[i] = math.Sin(2*math.Pi*s.frequency*t) * 0.5
	}
	s.sampleIndex += FrameSize

	return frame, nil
}

func (s *ToneSource) Close() error { return nil }
