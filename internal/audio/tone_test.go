// ABOUTME: Tests for the tone source
// ABOUTME: Frame sizing, amplitude bounds and phase continuity
package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneSourceFrameShape(t *testing.T) {
	src := NewToneSource(440.0)
	defer src.Close()

	frame, err := src.CaptureFrame(time.Second)
	require.NoError(t, err)
	require.Len(t, frame, FrameSize)

	nonZero := false
	for _, s := range frame {
		assert.GreaterOrEqual(t, s, -1.0)
		assert.LessOrEqual(t, s, 1.0)
		if s != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "a tone is not silence")
}

func TestToneSourceAdvancesPhase(t *testing.T) {
	src := NewToneSource(440.0)
	defer src.Close()

	first, err := src.CaptureFrame(time.Second)
	require.NoError(t, err)
	second, err := src.CaptureFrame(time.Second)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "consecutive frames continue the waveform")
}

func TestToneSourceDefaultFrequency(t *testing.T) {
	src := NewToneSource(0)
	assert.Equal(t, 440.0, src.frequency)
}
