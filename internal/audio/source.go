// ABOUTME: Audio frame and capture source definitions
// ABOUTME: Sources deliver fixed-size normalized frames to the analysis loop
package audio

import (
	"errors"
	"time"
)

const (
	// FrameSize is the number of samples per analysis frame.
	FrameSize = 256

	// SampleRate is the capture rate in Hz. Bin width is SampleRate/FrameSize.
	SampleRate = 22050
)

// ErrCaptureTimeout is returned when a source cannot produce a frame in time.
var ErrCaptureTimeout = errors.New("audio: capture timed out")

// Frame is one analysis window of samples, normalized to [-1, 1].
type Frame []float64

// Source produces audio frames for the master node.
//
// CaptureFrame blocks until a full frame is available or the timeout elapses.
// Returned frames always have exactly FrameSize samples.
type Source interface {
	CaptureFrame(timeout time.Duration) (Frame, error)
	Close() error
}
