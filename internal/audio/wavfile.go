// ABOUTME: WAV file audio source
// ABOUTME: Streams fixed-size frames from a PCM WAV file, looping at EOF
package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource streams analysis frames from a WAV file. Multi-channel files are
// downmixed by averaging. The file loops when it runs out of samples.
type WAVSource struct {
	file *os.File
	dec  *wav.Decoder
	buf  *goaudio.IntBuffer
}

// NewWAVSource opens a PCM WAV file as an audio source.
func NewWAVSource(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("open wav: %s is not a valid WAV file", path)
	}

	return &WAVSource{file: f, dec: dec}, nil
}

func (s *WAVSource) CaptureFrame(timeout time.Duration) (Frame, error) {
	channels := int(s.dec.NumChans)
	if channels < 1 {
		channels = 1
	}

	want := FrameSize * channels
	if s.buf == nil || len(s.buf.Data) != want {
		s.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  int(s.dec.SampleRate),
			},
			Data: make([]int, want),
		}
	}

	read := 0
	rewinds := 0
	for read < want {
		n, err := s.dec.PCMBuffer(&goaudio.IntBuffer{
			Format: s.buf.Format,
			Data:   s.buf.Data[read:],
		})
		if n > 0 {
			read += n
			continue
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("wav decode: %w", err)
		}
		// Out of samples: rewind and keep filling.
		rewinds++
		if rewinds > 1 {
			return nil, fmt.Errorf("wav decode: no PCM data in file")
		}
		if err := s.rewind(); err != nil {
			return nil, err
		}
	}

	// Source bit depth determines full scale.
	bitDepth := int(s.dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frame := make(Frame, FrameSize)
	for i := 0; i < FrameSize; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(s.buf.Data[i*channels+ch])
		}
		frame[i] = clampSample(sum / float64(channels) / scale)
	}

	return frame, nil
}

func (s *WAVSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav rewind: %w", err)
	}
	s.dec = wav.NewDecoder(s.file)
	if !s.dec.IsValidFile() {
		return fmt.Errorf("wav rewind: file no longer valid")
	}
	return nil
}

func (s *WAVSource) Close() error { return s.file.Close() }

func clampSample(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
