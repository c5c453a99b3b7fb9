// ABOUTME: MP3 file audio source
// ABOUTME: Decodes MP3 to PCM frames via go-mp3, looping at EOF
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Source streams analysis frames from an MP3 file. go-mp3 always emits
// 16-bit stereo; the two channels are downmixed by averaging. The stream
// loops when the file ends.
type MP3Source struct {
	file *os.File
	dec  *mp3.Decoder
	buf  []byte
}

// NewMP3Source opens an MP3 file as an audio source.
func NewMP3Source(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	return &MP3Source{
		file: f,
		dec:  dec,
		buf:  make([]byte, FrameSize*4), // 2 channels x 2 bytes per sample
	}, nil
}

func (s *MP3Source) CaptureFrame(timeout time.Duration) (Frame, error) {
	read := 0
	for read < len(s.buf) {
		n, err := s.dec.Read(s.buf[read:])
		read += n
		if err == io.EOF {
			if _, err := s.dec.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("mp3 rewind: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mp3 decode: %w", err)
		}
	}

	frame := make(Frame, FrameSize)
	for i := 0; i < FrameSize; i++ {
		left := int16(binary.LittleEndian.Uint16(s.buf[i*4:]))
		right := int16(binary.LittleEndian.Uint16(s.buf[i*4+2:]))
		frame[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
	}

	return frame, nil
}

func (s *MP3Source) Close() error { return s.file.Close() }
