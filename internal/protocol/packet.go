// ABOUTME: Audio sync wire protocol
// ABOUTME: Fixed 24-byte level packet with magic header, byte-quantized fields
package protocol

import (
	"errors"
	"math"

	"github.com/glowsync/glowsync-go/internal/dsp"
)

// Wire layout, all fields single bytes after the 2-byte magic:
//
//	[0:2)  magic 'A', 'S'
//	[2]    volume
//	[3]    bass
//	[4]    mid
//	[5]    treble
//	[6:24) 18 spectrum bins
//
// Each byte is round(level*255) of a level in [0, 1].
const (
	// PacketSize is the exact size of a sync packet on the wire. Datagrams
	// may be larger; trailing bytes are ignored.
	PacketSize = 24

	// SyncPort is the UDP port sync packets are broadcast on.
	SyncPort = 11988
)

var (
	magic = [2]byte{'A', 'S'}

	// ErrShortPacket is returned for buffers under PacketSize bytes.
	ErrShortPacket = errors.New("protocol: packet shorter than 24 bytes")

	// ErrInvalidHeader is returned when the magic bytes do not match.
	ErrInvalidHeader = errors.New("protocol: invalid packet header")
)

// Encode serializes levels into a sync packet.
func Encode(lv dsp.Levels) []byte {
	pkt := make([]byte, PacketSize)
	pkt[0] = magic[0]
	pkt[1] = magic[1]
	pkt[2] = quantize(lv.Volume)
	pkt[3] = quantize(lv.Bass)
	pkt[4] = quantize(lv.Mid)
	pkt[5] = quantize(lv.Treble)
	for i, v := range lv.Spectrum {
		pkt[6+i] = quantize(v)
	}
	return pkt
}

// Decode parses a sync packet. The header is validated before any field is
// read; on failure the returned levels are zero and must not be applied.
func Decode(buf []byte) (dsp.Levels, error) {
	var lv dsp.Levels

	if len(buf) < PacketSize {
		return lv, ErrShortPacket
	}
	if buf[0] != magic[0] || buf[1] != magic[1] {
		return lv, ErrInvalidHeader
	}

	lv.Volume = dequantize(buf[2])
	lv.Bass = dequantize(buf[3])
	lv.Mid = dequantize(buf[4])
	lv.Treble = dequantize(buf[5])
	for i := range lv.Spectrum {
		lv.Spectrum[i] = dequantize(buf[6+i])
	}

	return lv, nil
}

// quantize maps a level in [0, 1] to a byte. Deterministic and monotonic;
// out-of-range inputs are clamped rather than wrapped.
func quantize(v float64) byte {
	scaled := math.Round(v * 255.0)
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return byte(scaled)
}

func dequantize(b byte) float64 {
	return float64(b) / 255.0
}
