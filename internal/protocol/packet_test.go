// ABOUTME: Tests for the sync packet codec
// ABOUTME: Round-trip accuracy, header validation and datagram tolerance
package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowsync/glowsync-go/internal/dsp"
)

func sampleLevels() dsp.Levels {
	lv := dsp.Levels{
		Bass:   0.8,
		Mid:    0.4,
		Treble: 0.2,
		Volume: 0.45,
	}
	for i := range lv.Spectrum {
		lv.Spectrum[i] = float64(i) / float64(len(lv.Spectrum)-1)
	}
	return lv
}

func TestEncodeLayout(t *testing.T) {
	pkt := Encode(sampleLevels())

	require.Len(t, pkt, PacketSize)
	assert.Equal(t, byte('A'), pkt[0])
	assert.Equal(t, byte('S'), pkt[1])
	assert.Equal(t, byte(115), pkt[2]) // round(0.45*255)
	assert.Equal(t, byte(204), pkt[3]) // round(0.8*255)
	assert.Equal(t, byte(102), pkt[4]) // round(0.4*255)
	assert.Equal(t, byte(51), pkt[5])  // round(0.2*255)
	assert.Equal(t, byte(0), pkt[6])   // first spectrum bin
	assert.Equal(t, byte(255), pkt[23])
}

func TestRoundTripWithinQuantizationError(t *testing.T) {
	lv := sampleLevels()

	decoded, err := Decode(Encode(lv))
	require.NoError(t, err)

	const eps = 1.0 / 255.0
	assert.InDelta(t, lv.Bass, decoded.Bass, eps)
	assert.InDelta(t, lv.Mid, decoded.Mid, eps)
	assert.InDelta(t, lv.Treble, decoded.Treble, eps)
	assert.InDelta(t, lv.Volume, decoded.Volume, eps)
	for i := range lv.Spectrum {
		assert.InDelta(t, lv.Spectrum[i], decoded.Spectrum[i], eps, "spectrum[%d]", i)
	}
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	pkt := Encode(sampleLevels())
	pkt[0] = 'X'

	lv, err := Decode(pkt)
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.Equal(t, dsp.Levels{}, lv, "failed decode must not produce levels")
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	pkt := Encode(sampleLevels())

	_, err := Decode(pkt[:23])
	assert.ErrorIs(t, err, ErrShortPacket)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	lv := sampleLevels()
	pkt := append(Encode(lv), 0xDE, 0xAD, 0xBE, 0xEF)

	decoded, err := Decode(pkt)
	require.NoError(t, err)
	assert.InDelta(t, lv.Bass, decoded.Bass, 1.0/255.0)
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	lv := dsp.Levels{Bass: 1.7, Mid: -0.3}

	pkt := Encode(lv)
	assert.Equal(t, byte(255), pkt[3])
	assert.Equal(t, byte(0), pkt[4])
}

func TestQuantizeMonotonic(t *testing.T) {
	prev := byte(0)
	for v := 0.0; v <= 1.0; v += 0.01 {
		q := quantize(v)
		assert.GreaterOrEqual(t, q, prev)
		prev = q
	}
}
