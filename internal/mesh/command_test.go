// ABOUTME: Tests for mesh command construction
// ABOUTME: Verifies the 12-byte direct-color payload layout
package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowsync/glowsync-go/internal/colormap"
)

func TestColorCommandLayout(t *testing.T) {
	payload := ColorCommand([2]byte{0x2A, 0xA8}, colormap.RGB{R: 10, G: 20, B: 30})

	require.Len(t, payload, CommandSize)
	assert.Equal(t, []byte{
		0x93,       // color opcode
		0x2A, 0xA8, // target address
		0x04,       // constant
		0xFF,       // direct-color mode
		10, 20, 30, // RGB
		0x00, 0x00, 0x00, 0x00, // padding
	}, payload)
}

func TestColorCommandIndependentBuffers(t *testing.T) {
	a := ColorCommand([2]byte{1, 2}, colormap.RGB{R: 1})
	b := ColorCommand([2]byte{1, 2}, colormap.RGB{R: 2})

	a[5] = 99
	assert.Equal(t, uint8(2), b[5], "each command gets its own buffer")
}

func TestLogTransportSendNeverFails(t *testing.T) {
	tr := NewLogTransport()

	err := tr.Send("2aa8", ColorCommand([2]byte{0x2A, 0xA8}, colormap.RGB{}))
	assert.NoError(t, err)
}
