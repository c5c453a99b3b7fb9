// ABOUTME: BRMesh actuator command construction
// ABOUTME: Builds the 12-byte direct-color payload understood by mesh lights
package mesh

import (
	"github.com/glowsync/glowsync-go/internal/colormap"
)

// CommandSize is the fixed length of a mesh color command.
const CommandSize = 12

const (
	opcodeColor     = 0x93
	constHeader     = 0x04
	directColorMode = 0xFF
)

// ColorCommand builds a direct-color command for the given mesh target.
//
// Layout: opcode, two target address bytes, constant 0x04, direct-color mode
// 0xFF, R, G, B, then four bytes of padding.
func ColorCommand(target [2]byte, c colormap.RGB) []byte {
	return []byte{
		opcodeColor,
		target[0], target[1],
		constHeader,
		directColorMode,
		c.R, c.G, c.B,
		0x00, 0x00, 0x00, 0x00,
	}
}
