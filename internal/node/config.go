// ABOUTME: Node role and configuration
// ABOUTME: One explicit config struct, no ambient settings
package node

import (
	"time"

	"github.com/glowsync/glowsync-go/internal/colormap"
	"github.com/glowsync/glowsync-go/internal/protocol"
)

// Role determines a node's behavior: masters capture and broadcast, slaves
// receive and replicate. The role is fixed for the life of a controller.
type Role int

const (
	RoleMaster Role = iota
	RoleSlave
)

func (r Role) String() string {
	if r == RoleMaster {
		return "master"
	}
	return "slave"
}

// Config collects every tunable for a node. Components receive it
// explicitly; nothing reads configuration from package state.
type Config struct {
	Role             Role
	UpdateRateHz     float64       // master analysis/broadcast rate
	Sensitivity      float64       // level scaling before clamping
	TargetAddr       [2]byte       // mesh target address
	ColorMode        colormap.Mode // mapping policy
	SyncPort         int           // UDP port for sync packets
	BroadcastEnabled bool          // master: send sync packets
	CaptureTimeout   time.Duration // bound on one blocking frame read
}

// withDefaults fills unset fields with the original firmware's defaults.
func (c Config) withDefaults() Config {
	if c.UpdateRateHz <= 0 {
		c.UpdateRateHz = 10.0
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = 1.0
	}
	if c.TargetAddr == ([2]byte{}) {
		c.TargetAddr = [2]byte{0x2A, 0xA8}
	}
	if c.SyncPort == 0 {
		c.SyncPort = protocol.SyncPort
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 100 * time.Millisecond
	}
	return c
}
