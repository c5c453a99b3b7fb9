// ABOUTME: Node telemetry collection
// ABOUTME: Snapshot of band levels, packet counters and link status
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowsync/glowsync-go/internal/dsp"
)

// Snapshot is one point-in-time view of a node, as pushed to UIs. Band
// values are level*100 like the original sensor scale.
type Snapshot struct {
	NodeID          string  `json:"node_id"`
	Role            string  `json:"role"`
	Bass            float64 `json:"bass"`
	Mid             float64 `json:"mid"`
	Treble          float64 `json:"treble"`
	PacketsSent     uint64  `json:"packets_sent"`
	PacketsReceived uint64  `json:"packets_received"`
	LinkStatus      string  `json:"link_status"`
	Timestamp       int64   `json:"timestamp"`
}

// Collector accumulates telemetry for one node. Writers are the control
// loop; readers are the telemetry server and tests.
type Collector struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewCollector creates a collector with a fresh node identity.
func NewCollector(role string) *Collector {
	return &Collector{
		snap: Snapshot{
			NodeID: uuid.NewString(),
			Role:   role,
		},
	}
}

// PublishLevels records band levels from one dispatched decision.
func (c *Collector) PublishLevels(lv dsp.Levels) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Bass = lv.Bass * 100.0
	c.snap.Mid = lv.Mid * 100.0
	c.snap.Treble = lv.Treble * 100.0
	c.snap.Timestamp = time.Now().UnixMilli()
}

// PublishCounters records packet counters and the link status line.
func (c *Collector) PublishCounters(sent, received uint64, linkStatus string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.PacketsSent = sent
	c.snap.PacketsReceived = received
	c.snap.LinkStatus = linkStatus
}

// Snapshot returns a copy of the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
