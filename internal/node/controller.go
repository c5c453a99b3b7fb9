// ABOUTME: Per-role control loop driving analysis, sync and dispatch
// ABOUTME: Master captures and broadcasts; slave receives and replicates
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glowsync/glowsync-go/internal/audio"
	"github.com/glowsync/glowsync-go/internal/colormap"
	"github.com/glowsync/glowsync-go/internal/dispatch"
	"github.com/glowsync/glowsync-go/internal/dsp"
	"github.com/glowsync/glowsync-go/internal/mesh"
	"github.com/glowsync/glowsync-go/internal/protocol"
	"github.com/glowsync/glowsync-go/internal/telemetry"
)

const (
	// tickInterval drives the control loop. Every other rate derives from
	// tick timestamps, not from this granularity.
	tickInterval = 10 * time.Millisecond

	// slaveDispatchInterval caps slave-side color dispatch at ~20Hz no
	// matter how fast packets arrive.
	slaveDispatchInterval = 50 * time.Millisecond

	// staleAfter is how long the slave tolerates silence before warning.
	staleAfter = 5 * time.Second

	// recentWindow is the receive recency that still counts as linked.
	recentWindow = 2 * time.Second

	// pollTimeout bounds one non-blocking receive poll.
	pollTimeout = time.Millisecond
)

var (
	// ErrAlreadyRunning is returned by Start on a running controller.
	ErrAlreadyRunning = errors.New("node: controller already running")

	// ErrNoAudioSource is returned when a master is built without a source.
	ErrNoAudioSource = errors.New("node: master role requires an audio source")
)

// Options carries the controller's collaborators. Conn may be nil, in which
// case Start opens a UDP socket on the configured sync port.
type Options struct {
	Source    audio.Source       // frame producer, master only
	Mesh      dispatch.Transport // actuator transport, may be nil
	Conn      net.PacketConn     // sync socket override, used by tests
	Collector *telemetry.Collector
}

// Controller owns all mutable node state and drives every component from a
// single loop. State is only ever touched from that loop (or before Start),
// so the components underneath need no locking.
type Controller struct {
	cfg       Config
	source    audio.Source
	disp      *dispatch.Dispatcher
	collector *telemetry.Collector
	targetID  string

	conn      net.PacketConn
	ownConn   bool
	broadcast net.Addr
	recvBuf   []byte

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	levels          dsp.Levels
	packetsSent     uint64
	packetsReceived uint64
	lastPacketTime  time.Time
	lastUpdate      time.Time
	lastDispatch    time.Time
	staleWarned     bool

	log *logrus.Entry
}

// New builds a controller for the given role.
func New(cfg Config, opts Options) (*Controller, error) {
	cfg = cfg.withDefaults()

	if cfg.Role == RoleMaster && opts.Source == nil {
		return nil, ErrNoAudioSource
	}

	collector := opts.Collector
	if collector == nil {
		collector = telemetry.NewCollector(cfg.Role.String())
	}

	return &Controller{
		cfg:       cfg,
		source:    opts.Source,
		disp:      dispatch.New(opts.Mesh),
		collector: collector,
		targetID:  fmt.Sprintf("%02x%02x", cfg.TargetAddr[0], cfg.TargetAddr[1]),
		conn:      opts.Conn,
		recvBuf:   make([]byte, 1500),
		log: logrus.WithFields(logrus.Fields{
			"component": "node",
			"role":      cfg.Role.String(),
		}),
	}, nil
}

// Start moves the controller from Stopped to Running and launches the
// control loop. Starting a running controller is an error; the role never
// changes after construction.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	if c.conn == nil {
		listen := ":0"
		if c.cfg.Role == RoleSlave {
			listen = fmt.Sprintf(":%d", c.cfg.SyncPort)
		}
		conn, err := net.ListenPacket("udp4", listen)
		if err != nil {
			return fmt.Errorf("node: open sync socket: %w", err)
		}
		c.conn = conn
		c.ownConn = true
	}

	c.broadcast = &net.UDPAddr{IP: broadcastIP(), Port: c.cfg.SyncPort}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})
	c.running = true

	go c.run()

	c.log.WithFields(logrus.Fields{
		"rate":      c.cfg.UpdateRateHz,
		"mode":      c.cfg.ColorMode.String(),
		"sync_port": c.cfg.SyncPort,
	}).Info("controller started")

	return nil
}

// Stop halts the loop. It prevents the next tick's work; an in-flight
// capture still finishes within its bounded timeout.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	done := c.done
	c.mu.Unlock()

	<-done

	if c.ownConn {
		c.conn.Close()
	}

	c.log.Info("controller stopped")
}

func (c *Controller) run() {
	defer close(c.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.tick(time.Now())
		}
	}
}

// tick runs one control-loop iteration. Exposed to tests via fabricated
// timestamps; while stopped it is a no-op.
func (c *Controller) tick(now time.Time) {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return
	}

	switch c.cfg.Role {
	case RoleMaster:
		c.masterTick(now)
	case RoleSlave:
		c.slaveTick(now)
	}

	c.disp.Tick(now)
}

// masterTick is rate-gated: capture, analyze, broadcast, dispatch.
func (c *Controller) masterTick(now time.Time) {
	interval := time.Duration(float64(time.Second) / c.cfg.UpdateRateHz)
	if now.Sub(c.lastUpdate) < interval {
		return
	}
	c.lastUpdate = now

	frame, err := c.source.CaptureFrame(c.cfg.CaptureTimeout)
	if err != nil {
		c.log.WithError(err).Warn("frame capture failed")
		return
	}

	c.levels = dsp.Analyze(frame, c.cfg.Sensitivity)

	if c.cfg.BroadcastEnabled {
		pkt := protocol.Encode(c.levels)
		if _, err := c.conn.WriteTo(pkt, c.broadcast); err != nil {
			c.log.WithError(err).Warn("sync broadcast failed")
		} else {
			c.packetsSent++
		}
	}

	c.dispatchColor(now)
}

// slaveTick drains inbound datagrams, then dispatches at the capped rate.
// Receipt is handled here on the tick, never from a callback, so the loop
// stays the only writer of node state.
func (c *Controller) slaveTick(now time.Time) {
	received := false

	for {
		_ = c.conn.SetReadDeadline(now.Add(pollTimeout))
		n, _, err := c.conn.ReadFrom(c.recvBuf)
		if err != nil {
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				c.log.WithError(err).Debug("sync receive failed")
			}
			break
		}
		if n < protocol.PacketSize {
			continue
		}

		lv, err := protocol.Decode(c.recvBuf[:n])
		if err != nil {
			// Bad packet: log and drop, current levels stay untouched.
			c.log.WithError(err).Warn("discarding sync packet")
			continue
		}

		c.levels = lv
		c.packetsReceived++
		c.lastPacketTime = now
		c.staleWarned = false
		received = true
	}

	if received && now.Sub(c.lastDispatch) >= slaveDispatchInterval {
		c.lastDispatch = now
		c.dispatchColor(now)
	}

	// Stale stream: warn once per episode, keep the last levels.
	if c.packetsReceived > 0 && !c.staleWarned && now.Sub(c.lastPacketTime) > staleAfter {
		c.log.WithField("silent_for", now.Sub(c.lastPacketTime)).Warn("no sync packets received for 5 seconds")
		c.staleWarned = true
	}
}

// dispatchColor maps current levels to a color decision and hands it to the
// dispatcher, then refreshes telemetry.
func (c *Controller) dispatchColor(now time.Time) {
	rgb := colormap.Map(c.levels, c.cfg.ColorMode)
	payload := mesh.ColorCommand(c.cfg.TargetAddr, rgb)
	c.disp.Submit(c.targetID, payload, now)

	c.collector.PublishLevels(c.levels)
	c.collector.PublishCounters(c.packetsSent, c.packetsReceived, c.status(now))
}

// status renders the link-status line shown in telemetry.
func (c *Controller) status(now time.Time) string {
	if c.cfg.Role == RoleMaster {
		return "Broadcasting"
	}

	since := now.Sub(c.lastPacketTime)
	if c.packetsReceived == 0 || since >= recentWindow {
		return "No signal"
	}

	ms := since.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("Receiving (%d fps)", 1000/ms)
}

// Levels returns the most recent levels. Meaningful between ticks only for
// tests and status displays.
func (c *Controller) Levels() dsp.Levels { return c.levels }

// PacketsSent returns the master broadcast counter.
func (c *Controller) PacketsSent() uint64 { return c.packetsSent }

// PacketsReceived returns the slave receive counter.
func (c *Controller) PacketsReceived() uint64 { return c.packetsReceived }

// Collector exposes the node's telemetry collector.
func (c *Controller) Collector() *telemetry.Collector { return c.collector }

// broadcastIP computes the directed broadcast address of the first usable
// IPv4 interface, falling back to the limited broadcast address.
func broadcastIP() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPv4bcast
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}

			ip := ipnet.IP.To4()
			mask := ipnet.Mask
			if len(mask) == net.IPv6len {
				mask = mask[12:]
			}

			bcast := make(net.IP, net.IPv4len)
			for i := 0; i < net.IPv4len; i++ {
				bcast[i] = ip[i] | ^mask[i]
			}
			return bcast
		}
	}

	return net.IPv4bcast
}
