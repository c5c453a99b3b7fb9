// ABOUTME: Mesh transport implementations
// ABOUTME: UDP bridge forwarding and a dry-run hex-logging transport
package mesh

import (
	"encoding/hex"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Bridge forwards mesh payloads over UDP to a BRMesh bridge daemon, which
// owns the radio side (encryption, addressing, advertisement scheduling).
// Sends are fire-and-forget datagrams.
type Bridge struct {
	conn net.PacketConn
	addr net.Addr
	log  *logrus.Entry
}

// NewBridge dials a bridge host, e.g. "192.168.1.40:4211".
func NewBridge(addr string) (*Bridge, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("mesh bridge: resolve %s: %w", addr, err)
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("mesh bridge: %w", err)
	}

	return &Bridge{
		conn: conn,
		addr: udpAddr,
		log:  logrus.WithField("component", "mesh"),
	}, nil
}

func (b *Bridge) Send(target string, payload []byte) error {
	if _, err := b.conn.WriteTo(payload, b.addr); err != nil {
		return fmt.Errorf("mesh bridge: send to %s: %w", target, err)
	}
	b.log.WithFields(logrus.Fields{
		"target": target,
		"bytes":  len(payload),
	}).Debug("forwarded mesh command")
	return nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

// LogTransport is a dry-run transport that hex-dumps every payload instead
// of sending it anywhere. Useful without bridge hardware.
type LogTransport struct {
	log *logrus.Entry
}

func NewLogTransport() *LogTransport {
	return &LogTransport{log: logrus.WithField("component", "mesh")}
}

func (t *LogTransport) Send(target string, payload []byte) error {
	t.log.WithFields(logrus.Fields{
		"target":  target,
		"payload": hex.EncodeToString(payload),
	}).Info("mesh command (dry run)")
	return nil
}
