// ABOUTME: mDNS discovery of glowsync master nodes
// ABOUTME: Masters advertise the sync service; slaves and UIs browse for it
package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

const serviceType = "_glowsync._udp"

// Config holds discovery configuration.
type Config struct {
	NodeName string
	SyncPort int
}

// Manager handles mDNS operations for one node.
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	masters chan *MasterInfo
	log     *logrus.Entry
}

// MasterInfo describes a discovered master node.
type MasterInfo struct {
	Name string
	Host string
	Port int
}

// NewManager creates a discovery manager.
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		masters: make(chan *MasterInfo, 10),
		log:     logrus.WithField("component", "discovery"),
	}
}

// Advertise announces this node as a master via mDNS.
func (m *Manager) Advertise() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("discovery: local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.NodeName,
		serviceType,
		"",
		"",
		m.config.SyncPort,
		ips,
		[]string{"role=master"},
	)
	if err != nil {
		return fmt.Errorf("discovery: create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("discovery: create mdns server: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"name": m.config.NodeName,
		"port": m.config.SyncPort,
	}).Info("advertising master via mDNS")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for master nodes in the background.
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}

				master := &MasterInfo{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}

				m.log.WithFields(logrus.Fields{
					"name": master.Name,
					"host": master.Host,
					"port": master.Port,
				}).Info("discovered master")

				select {
				case m.masters <- master:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: serviceType,
			Domain:  "local",
			Timeout: 3,
			Entries: entries,
		}

		mdns.Query(params)
		close(entries)
	}
}

// Masters returns the channel of discovered masters.
func (m *Manager) Masters() <-chan *MasterInfo {
	return m.masters
}

// Stop stops advertisement and browsing.
func (m *Manager) Stop() {
	m.cancel()
}

// localIPs returns non-loopback IPv4 addresses.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
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
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
