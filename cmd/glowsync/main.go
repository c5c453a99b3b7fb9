// ABOUTME: Entry point for a glowsync node
// ABOUTME: Parses CLI flags, wires components, runs master or slave role
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/glowsync/glowsync-go/internal/audio"
	"github.com/glowsync/glowsync-go/internal/colormap"
	"github.com/glowsync/glowsync-go/internal/discovery"
	"github.com/glowsync/glowsync-go/internal/dispatch"
	"github.com/glowsync/glowsync-go/internal/mesh"
	"github.com/glowsync/glowsync-go/internal/node"
	"github.com/glowsync/glowsync-go/internal/protocol"
	"github.com/glowsync/glowsync-go/internal/telemetry"
	"github.com/glowsync/glowsync-go/internal/version"
)

var (
	role          = flag.String("role", "master", "Node role: master or slave")
	name          = flag.String("name", "", "Node name for mDNS (default: hostname-glowsync)")
	syncPort      = flag.Int("sync-port", protocol.SyncPort, "UDP port for audio sync packets")
	updateRate    = flag.Float64("rate", 10.0, "Master analysis/broadcast rate in Hz")
	sensitivity   = flag.Float64("sensitivity", 1.0, "Level sensitivity multiplier")
	colorMode     = flag.String("mode", "RGB Frequency", "Color mode: 'RGB Frequency', 'Amplitude', 'Rainbow Cycle' or 'Bass Pulse'")
	targetAddr    = flag.String("target", "2aa8", "Mesh target address, four hex digits")
	sourceKind    = flag.String("source", "tone", "Audio source: tone, or wav:<path> / mp3:<path>")
	bridgeAddr    = flag.String("bridge", "", "BRMesh bridge host:port (empty = dry-run hex logging)")
	telemetryPort = flag.Int("telemetry-port", 8927, "Websocket telemetry port (0 disables)")
	noBroadcast   = flag.Bool("no-broadcast", false, "Master: disable UDP sync broadcast")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile       = flag.String("log-file", "", "Also log to this file")
)

func main() {
	flag.Parse()

	setupLogging()

	log := logrus.WithField("component", "main")
	log.WithField("version", version.Version).Infof("starting %s", version.Product)

	cfg, opts, err := buildNode()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctrl, err := node.New(cfg, opts)
	if err != nil {
		log.WithError(err).Fatal("failed to create controller")
	}

	if err := ctrl.Start(); err != nil {
		log.WithError(err).Fatal("failed to start controller")
	}

	var disc *discovery.Manager
	if !*noMDNS {
		disc = discovery.NewManager(discovery.Config{
			NodeName: nodeName(),
			SyncPort: cfg.SyncPort,
		})
		if cfg.Role == node.RoleMaster {
			if err := disc.Advertise(); err != nil {
				log.WithError(err).Warn("mDNS advertisement failed")
			}
		} else {
			// Slaves listen to the broadcast regardless; browsing just
			// surfaces which master is on the network.
			disc.Browse()
			go func() {
				for master := range disc.Masters() {
					log.WithField("master", master.Host).Info("master present on network")
				}
			}()
		}
	}

	var telem *telemetry.Server
	if *telemetryPort > 0 {
		telem = telemetry.NewServer(ctrl.Collector(), *telemetryPort)
		telem.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutdown signal received")

	ctrl.Stop()
	if telem != nil {
		telem.Stop()
	}
	if disc != nil {
		disc.Stop()
	}
	if opts.Source != nil {
		opts.Source.Close()
	}

	log.Info("node stopped")
}

func setupLogging() {
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			logrus.WithError(err).Fatal("error opening log file")
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, f))
	}
}

func buildNode() (node.Config, node.Options, error) {
	var cfg node.Config
	var opts node.Options

	switch *role {
	case "master":
		cfg.Role = node.RoleMaster
	case "slave":
		cfg.Role = node.RoleSlave
	default:
		return cfg, opts, fmt.Errorf("unknown role %q", *role)
	}

	mode, err := colormap.ParseMode(*colorMode)
	if err != nil {
		return cfg, opts, err
	}
	cfg.ColorMode = mode

	target, err := parseTarget(*targetAddr)
	if err != nil {
		return cfg, opts, err
	}
	cfg.TargetAddr = target

	cfg.UpdateRateHz = *updateRate
	cfg.Sensitivity = *sensitivity
	cfg.SyncPort = *syncPort
	cfg.BroadcastEnabled = !*noBroadcast

	if cfg.Role == node.RoleMaster {
		source, err := openSource(*sourceKind)
		if err != nil {
			return cfg, opts, err
		}
		opts.Source = source
	}

	opts.Mesh, err = openTransport(*bridgeAddr)
	if err != nil {
		return cfg, opts, err
	}

	opts.Collector = telemetry.NewCollector(cfg.Role.String())

	return cfg, opts, nil
}

func openSource(kind string) (audio.Source, error) {
	switch {
	case kind == "tone":
		return audio.NewToneSource(440.0), nil
	case strings.HasPrefix(kind, "wav:"):
		return audio.NewWAVSource(strings.TrimPrefix(kind, "wav:"))
	case strings.HasPrefix(kind, "mp3:"):
		return audio.NewMP3Source(strings.TrimPrefix(kind, "mp3:"))
	default:
		return nil, fmt.Errorf("unknown audio source %q", kind)
	}
}

func openTransport(addr string) (dispatch.Transport, error) {
	if addr == "" {
		return mesh.NewLogTransport(), nil
	}
	return mesh.NewBridge(addr)
}

func parseTarget(s string) ([2]byte, error) {
	var target [2]byte
	if len(s) != 4 {
		return target, fmt.Errorf("target address must be four hex digits, got %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x", &target[0], &target[1]); err != nil {
		return target, fmt.Errorf("invalid target address %q: %w", s, err)
	}
	return target, nil
}

func nodeName() string {
	if *name != "" {
		return *name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-glowsync", hostname)
}
