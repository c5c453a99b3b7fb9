// ABOUTME: Websocket telemetry server
// ABOUTME: Pushes collector snapshots to every connected UI client
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// pushInterval is how often snapshots go out to connected clients.
const pushInterval = 500 * time.Millisecond

// Server pushes JSON snapshots over websocket to anyone who connects.
type Server struct {
	collector *Collector
	httpSrv   *http.Server
	upgrader  websocket.Upgrader

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry
}

// NewServer creates a telemetry server for the given collector.
func NewServer(collector *Collector, port int) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		collector: collector,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   make(map[*websocket.Conn]struct{}),
		ctx:       ctx,
		cancel:    cancel,
		log:       logrus.WithField("component", "telemetry"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/telemetry", s.handleWS)
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start serves websocket clients and begins the push loop. Non-blocking.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("telemetry server stopped")
		}
	}()
	go s.pushLoop()

	s.log.WithField("addr", s.httpSrv.Addr).Info("telemetry server listening")
}

// Stop disconnects all clients and shuts the server down.
func (s *Server) Stop() {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("telemetry client connected")

	// Send the current snapshot immediately so UIs render without waiting
	// for the next push.
	if err := conn.WriteJSON(s.collector.Snapshot()); err != nil {
		s.drop(conn)
	}
}

func (s *Server) pushLoop() {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			snap := s.collector.Snapshot()

			s.clientsMu.Lock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.Unlock()

			for _, conn := range conns {
				if err := conn.WriteJSON(snap); err != nil {
					s.drop(conn)
				}
			}
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()
}
