// Package wsapi implements the Push Channel: a gorilla/websocket upgrade
// handler with a read-pump/write-pump split per connection, backed by the
// Subscription Registry.
package wsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ljtgentle/solana-scan/internal/registry"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// ShutdownTimeout bounds graceful HTTP server drain.
const ShutdownTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type clientFrame struct {
	Action  string `json:"action"`
	Address string `json:"address"`
}

type welcomeFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Message      string `json:"message"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Server is the gorilla/websocket-backed Push Channel.
type Server struct {
	registry *registry.Registry
	log      *logger.Logger
	port     int
	server   *http.Server
}

// New builds a Server bound to port, wired against the given registry.
func New(reg *registry.Registry, port int, log *logger.Logger) *Server {
	return &Server{registry: reg, log: log, port: port}
}

// Start blocks serving the push channel until Shutdown is called.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)

	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	s.server = &http.Server{Addr: addr, Handler: mux}

	s.log.Info("starting push channel", "address", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Fatal("push channel failed to start", "error", err)
	}
}

// Shutdown stops accepting new connections and waits, up to
// ShutdownTimeout, for in-flight HTTP requests. Upgraded websocket
// connections are hijacked, so it neither closes nor waits for them.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down push channel")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("push channel shutdown error: %w", err)
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	send := s.registry.AddConnection(connID)
	s.log.Info("websocket connection established", "connection_id", connID)

	// gorilla/websocket permits only one concurrent writer per connection.
	// writePump and readPump both write (the latter only on malformed or
	// unrecognized client frames), so every write on this connection goes
	// through writeMu.
	var writeMu sync.Mutex

	welcome := welcomeFrame{
		Type:         "welcome",
		ConnectionID: connID,
		Message:      "Connected to Solana scanner WebSocket",
	}
	writeMu.Lock()
	err = conn.WriteJSON(welcome)
	writeMu.Unlock()
	if err != nil {
		s.log.Error("failed to send welcome message", "connection_id", connID, "error", err)
		s.registry.RemoveConnection(connID)
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	go s.writePump(conn, send, done, &writeMu)
	s.readPump(conn, connID, &writeMu)

	close(done)
	s.registry.RemoveConnection(connID)
	_ = conn.Close()
	s.log.Info("websocket connection cleaned up", "connection_id", connID)
}

// readPump blocks reading client frames until the connection closes or
// errors, dispatching subscribe/unsubscribe actions against the registry.
// Any error frame it writes back is serialized against writeMu, the same
// lock writePump holds for its socket writes.
func (s *Server) readPump(conn *websocket.Conn, connID string, writeMu *sync.Mutex) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Debug("malformed websocket frame", "connection_id", connID, "error", err)
			s.writeError(conn, writeMu, connID)
			continue
		}

		switch frame.Action {
		case "subscribe":
			if err := s.registry.Subscribe(connID, frame.Address); err != nil {
				s.log.Debug("subscribe failed", "connection_id", connID, "address", frame.Address, "error", err)
			}
		case "unsubscribe":
			if err := s.registry.Unsubscribe(connID, frame.Address); err != nil {
				s.log.Debug("unsubscribe failed", "connection_id", connID, "address", frame.Address, "error", err)
			}
		default:
			s.writeError(conn, writeMu, connID)
		}
	}
}

func (s *Server) writeError(conn *websocket.Conn, writeMu *sync.Mutex, connID string) {
	writeMu.Lock()
	err := conn.WriteJSON(errorFrame{Type: "error", Message: "Invalid message format"})
	writeMu.Unlock()
	if err != nil {
		s.log.Debug("failed to write error frame", "connection_id", connID, "error", err)
	}
}

// writePump drains the registry-assigned send channel onto the socket
// until the connection closes, serializing writes against writeMu.
func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}, writeMu *sync.Mutex) {
	for {
		select {
		case payload, ok := <-send:
			if !ok {
				return
			}
			writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, payload)
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
