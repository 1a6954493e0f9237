// Package httpapi implements the Control Plane: a synchronous query and
// mutation surface over the Scanner Engine's public methods.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// ShutdownTimeout bounds graceful HTTP server drain.
const ShutdownTimeout = 10 * time.Second

// Scanner is the subset of the Scanner Engine the control plane calls.
type Scanner interface {
	AddWatched(address, label string) error
	RemoveWatched(address string) error
	WatchedAddresses() []string
	GetTransactions(q models.Query) ([]models.Transaction, error)
}

// Server is the gin-backed Control Plane.
type Server struct {
	log     *logger.Logger
	router  *gin.Engine
	port    int
	server  *http.Server
	scanner Scanner
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// New builds a Server bound to port, wired against scanner.
func New(scanner Scanner, port int, log *logger.Logger) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())

	s := &Server{router: router, port: port, scanner: scanner, log: log}
	s.routes()
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() {
	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	s.server = &http.Server{Addr: addr, Handler: s.router}

	s.log.Info("starting control plane", "address", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Fatal("control plane failed to start", "error", err)
	}
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down control plane")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("control plane shutdown error: %w", err)
	}
	return nil
}
