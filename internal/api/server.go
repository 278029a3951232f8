// Package api exposes the simulator over HTTP and uploads finished journals
// to a remote archive.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/apronsim/apronsim/internal/monitor"
	"github.com/apronsim/apronsim/internal/sim"
)

// Source tags commands posted over HTTP.
const Source = "http"

const shutdownTimeout = 5 * time.Second

// Simulation is the part of the engine the API reads and feeds.
type Simulation interface {
	Latest() *sim.Snapshot
	Enqueue(source, line string) uint64
}

// StatusProvider reports simulator health.
type StatusProvider interface {
	Status() monitor.Status
}

// Dependencies holds all dependencies for the HTTP server.
type Dependencies struct {
	Sim     Simulation
	Status  StatusProvider
	Stream  http.Handler // websocket hub, optional
	Logger  *slog.Logger
	Address string
}

// Server is the HTTP API.
type Server struct {
	deps   Dependencies
	router *gin.Engine
}

// CommandRequest is the body of POST /commands.
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// CommandResponse acknowledges a queued command.
type CommandResponse struct {
	Seq uint64 `json:"seq"`
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer builds the router.
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, router: gin.New()}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/healthcheck", s.healthcheck)
	s.router.GET("/status", s.status)
	s.router.GET("/snapshot", s.snapshot)
	s.router.POST("/commands", s.postCommand)
	if deps.Stream != nil {
		s.router.GET("/ws", gin.WrapH(deps.Stream))
	}
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.deps.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http api listening", "address", s.deps.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.deps.Logger.Info("http api stopped")
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.deps.Logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	if s.deps.Status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status monitor not running"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Status.Status())
}

func (s *Server) snapshot(c *gin.Context) {
	snap := s.deps.Sim.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tick has completed yet"})
		return
	}

	if c.Query("format") == "msgpack" {
		data, err := msgpack.Marshal(snap)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/msgpack", data)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"command\": \"...\"}"})
		return
	}
	line := strings.TrimSpace(req.Command)
	if line == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is empty"})
		return
	}
	if strings.ContainsAny(line, "\r\n") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command must be a single line"})
		return
	}

	seq := s.deps.Sim.Enqueue(Source, line)
	c.JSON(http.StatusAccepted, CommandResponse{Seq: seq})
}
