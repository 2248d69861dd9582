// Package gin serves the trigger and inspection API over
// github.com/gin-gonic/gin.
package gin

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/schedule"
	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds how long Close waits for open requests.
const ShutdownTimeout = 5 * time.Second

// Ingester runs source batches on request.
type Ingester interface {
	Sources() []newsgrab.SourceConfig
	Has(name string) bool
	RunAll(ctx context.Context) *ingest.BatchResult
	RunSource(ctx context.Context, name string) (*ingest.RunResult, error)
}

// Monitor exposes live run telemetry.
type Monitor interface {
	State(source string) (newsgrab.RunState, bool)
	States() []newsgrab.RunState
	Running() bool
	Feed(n int) []newsgrab.LogEntry
	LastSummary() *newsgrab.RunSummary
}

// Scheduler controls the periodic batch job.
type Scheduler interface {
	// Schedule registers the batch job, runs it immediately and starts
	// the scheduler if it is not running.
	Schedule(ctx context.Context) error
	Jobs() []schedule.Job
	Remove(id string) error
	Started() bool
}

// Server is the HTTP API. Triggered batches run in the background on the
// server's own context, which Close cancels.
type Server struct {
	ln     net.Listener
	server *http.Server
	engine *gin.Engine

	// Addr is the listen address, e.g. ":8000".
	Addr string

	// APIKey guards mutating routes when set.
	APIKey string

	Ingester  Ingester
	Monitor   Monitor
	Scheduler Scheduler
	Runs      newsgrab.RunService
	Logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a Server with its routes registered.
func NewServer() *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{engine: gin.New()}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.engine.Use(gin.Recovery(), s.logRequests)

	api := s.engine.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	monitoring := api.Group("/monitoring")
	monitoring.GET("/status", s.handleStatus)
	monitoring.GET("/stats", s.handleStats)
	monitoring.GET("/history", s.handleHistory)
	monitoring.POST("/trigger", s.requireKey, s.handleTrigger)

	scheduler := api.Group("/scheduler")
	scheduler.GET("/jobs", s.handleJobs)
	scheduler.POST("/start", s.requireKey, s.handleSchedulerStart)
	scheduler.POST("/stop/:id", s.requireKey, s.handleSchedulerStop)

	return s
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Open starts listening on Addr and serves in the background.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Error("api server stopped", "err", err)
		}
	}()
	return nil
}

// URL returns the base URL of the listening server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Close stops accepting requests, cancels triggered runs and waits for
// them to return.
func (s *Server) Close() error {
	defer s.wg.Wait()
	s.cancel()
	if s.ln == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Wait blocks until every triggered run has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// requireKey accepts the X-API-Key header or a Bearer token.
func (s *Server) requireKey(c *gin.Context) {
	if s.APIKey == "" {
		c.Next()
		return
	}
	key := c.GetHeader("X-API-Key")
	if key == "" {
		key, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.APIKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key."})
		return
	}
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	begin := time.Now()
	c.Next()
	s.logger().Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(begin),
	)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
