// Package httpapi serves the ad concept workflow over HTTP for browser front ends.
//
// Each session owns one workflow.Machine. Sessions live in memory and are
// discarded after SessionTTL without requests.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/adreel/internal/events"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
)

// DefaultMaxUploadBytes bounds a single uploaded image.
const DefaultMaxUploadBytes = 20 << 20

// Options configures the API server.
type Options struct {
	Generator genclient.Generator
	Encoder   workflow.Encoder

	// Bus publishes session events and feeds the WebSocket stream. Optional.
	Bus *events.Bus

	SessionTTL     time.Duration
	ExportDir      string
	MaxUploadBytes int64
	Now            func() time.Time

	// WorkDir is where the hooks file is looked up.
	WorkDir string
}

// Server is the HTTP API.
type Server struct {
	opts     Options
	sessions *sessionStore
	engine   *gin.Engine
	log      *logger.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "adreel-exports"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts: opts,
		log:  logger.For("http"),
	}
	s.sessions = newSessionStore(opts.SessionTTL, s.newMachine, s.log)
	s.engine = s.routes()
	return s
}

func (s *Server) newMachine(id string) *workflow.Machine {
	opts := []workflow.Option{workflow.WithSession(id)}
	if s.opts.Bus != nil {
		opts = append(opts, workflow.WithNotifier(s.opts.Bus))
	}
	return workflow.New(s.opts.Generator, s.opts.Encoder, opts...)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = s.opts.MaxUploadBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Count()})
	})

	api := r.Group("/api/v1")
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:id", s.loadSession)
	sess.GET("", s.getState)
	sess.DELETE("", s.deleteSession)
	sess.PUT("/product", s.setProduct)
	sess.DELETE("/product", s.clearProduct)
	sess.POST("/script", s.generateScript)
	sess.POST("/forward", s.forward)
	sess.POST("/back", s.back)
	sess.POST("/navigate", s.navigate)
	sess.PUT("/shots/:index", s.setShotImage)
	sess.DELETE("/shots/:index", s.clearShotImage)
	sess.POST("/prompts", s.generatePrompts)
	sess.POST("/reset", s.reset)
	sess.POST("/export", s.exportConcept)

	r.GET("/ws/sessions/:id", s.loadSession, s.streamEvents)
	return r
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %s", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
