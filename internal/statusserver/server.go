// Package statusserver is an optional, flag-gated live status endpoint
// for a run: --status-addr host:port serves a single JSON route
// reporting how many hosts are outstanding, done, and total. It exists
// for operators who redirect stdout to a file and still want a
// dashboard; the core engine has no dependency on it running.
package statusserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Progress is whatever can report a run's current counters. *engine.Engine
// satisfies this without the statusserver package importing engine back.
type Progress interface {
	Progress() (total, outstanding, done int)
}

// Server wraps an http.Server serving the status route.
type Server struct {
	http *http.Server
	log  *zap.Logger
}

// New builds a Server bound to addr. It does not start listening until
// Run is called.
func New(addr string, mode string, progress Progress, log *zap.Logger) *Server {
	log = log.Named("statusserver")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	r.Use(zapLogger(log))

	r.GET("/status", func(c *gin.Context) {
		total, outstanding, done := progress.Progress()
		c.JSON(http.StatusOK, gin.H{
			"mode":        mode,
			"total":       total,
			"outstanding": outstanding,
			"done":        done,
		})
	})

	return &Server{
		http: &http.Server{
			Addr:           addr,
			Handler:        r,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 1 << 15,
			ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
		},
		log: log,
	}
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called from another goroutine. http.ErrServerClosed is not an error.
func (s *Server) Run() error {
	s.log.Info("status server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func zapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
