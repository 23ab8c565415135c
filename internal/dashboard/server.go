// Package dashboard exposes the published candidate set over HTTP for
// operators and scrapers. It reads the snapshot store only; every response
// is built from an independent copy of the current set.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "fundingflow/config"
	"fundingflow/internal/store"
	"fundingflow/logger"
	"fundingflow/processor"
)

// Server hosts the read-only HTTP surface over the snapshot store.
type Server struct {
	cfg        appconfig.DashboardConfig
	store      *store.SnapshotStore
	log        *logger.Log
	httpServer *http.Server
	started    time.Time
}

// NewServer constructs the dashboard server when the feature is enabled.
// When disabled the returned server is nil and safe to Run.
func NewServer(cfg appconfig.DashboardConfig, snapshots *store.SnapshotStore, log *logger.Log) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = 100
	}

	return &Server{
		cfg:     cfg,
		store:   snapshots,
		log:     log,
		started: time.Now(),
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server exits with an error.
func (s *Server) Run(ctx context.Context, appName string) error {
	if s == nil {
		return nil
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.buildRouter(appName),
	}

	s.log.WithComponent("dashboard").WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting dashboard server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter(appName string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"app":        appName,
			"cycle_id":   s.store.CycleID(),
			"candidates": s.store.Len(),
			"uptime":     time.Since(s.started).Round(time.Second).String(),
		})
	})

	router.GET("/api/candidates", func(c *gin.Context) {
		n := s.topN(c.Query("n"))
		c.JSON(http.StatusOK, gin.H{
			"cycle_id":   s.store.CycleID(),
			"candidates": s.store.Top(n),
		})
	})

	// Plain-text view of the ranking, same format the bot replies with.
	router.GET("/", func(c *gin.Context) {
		n := s.topN(c.Query("n"))
		c.String(http.StatusOK, processor.RenderCandidates(s.store.Top(n)))
	})

	return router
}

// topN parses the requested candidate count, falling back to the configured
// cap on a missing or unusable value.
func (s *Server) topN(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 || n > s.cfg.TopLimit {
		return s.cfg.TopLimit
	}
	return n
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.HasPrefix(addr, ":") {
		return "0.0.0.0" + addr
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	// Bare host, default port.
	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
