package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/logger"
)

// Server runs the admin API listener plus one data-plane listener per
// configured gateway port, with shared shutdown semantics.
type Server struct {
	cfg      config.Config
	admin    *gin.Engine
	gateways map[int]*gin.Engine
}

// New bundles the engines; gateways is keyed by listener port.
func New(cfg config.Config, admin *gin.Engine, gateways map[int]*gin.Engine) *Server {
	return &Server{cfg: cfg, admin: admin, gateways: gateways}
}

// Run starts all listeners and blocks until the context is cancelled or
// a listener fails.
func (s *Server) Run(ctx context.Context) error {
	servers := make([]*http.Server, 0, len(s.gateways)+1)
	errCh := make(chan error, len(s.gateways)+1)

	start := func(addr string, handler http.Handler) {
		srv := &http.Server{Addr: addr, Handler: handler}
		servers = append(servers, srv)
		go func() {
			logger.WithFields(map[string]interface{}{"addr": addr}).Info("listener started")
			errCh <- srv.ListenAndServe()
		}()
	}

	start(fmt.Sprintf(":%s", s.cfg.AdminPort), s.admin)
	for port, engine := range s.gateways {
		start(fmt.Sprintf(":%d", port), engine)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var firstErr error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("graceful shutdown: %w", err)
			}
		}
		return firstErr
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
