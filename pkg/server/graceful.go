// Package server wraps the query service's HTTP server with graceful
// shutdown on SIGINT and SIGTERM.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/routelab/rcp/pkg/logging"
)

const defaultShutdownTimeout = 30 * time.Second

// Options tunes the HTTP server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       logging.Logger
}

// GracefulServer wraps an HTTP server with graceful shutdown
type GracefulServer struct {
	server       *http.Server
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	logger       logging.Logger
}

// NewGracefulServer creates a graceful HTTP server for the handler.
func NewGracefulServer(addr string, handler http.Handler, opts Options) *GracefulServer {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    opts.ReadTimeout,
			WriteTimeout:   opts.WriteTimeout,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		shutdownCh: make(chan struct{}),
		logger:     logger.With(logging.Component("server")),
	}
}

// Start serves until shut down. SIGINT and SIGTERM trigger a graceful
// shutdown; the call returns once the server has stopped.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("http server listening", logging.String("addr", gs.server.Addr))
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains connections and stops the server.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("shutting down http server",
			logging.Duration("timeout", timeout))
		err = gs.server.Shutdown(ctx)
	})
	return err
}

func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		gs.logger.Info("received signal, shutting down",
			logging.String("signal", sig.String()))
		if err := gs.Shutdown(defaultShutdownTimeout); err != nil {
			gs.logger.Error("shutdown failed", logging.Error(err))
		}
	case <-gs.shutdownCh:
	}
}

// IsShuttingDown reports whether shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}
