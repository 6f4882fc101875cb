// Package api serves the sample-filtering HTTP surface: dataset discovery,
// filter-registry introspection, and chain execution.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tidycorpus/runtime/internal/chain"
	"github.com/tidycorpus/runtime/internal/datasets"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/internal/registry"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

// ErrServerClosed is returned by Start when the server stopped normally.
var ErrServerClosed = errors.New("api server closed")

// Server is the HTTP front end over the chain executor. Write timeouts are
// generous: a cold chain execution spawns real processes per step.
type Server struct {
	listenAddress string
	executor      *chain.Executor
	store         *datasets.Store
	registry      *registry.Registry

	server   *http.Server
	listener net.Listener

	mu         sync.RWMutex
	running    bool
	actualAddr string

	shutdownOnce sync.Once
}

func NewServer(listenAddress string, executor *chain.Executor, store *datasets.Store, reg *registry.Registry) *Server {
	return &Server{
		listenAddress: listenAddress,
		executor:      executor,
		store:         store,
		registry:      reg,
	}
}

// Handler returns the route table. Exposed separately from Start so tests
// can drive it through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /datasets/", s.handleListDatasets)
	mux.HandleFunc("GET /datasets/{name}/sample", s.handleGetSample)
	mux.HandleFunc("POST /datasets/{name}/sample", s.handlePostSample)
	mux.HandleFunc("GET /filters/", s.handleListFilters)
	return mux
}

// Start binds the listen address and serves until the context is canceled,
// an OS signal arrives, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("api server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:         s.listenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logger.Error("failed to start api server",
			"listenAddress", s.listenAddress,
			"error", err.Error(),
		)
		return fmt.Errorf("starting api listener: %w", err)
	}
	s.listener = listener

	s.mu.Lock()
	s.actualAddr = listener.Addr().String()
	s.mu.Unlock()

	logger.Info("api server started",
		"address", s.actualAddr,
		"datasets_root", s.store.Root(),
		"filters", s.registry.Len(),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	select {
	case <-ctx.Done():
		logger.Info("api server shutdown requested")
		return s.shutdown()
	case sig := <-signalChan:
		logger.Info("api server shutdown requested by signal", "signal", sig.String())
		return s.shutdown()
	case err := <-serverErr:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return s.shutdown()
	}
}

// Stop gracefully stops the server, waiting for in-flight requests.
func (s *Server) Stop() error {
	return s.shutdown()
}

func (s *Server) shutdown() error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		s.running = false
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		shutdownErr = s.server.Shutdown(ctx)
		if shutdownErr != nil {
			logger.Error("api server shutdown error", "error", shutdownErr.Error())
			shutdownErr = fmt.Errorf("shutting down api server: %w", shutdownErr)
			return
		}
		logger.Info("api server stopped")
	})

	return shutdownErr
}

// Address returns the bound address, which differs from the configured one
// when listening on port 0. Empty while not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actualAddr
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
