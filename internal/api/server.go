package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Server timeouts.
const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

// Deps holds the dependencies required by the stub server.
type Deps struct {
	Config   config.StubConfig
	Logger   *logging.Logger
	Fixtures *Fixtures
	Version  string
}

// Server is the HTTP stand-in for the data service API.
//
// It is created with New() and started with Start().
type Server struct {
	cfg      config.StubConfig
	logger   *logging.Logger
	fixtures *Fixtures
	version  string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new stub server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Fixtures == nil {
		return nil, fmt.Errorf("fixtures are required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		fixtures: deps.Fixtures,
		version:  deps.Version,
	}, nil
}

// Handler returns the HTTP handler with all routes and middleware, for use
// with httptest or an externally managed listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port in use is reported here.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("data service stub listening",
		"address", ln.Addr().String(),
		"keys", len(s.fixtures.Keys),
		"devices", len(s.fixtures.Devices),
	)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("stub server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("data service stub shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down stub server: %w", err)
	}
	return nil
}
