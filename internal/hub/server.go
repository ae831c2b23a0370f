// Package hub implements a local directory server: the web server endpoints and the
// coordinator's registration endpoint served from a single process.
package hub

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpatiumPortae/tuneshare/internal/file"
	"github.com/SpatiumPortae/tuneshare/internal/logger"
	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server contains the necessary data to run the hub.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	directory   *Directory
	subscribers *subscribers
	shared      *file.Saver
	signal      chan os.Signal
	logger      *zap.Logger
	version     semver.Version
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer constructs a new Server struct and setups the routes. Uploaded files are
// stored in sharedDir.
func NewServer(port int, sharedDir string, version semver.Version, opts ...Option) *Server {
	router := &mux.Router{}
	s := &Server{
		router:      router,
		directory:   NewDirectory(),
		subscribers: newSubscribers(),
		shared:      file.NewSaver(sharedDir, true),
		signal:      make(chan os.Signal, 1),
		logger:      logger.New(),
		version:     version,
	}
	for _, opt := range opts {
		opt(s)
	}
	stdLoggerWrapper, _ := zap.NewStdLogAt(s.logger, zap.ErrorLevel)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		ReadHeaderTimeout: 30 * time.Second,
		Handler:           router,
		ErrorLog:          stdLoggerWrapper,
	}
	s.routes()
	return s
}

// Handler returns the routed handler of the hub.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Directory returns the directory served by the hub.
func (s *Server) Directory() *Directory {
	return s.directory
}

// Start runs the hub until an interrupt or termination signal is received.
func (s *Server) Start() error {
	signal.Notify(s.signal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.signal)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-s.signal
		s.logger.Info("tuneshare hub is shutting down")
		cancel()
	}()

	if err := serve(ctx, s); err != nil {
		s.logger.Error("serving tuneshare hub", zap.Error(err), zap.Stack("stack_trace"))
		return err
	}
	return nil
}

// Shutdown stops a running hub.
func (s *Server) Shutdown() {
	select {
	case s.signal <- os.Interrupt:
	default:
	}
}

// serve is a helper function providing graceful shutdown of the server.
func serve(ctx context.Context, s *Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.
		With(zap.String("version", s.version.String())).
		With(zap.String("address", s.httpServer.Addr)).
		Info("serving tuneshare hub")

	select {
	case err := <-errCh:
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("shutting down tuneshare hub: %w", err)
	}
	s.logger.Info("tuneshare hub shutdown successfully")
	return nil
}
