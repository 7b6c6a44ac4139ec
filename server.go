package hxssr

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pthm/hxssr/lib/supervisor"
)

// Server runs a handler on a socket under a supervisor, so the socket can
// be handed to a rebuilt binary without refusing connections.
//
//	srv, err := hxssr.NewWithAutoReload(ctx, ":3000", eng.Middleware(mux))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(srv.Serve(ctx))
type Server struct {
	handle  *supervisor.SocketHandle
	handler http.Handler
	options Options
	cfg     supervisor.Config
	logger  *slog.Logger

	shutdown       <-chan struct{}
	signalShutdown bool
	handoffSignals bool

	once sync.Once
	sup  *supervisor.Supervisor
	st   *State
}

// NewServer creates a server for handler on handle.
func NewServer(handle *supervisor.SocketHandle, handler http.Handler) *Server {
	return &Server{
		handle:  handle,
		handler: handler,
		logger:  slog.Default(),
	}
}

// NewWithAutoReload binds addr, or takes over a socket passed by a
// previous instance, and enables shutdown on SIGINT/SIGTERM and handoff on
// SIGHUP to a fresh copy of the running binary.
func NewWithAutoReload(ctx context.Context, addr string, handler http.Handler) (*Server, error) {
	handle, err := supervisor.Inherit()
	if err != nil {
		return nil, err
	}
	if handle == nil {
		if handle, err = supervisor.Listen(ctx, addr); err != nil {
			return nil, fmt.Errorf("failed to get a TCP listener: %w", err)
		}
	}
	resume, err := supervisor.ResumeFromEnv()
	if err != nil {
		handle.Close()
		return nil, err
	}

	s := NewServer(handle, handler).WithSignalShutdown()
	s.cfg.Resume = resume
	s.cfg.Spawner = &supervisor.ProcessSpawner{}
	s.handoffSignals = true
	return s, nil
}

// WithOptions sets the server options.
func (s *Server) WithOptions(opts Options) *Server {
	s.options = opts
	return s
}

// WithOptionsFromEnv sets the server options from the environment.
func (s *Server) WithOptionsFromEnv() (*Server, error) {
	opts, err := OptionsFromEnv(s.logger)
	if err != nil {
		return nil, err
	}
	s.options = opts
	return s, nil
}

// WithGracefulShutdown drains and stops the server when done is closed.
func (s *Server) WithGracefulShutdown(done <-chan struct{}) *Server {
	s.shutdown = done
	return s
}

// WithSignalShutdown drains and stops the server on SIGINT or SIGTERM.
func (s *Server) WithSignalShutdown() *Server {
	s.signalShutdown = true
	return s
}

// WithSupervisor sets the supervisor configuration. Handler and
// BaseContext are always set by the Server.
func (s *Server) WithSupervisor(cfg supervisor.Config) *Server {
	if cfg.Resume == nil {
		cfg.Resume = s.cfg.Resume
	}
	s.cfg = cfg
	return s
}

// WithLogger sets the logger for the server and its supervisor.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// Supervisor returns the supervisor that Serve runs. The With methods have
// no effect once it has been created.
func (s *Server) Supervisor() *supervisor.Supervisor {
	s.once.Do(s.build)
	return s.sup
}

// State returns the state handlers see through StateFrom.
func (s *Server) State() *State {
	s.once.Do(s.build)
	return s.st
}

func (s *Server) build() {
	base := s.options.BaseURL
	if base == nil {
		base = BaseURLFromAddr(s.handle.Addr())
	}
	s.st = &State{BaseURL: base}

	cfg := s.cfg
	cfg.Handler = s.handler
	cfg.BaseContext = func(net.Listener) context.Context {
		return WithState(context.Background(), s.st)
	}
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.sup = supervisor.New(s.handle, cfg)
}

// Serve runs until ctx is canceled, a shutdown signal arrives or the socket
// is handed off, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	sup := s.Supervisor()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.signalShutdown {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}
	if s.shutdown != nil {
		go func() {
			select {
			case <-s.shutdown:
				s.logger.Info("shutdown requested, shutting down gracefully")
				cancel()
			case <-ctx.Done():
			}
		}()
	}
	if s.handoffSignals {
		supervisor.NotifyHandoff(ctx, sup, s.logger)
	}

	s.logger.Info("hxssr server listening", "addr", s.handle.Addr().String())
	s.logger.Info("now serving", "base_url", s.st.BaseURL.String())
	for _, u := range Banner(s.handle.Addr()) {
		s.logger.Info("reachable", "url", u)
	}
	return sup.Serve(ctx)
}
