// Package supervisor serves HTTP on a socket that can be handed to a
// freshly started instance without refusing connections.
//
// A handoff moves through Idle, HandoffRequested, SocketTransferred and
// OldDraining. The new instance publishes the reload event as soon as it
// accepts; the old one stops accepting, finishes in-flight requests within
// the grace period and returns from Serve. Any failure before the socket is
// transferred returns the old instance to Idle, still serving.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm/hxssr/lib/reload"
)

const (
	DefaultGrace        = 10 * time.Second
	DefaultReadyTimeout = 15 * time.Second
)

// Observer receives handoff outcomes.
type Observer interface {
	ObserveHandoff(result string, took time.Duration)
	ObserveDrainTimeout()
}

// Handoff results passed to Observer.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

// Config configures a Supervisor.
type Config struct {
	Handler http.Handler

	// Channel defaults to reload.Process().
	Channel *reload.Channel
	// Hub, if set, is closed when the socket is transferred so pages
	// reconnect to the new instance.
	Hub *reload.Hub

	// Spawner starts replacement instances. Without one every handoff fails.
	Spawner Spawner
	// Resume is set in an instance started by a handoff.
	Resume *Resume

	Grace             time.Duration
	ReadyTimeout      time.Duration
	ReadHeaderTimeout time.Duration

	Logger   *slog.Logger
	Observer Observer

	BaseContext func(net.Listener) context.Context
}

// Supervisor owns one SocketHandle and the HTTP server running on it.
type Supervisor struct {
	handle *SocketHandle
	cfg    Config
	ch     *reload.Channel
	logger *slog.Logger

	state atomic.Int32

	mu          sync.Mutex
	srv         *http.Server
	gate        *gateListener
	serving     chan struct{}
	transferred chan struct{}
}

// New creates a supervisor for handle.
func New(handle *SocketHandle, cfg Config) *Supervisor {
	if cfg.Handler == nil {
		cfg.Handler = http.DefaultServeMux
	}
	if cfg.Channel == nil {
		cfg.Channel = reload.Process()
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resume != nil {
		cfg.Channel.Restore(cfg.Resume.Manifest.Generation)
	}

	return &Supervisor{
		handle:      handle,
		cfg:         cfg,
		ch:          cfg.Channel,
		logger:      cfg.Logger.With("component", "supervisor"),
		serving:     make(chan struct{}),
		transferred: make(chan struct{}),
	}
}

// State returns the current handoff state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Generation returns the reload generation of this instance.
func (s *Supervisor) Generation() uint64 {
	return s.ch.Generation()
}

// Channel returns the reload channel the supervisor publishes to.
func (s *Supervisor) Channel() *reload.Channel {
	return s.ch
}

// Serving is closed once Serve has taken over the socket. A handoff
// requested before that fails.
func (s *Supervisor) Serving() <-chan struct{} {
	return s.serving
}

// Addr returns the listening address.
func (s *Supervisor) Addr() net.Addr {
	return s.handle.Addr()
}

// Serve accepts connections until ctx is canceled or a handoff completes.
// In both cases in-flight requests are drained within the grace period
// before Serve returns nil.
func (s *Supervisor) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.New("hxssr: supervisor is already serving")
	}
	gate := &gateListener{Listener: s.handle.Listener()}
	if s.cfg.Resume != nil {
		gate.onAccept = s.completeResume
	}
	srv := &http.Server{
		Handler:           s.cfg.Handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ConnContext:       reload.ConnContext(s.ch),
		BaseContext:       s.cfg.BaseContext,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}
	s.srv, s.gate = srv, gate
	close(s.serving)
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(gate)
	}()

	s.logger.Info("serving",
		"addr", s.handle.Addr().String(),
		"generation", s.ch.Generation(),
		"inherited", s.handle.Inherited())

	select {
	case <-ctx.Done():
		s.setState(OldDraining)
		s.logger.Info("shutting down", "grace", s.cfg.Grace)
	case <-s.transferred:
		s.setState(OldDraining)
		s.logger.Info("draining after handoff", "grace", s.cfg.Grace)
	case err := <-errCh:
		if !gate.handedOff.Load() {
			s.setState(Stopped)
			return fmt.Errorf("serve: %w", err)
		}
		// The gate closes before the state moves on; wait for the transfer.
		select {
		case <-s.transferred:
		case <-ctx.Done():
		}
		s.setState(OldDraining)
		s.logger.Info("draining after handoff", "grace", s.cfg.Grace)
		errCh <- err
	}

	s.drain(srv)
	<-errCh
	s.setState(Stopped)
	s.logger.Info("stopped")
	return nil
}

// RequestHandoff starts a replacement instance on the same socket and,
// once it accepts, stops this one from accepting. It returns when the
// socket is transferred; draining continues in Serve.
//
// Any failure leaves this instance in Idle, still serving, and returns an
// error wrapping ErrSocketHandoffFailed.
func (s *Supervisor) RequestHandoff(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(HandoffRequested)) {
		return fmt.Errorf("%w: state is %s", ErrHandoffInProgress, s.State())
	}

	start := time.Now()
	s.logger.Info("handoff requested", "generation", s.ch.Generation())

	if err := s.handoff(ctx); err != nil {
		s.state.CompareAndSwap(int32(HandoffRequested), int32(Idle))
		s.logger.Error("handoff aborted, still serving", "error", err)
		s.observe(ResultFailed, time.Since(start))
		return err
	}

	s.observe(ResultCompleted, time.Since(start))
	return nil
}

func (s *Supervisor) handoff(ctx context.Context) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate == nil {
		return fmt.Errorf("%w: not serving", ErrSocketHandoffFailed)
	}
	if s.cfg.Spawner == nil {
		return fmt.Errorf("%w: no spawner configured", ErrSocketHandoffFailed)
	}

	f, err := s.handle.Export()
	if err != nil {
		return err
	}

	manifest := Manifest{
		Generation: s.ch.Generation(),
		ParentPID:  os.Getpid(),
		Addr:       s.handle.Addr().String(),
	}
	inst, err := s.cfg.Spawner.Spawn(ctx, SpawnRequest{Listener: f, Manifest: manifest})
	if err != nil {
		return fmt.Errorf("%w: spawn: %w", ErrSocketHandoffFailed, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	ready, err := inst.WaitReady(readyCtx)
	cancel()
	if err == nil && ready.Generation <= manifest.Generation {
		err = fmt.Errorf("new instance reported generation %d, want > %d", ready.Generation, manifest.Generation)
	}
	if err != nil {
		if stopErr := inst.Stop(); stopErr != nil {
			s.logger.Warn("stopping new instance", "error", stopErr)
		}
		return fmt.Errorf("%w: %w", ErrSocketHandoffFailed, err)
	}

	// Stop accepting before the state says the socket is gone.
	gate.handedOff.Store(true)
	if err := gate.Close(); err != nil {
		s.logger.Debug("closing listener", "error", err)
	}
	if !s.state.CompareAndSwap(int32(HandoffRequested), int32(SocketTransferred)) {
		_ = inst.Stop()
		return fmt.Errorf("%w: shut down during handoff", ErrSocketHandoffFailed)
	}

	s.logger.Info("socket transferred", "pid", ready.PID, "generation", ready.Generation)
	close(s.transferred)
	if s.cfg.Hub != nil {
		s.cfg.Hub.CloseAll("reloading")
	}
	return nil
}

// completeResume runs when an instance started by a handoff begins
// accepting: the reload is published and the parent is told to let go.
func (s *Supervisor) completeResume() {
	ev := s.ch.Publish()
	s.logger.Info("took over socket", "parent_pid", s.cfg.Resume.Manifest.ParentPID, "generation", ev.Generation)

	w := s.cfg.Resume.Ready
	if w == nil {
		return
	}
	if err := WriteReady(w, Ready{PID: os.Getpid(), Generation: ev.Generation}); err != nil {
		s.logger.Error("reporting ready to parent", "error", err)
	}
	_ = w.Close()
}

func (s *Supervisor) drain(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Grace)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("closing connections open past the grace period",
			"grace", s.cfg.Grace, "error", ErrDrainTimeoutExceeded)
		if s.cfg.Observer != nil {
			s.cfg.Observer.ObserveDrainTimeout()
		}
	} else {
		s.logger.Warn("shutdown", "error", err)
	}
	_ = srv.Close()
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Supervisor) observe(result string, took time.Duration) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveHandoff(result, took)
	}
}

// gateListener runs onAccept once, when the server first calls Accept, and
// makes Close idempotent.
type gateListener struct {
	net.Listener
	onAccept  func()
	handedOff atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

func (g *gateListener) Accept() (net.Conn, error) {
	if g.onAccept != nil {
		g.startOnce.Do(g.onAccept)
	}
	return g.Listener.Accept()
}

func (g *gateListener) Close() error {
	g.closeOnce.Do(func() {
		g.closeErr = g.Listener.Close()
	})
	return g.closeErr
}
