package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Environment variables of the socket activation protocol used by systemd,
// systemfd and catflap. Descriptors start at listenFDStart.
const (
	EnvListenFDs  = "LISTEN_FDS"
	EnvListenPID  = "LISTEN_PID"
	listenFDStart = 3
)

// SocketHandle owns a listening socket that can be passed to another
// process. Export produces a descriptor for the child; Import rebuilds the
// handle on the other side.
type SocketHandle struct {
	ln        net.Listener
	inherited bool
}

// Listen binds a new listening socket on addr.
func Listen(ctx context.Context, addr string) (*SocketHandle, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &SocketHandle{ln: ln}, nil
}

// NewSocketHandle wraps an existing listener. Only listeners backed by a
// file descriptor (TCP, unix) can be exported.
func NewSocketHandle(ln net.Listener) *SocketHandle {
	return &SocketHandle{ln: ln}
}

// Inherit picks up a socket passed through LISTEN_FDS. It returns nil and
// no error when the process was not started with one. LISTEN_PID is
// honoured when present. The variables are cleared so they do not leak into
// processes started later.
func Inherit() (*SocketHandle, error) {
	fds := os.Getenv(EnvListenFDs)
	if fds == "" {
		return nil, nil
	}
	if pid := os.Getenv(EnvListenPID); pid != "" && pid != strconv.Itoa(os.Getpid()) {
		return nil, nil
	}
	defer func() {
		_ = os.Unsetenv(EnvListenFDs)
		_ = os.Unsetenv(EnvListenPID)
	}()

	n, err := strconv.Atoi(fds)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("%w: invalid %s=%q", ErrSocketHandoffFailed, EnvListenFDs, fds)
	}

	h, err := Import(os.NewFile(uintptr(listenFDStart), "listenfd"))
	if err != nil {
		return nil, err
	}
	h.inherited = true
	return h, nil
}

// Import reconstructs a handle from a descriptor produced by Export. The
// file is closed; the listener holds its own descriptor.
func Import(f *os.File) (*SocketHandle, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: no descriptor", ErrSocketHandoffFailed)
	}
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocketHandoffFailed, err)
	}
	return &SocketHandle{ln: ln, inherited: true}, nil
}

type filer interface {
	File() (*os.File, error)
}

// Export duplicates the socket's descriptor. Both processes hold the
// socket until one of them closes its copy.
func (h *SocketHandle) Export() (*os.File, error) {
	fl, ok := h.ln.(filer)
	if !ok {
		return nil, fmt.Errorf("%w: %T has no file descriptor", ErrSocketHandoffFailed, h.ln)
	}
	f, err := fl.File()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocketHandoffFailed, err)
	}
	return f, nil
}

// Listener returns the underlying listener.
func (h *SocketHandle) Listener() net.Listener { return h.ln }

// Addr returns the bound address.
func (h *SocketHandle) Addr() net.Addr { return h.ln.Addr() }

// Inherited reports whether the socket came from another process.
func (h *SocketHandle) Inherited() bool { return h.inherited }

// Close closes this process's copy of the socket.
func (h *SocketHandle) Close() error { return h.ln.Close() }
