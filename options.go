package hxssr

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/pthm/hxssr/lib/config"
)

// EnvBaseURL is the environment variable OptionsFromEnv reads.
const EnvBaseURL = config.EnvBaseURL

// Options configures a Server.
type Options struct {
	// BaseURL is the public URL of the server. Set it when running behind
	// a reverse proxy; when nil the URL is derived from the listener.
	BaseURL *url.URL
}

// OptionsError is returned by OptionsFromEnv for an unusable variable.
type OptionsError struct {
	Var   string
	Value string
	Err   error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("failed to parse the base URL from environment variable %s (was `%s`): %v", e.Var, e.Value, e.Err)
}

func (e *OptionsError) Unwrap() error {
	return e.Err
}

// OptionsFromEnv reads Options from the environment. An empty variable
// counts as unset.
func OptionsFromEnv(logger *slog.Logger) (Options, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw := strings.TrimSpace(os.Getenv(EnvBaseURL))
	if raw == "" {
		logger.Warn(EnvBaseURL + " was not set: base URL will be determined from the TCP listener address")
		return Options{}, nil
	}
	u, err := ParseBaseURL(raw)
	if err != nil {
		return Options{}, &OptionsError{Var: EnvBaseURL, Value: raw, Err: err}
	}
	logger.Info(EnvBaseURL+" was set", "base_url", u.String())
	return Options{BaseURL: u}, nil
}

// ParseBaseURL parses an absolute http(s) URL.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// BaseURLFromAddr derives a base URL from a listener address. Unspecified
// hosts become localhost.
func BaseURLFromAddr(addr net.Addr) *url.URL {
	host := addr.String()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		h := "localhost"
		if tcp.IP != nil && !tcp.IP.IsUnspecified() {
			h = tcp.IP.String()
		}
		host = net.JoinHostPort(h, fmt.Sprint(tcp.Port))
	}
	return &url.URL{Scheme: "http", Host: host}
}

// State is the per-server information handlers can read from the request
// context.
type State struct {
	BaseURL *url.URL
}

type stateCtxKey struct{}

// WithState attaches st to ctx.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateCtxKey{}, st)
}

// StateFrom returns the server State, or nil outside a Server.
func StateFrom(ctx context.Context) *State {
	st, _ := ctx.Value(stateCtxKey{}).(*State)
	return st
}

// AbsoluteURL resolves path against the server's base URL. Outside a Server
// it returns path unchanged.
func AbsoluteURL(ctx context.Context, path string) string {
	st := StateFrom(ctx)
	if st == nil || st.BaseURL == nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return st.BaseURL.ResolveReference(ref).String()
}
