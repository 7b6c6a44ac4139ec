package supervisor

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// EnvHandoff carries the encoded Manifest to a child started by a handoff.
const EnvHandoff = "HXSSR_HANDOFF"

// readyFD is the descriptor of the pipe the child reports readiness on.
// The listening socket is fd 3.
const readyFD = 4

// Manifest describes the instance being replaced.
type Manifest struct {
	Generation uint64 `msgpack:"generation"`
	ParentPID  int    `msgpack:"parent_pid"`
	Addr       string `msgpack:"addr"`
}

// Encode returns the manifest as msgpack in URL-safe base64, suitable for
// an environment variable.
func (m Manifest) Encode() (string, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeManifest parses the output of Manifest.Encode.
func DecodeManifest(s string) (Manifest, error) {
	var m Manifest
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Ready is sent by the child once it accepts on the shared socket.
type Ready struct {
	PID        int    `msgpack:"pid"`
	Generation uint64 `msgpack:"generation"`
}

// WriteReady encodes r onto w.
func WriteReady(w io.Writer, r Ready) error {
	if err := msgpack.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}
	return nil
}

// ReadReady decodes one Ready message from rd.
func ReadReady(rd io.Reader) (Ready, error) {
	var r Ready
	if err := msgpack.NewDecoder(rd).Decode(&r); err != nil {
		return r, fmt.Errorf("read ready: %w", err)
	}
	return r, nil
}

// Resume is what a child needs to finish a handoff: the parent's manifest
// and where to report readiness.
type Resume struct {
	Manifest Manifest
	Ready    io.WriteCloser
}

// ResumeFromEnv returns the pending handoff for this process, or nil when
// the process was not started by one.
func ResumeFromEnv() (*Resume, error) {
	raw := os.Getenv(EnvHandoff)
	if raw == "" {
		return nil, nil
	}
	_ = os.Unsetenv(EnvHandoff)

	m, err := DecodeManifest(raw)
	if err != nil {
		return nil, err
	}
	return &Resume{
		Manifest: m,
		Ready:    os.NewFile(uintptr(readyFD), "hxssr-ready"),
	}, nil
}
