package supervisor

import (
	"context"
	"os"
)

// SpawnRequest is what a new instance is started with.
type SpawnRequest struct {
	// Listener is a duplicate of the listening socket's descriptor. The
	// spawner owns it and must close it once the child holds its own copy.
	Listener *os.File
	Manifest Manifest
}

// Instance is a started replacement.
type Instance interface {
	// WaitReady blocks until the instance reports it accepts connections.
	WaitReady(ctx context.Context) (Ready, error)
	// Stop terminates an instance that never became ready.
	Stop() error
}

// Spawner starts replacement instances.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (Instance, error)
}

// ProcessSpawner re-executes a binary, passing the socket as fd 3 and a
// readiness pipe as fd 4.
type ProcessSpawner struct {
	// Binary defaults to the running executable.
	Binary string
	// Args defaults to the running process's arguments.
	Args []string
	// Env is appended to the current environment.
	Env []string
	Dir string
}

func (p *ProcessSpawner) command() (string, []string, error) {
	binary := p.Binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", nil, err
		}
		binary = exe
	}
	args := p.Args
	if args == nil && len(os.Args) > 1 {
		args = os.Args[1:]
	}
	return binary, args, nil
}

// childEnv is the current environment without stale activation variables,
// followed by extra.
func childEnv(extra ...string) []string {
	env := make([]string, 0, len(os.Environ())+len(extra))
	for _, kv := range os.Environ() {
		if hasEnvKey(kv, EnvListenFDs, EnvListenPID, "LISTEN_FDNAMES", EnvHandoff) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, extra...)
}

func hasEnvKey(kv string, keys ...string) bool {
	for _, k := range keys {
		if len(kv) > len(k) && kv[:len(k)] == k && kv[len(k)] == '=' {
			return true
		}
	}
	return false
}
