//go:build windows

package supervisor

import "context"

// Spawn is unsupported on Windows: listening sockets cannot be passed as
// inherited descriptors.
func (p *ProcessSpawner) Spawn(_ context.Context, req SpawnRequest) (Instance, error) {
	if req.Listener != nil {
		_ = req.Listener.Close()
	}
	return nil, ErrUnsupported
}
