//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"syscall"
	"time"
)

var stopTimeout = 5 * time.Second

// Spawn starts the binary with the socket on fd 3 and waits for nothing;
// use WaitReady on the returned instance.
func (p *ProcessSpawner) Spawn(ctx context.Context, req SpawnRequest) (Instance, error) {
	if req.Listener == nil {
		return nil, fmt.Errorf("%w: no listener descriptor", ErrSocketHandoffFailed)
	}
	defer req.Listener.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binary, args, err := p.command()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	manifest, err := req.Manifest.Encode()
	if err != nil {
		return nil, err
	}

	rd, wr, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("ready pipe: %w", err)
	}

	cmd := p.newCmd(binary, args, manifest, req.Listener, wr)
	if err := cmd.Start(); err != nil {
		_ = rd.Close()
		_ = wr.Close()
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	_ = wr.Close()

	inst := &processInstance{
		cmd:    cmd,
		ready:  make(chan readyResult, 1),
		exited: make(chan struct{}),
	}
	go func() {
		defer rd.Close()
		r, err := ReadReady(rd)
		inst.ready <- readyResult{ready: r, err: err}
	}()
	go func() {
		_ = cmd.Wait()
		close(inst.exited)
	}()
	return inst, nil
}

// newCmd builds the child command. The child outlives the request that
// started it, so no context is bound to it. It stays in our process group:
// this process exits after draining, and the terminal's SIGINT must still
// reach the successor.
func (p *ProcessSpawner) newCmd(binary string, args []string, manifest string, listener, ready *os.File) *exec.Cmd {
	cmd := exec.Command(binary, args...)
	cmd.Dir = p.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = childEnv(slices.Concat(p.Env, []string{EnvListenFDs + "=1", EnvHandoff + "=" + manifest})...)
	cmd.ExtraFiles = []*os.File{listener, ready}
	return cmd
}

type readyResult struct {
	ready Ready
	err   error
}

type processInstance struct {
	cmd    *exec.Cmd
	ready  chan readyResult
	exited chan struct{}
}

func (p *processInstance) WaitReady(ctx context.Context) (Ready, error) {
	select {
	case res := <-p.ready:
		if res.err != nil {
			return Ready{}, fmt.Errorf("child %d: %w", p.cmd.Process.Pid, res.err)
		}
		return res.ready, nil
	case <-ctx.Done():
		return Ready{}, ctx.Err()
	}
}

// Stop sends SIGTERM to the child and SIGKILL if it has not exited after
// stopTimeout. Only the child is signalled; it shares our process group.
func (p *processInstance) Stop() error {
	if p.cmd.Process == nil {
		return errors.New("process not started")
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
		return nil
	case <-time.After(stopTimeout):
		_ = p.cmd.Process.Kill()
		<-p.exited
		return nil
	}
}
