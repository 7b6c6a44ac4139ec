//go:build !windows

package supervisor

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type requesterFunc func(ctx context.Context) error

func (f requesterFunc) RequestHandoff(ctx context.Context) error { return f(ctx) }

func TestNotifyHandoffOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	NotifyHandoff(ctx, requesterFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), discard, syscall.SIGUSR1)

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
