package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ErrBuildFailed is returned when the build command exits unsuccessfully.
var ErrBuildFailed = errors.New("hxssr: build failed")

// Builder runs the project's build command before a handoff, so the new
// instance starts from fresh code.
type Builder struct {
	// Command is run with sh -c. Empty means there is nothing to build.
	Command string
	Dir     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Build runs the command, streaming its output to the terminal.
func (b *Builder) Build(ctx context.Context) error {
	if b == nil || b.Command == "" {
		return nil
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", b.Command)
	cmd.Dir = b.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBuildFailed, b.Command, err)
	}
	logger.Info("build finished", "command", b.Command, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Requester starts a socket handoff.
type Requester interface {
	RequestHandoff(ctx context.Context) error
}

// HandoffTrigger returns a handler that rebuilds and then requests a
// handoff. A failed build is logged and the running instance is left
// alone. Changes made while a rebuild runs are merged by the debouncer into
// the next batch.
func HandoffTrigger(ctx context.Context, b *Builder, r Requester, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(events []ChangeEvent) error {
		if len(events) == 0 || ctx.Err() != nil {
			return nil
		}
		logger.Info("files changed", "count", len(events), "first", events[0].Path)

		if err := b.Build(ctx); err != nil {
			logger.Error("build failed, keeping the running instance", "error", err)
			return err
		}
		return r.RequestHandoff(ctx)
	}
}
