package supervisor

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// Requester starts a handoff. *Supervisor implements it.
type Requester interface {
	RequestHandoff(ctx context.Context) error
}

// NotifyHandoff calls r.RequestHandoff whenever one of sigs arrives, until
// ctx is done. With no sigs it listens for SIGHUP where the platform has it.
func NotifyHandoff(ctx context.Context, r Requester, logger *slog.Logger, sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = handoffSignals
	}
	if len(sigs) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				logger.Info("handoff signal received", "signal", sig.String())
				if err := r.RequestHandoff(ctx); err != nil {
					logger.Debug("handoff from signal", "error", err)
				}
			}
		}
	}()
}
