package serverapp

import (
	"context"
	"log/slog"

	"github.com/TakashiAihara/preppin-sub000/internal/logging"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// cleanupStack closes what Init acquired, newest first: the HTTP server
// before the store, the store before the telemetry providers.
type cleanupStack []closer

func (s *cleanupStack) push(name string, fn func(context.Context) error) {
	*s = append(*s, closer{name: name, fn: fn})
}

// run closes every entry even when one fails; failures are only logged.
func (s cleanupStack) run(ctx context.Context, logger *logging.Logger) {
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		err := c.fn(ctx)
		if logger == nil {
			continue
		}
		if err != nil {
			logger.Warn("cleanup failed", slog.String("component", c.name), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("closed", slog.String("component", c.name))
	}
}

// Shutdown closes everything Init opened. Only the first call does work.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		stack := a.cleanup
		a.started = false
		a.stateMu.Unlock()

		if a.logger != nil {
			a.logger.Info("shutting down", slog.Int("components", len(stack)))
		}
		stack.run(ctx, a.logger)
	})
	return nil
}
