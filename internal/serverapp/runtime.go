package serverapp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

const (
	stopSignal      = "signal"
	stopServerError = "server_error"
)

var errUnexpectedStop = errors.New("server stopped unexpectedly")

// Start serves HTTP in the background. Calling it again returns the same
// error channel.
func (a *App) Start() (<-chan error, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	switch {
	case !a.initialized:
		return nil, errors.New("app is not initialized")
	case a.started:
		return a.serverErrors, nil
	}
	a.serverErrors = startServer(a.cfg, a.logger, a.srv, a.serverAddr)
	a.started = true
	return a.serverErrors, nil
}

// WaitForStop blocks until a signal arrives on stop or the server exits.
// A nil serverErrors falls back to the channel returned by Start.
func (a *App) WaitForStop(stop <-chan os.Signal, serverErrors <-chan error) (string, error) {
	if serverErrors == nil {
		a.stateMu.Lock()
		serverErrors = a.serverErrors
		a.stateMu.Unlock()
	}
	if stop == nil && serverErrors == nil {
		return "", errors.New("nothing to wait for")
	}

	// Receiving from a nil channel blocks, so a missing side never fires.
	select {
	case err := <-serverErrors:
		if err == nil {
			return stopServerError, errUnexpectedStop
		}
		return stopServerError, fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		if a.logger != nil {
			a.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		}
		return stopSignal, nil
	}
}
