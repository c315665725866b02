package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchyard/pkg/logging"
)

// runServer starts all services and blocks until an interrupt signal, a
// cancelled context or a fatal server error, then shuts everything down.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
//
// The shutdown is bounded by server.shutdownTimeout.
func runServer(ctx context.Context, services *Services) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return serve(ctx, services, sigChan)
}

func serve(ctx context.Context, services *Services, sigChan <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := services.Start(ctx); err != nil {
		logging.Error("CLI", err, "Failed to start services")
		shutdown(services)
		return err
	}
	logging.Info("CLI", "switchyard is running on %s. Press Ctrl+C to stop.", services.Server.Addr())

	var runErr error
	select {
	case sig := <-sigChan:
		logging.Info("CLI", "Received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("CLI", "Context cancelled, shutting down")
	case runErr = <-services.Server.Errors():
	}

	if err := shutdown(services); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func shutdown(services *Services) error {
	timeout := services.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := services.Shutdown(ctx); err != nil {
		logging.Error("CLI", err, "Shutdown did not complete cleanly")
		return err
	}
	logging.Info("CLI", "Shutdown complete")
	return nil
}
