package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/api"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/di"
	"github.com/mikey/mailpilot/internal/factory"
	"github.com/mikey/mailpilot/internal/ports"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	handlers *api.Handlers,
	mailbox core.Mailbox,
	providers *factory.ProviderFactory,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	// The embedded inbox has its own SMTP listener
	if svc, ok := mailbox.(ports.Service); ok {
		if err := svc.Start(); err != nil {
			logger.Error("Failed to start mailbox", zap.Error(err))
			return err
		}
		defer func() {
			if err := svc.Stop(); err != nil {
				logger.Error("Failed to stop mailbox", zap.Error(err))
			}
		}()
	}

	sc := cfg.GetServer()
	srv := &http.Server{
		Addr:    sc.ListenAddress,
		Handler: handlers.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", sc.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			logger.Error("HTTP server failed", zap.Error(err))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	// Close any resources that need closing
	if err := providers.Close(); err != nil {
		logger.Error("Failed to close provider clients", zap.Error(err))
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
