package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/mirror"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cli.InitStateStore(logger, cfg.SQLiteDBPath)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("State store close error", log.FieldError, err)
		}
	}()

	// Mirror transport is optional; the ledger works the same without one.
	factory := backend.NewFactory(logger)
	result, err := factory.CreateTransport(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror transport", log.FieldError, err,
			log.FieldBackend, cfg.MirrorBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Mirror transport cleanup error", log.FieldError, err)
			}
		}()
	}

	var notifier mirror.Notifier = mirror.Discard{}
	var dispatcher *mirror.Dispatcher
	if result.Transport != nil {
		dispatcher = mirror.NewDispatcher(result.Transport, mirror.DispatcherConfig{
			QueueSize:       cfg.MirrorQueueSize,
			DeliveryTimeout: cfg.MirrorTimeout,
		})
		if err := dispatcher.Start(ctx); err != nil {
			logger.Error("Failed to start mirror dispatcher", log.FieldError, err)
			os.Exit(1)
		}
		notifier = dispatcher
	}

	engine := ledger.New(store, notifier)
	if err := engine.Load(ctx); err != nil {
		logger.Error("Failed to load ledger state", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, engine, store, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			log.FieldBackend, cfg.MirrorBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if dispatcher != nil {
			if err := dispatcher.Stop(shutdownCtx); err != nil {
				logger.Warn("Mirror dispatcher stop error", log.FieldError, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
