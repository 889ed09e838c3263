package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lottoledger/internal/backend"
	"lottoledger/internal/cli"
	apphttp "lottoledger/internal/http"
	"lottoledger/internal/log"
	"lottoledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).Create(ctx, backendCfg)
	if err != nil {
		logger.WithComponent(log.ComponentStorage).ErrorContext(ctx, "Failed to initialize storage",
			log.FieldOperation, log.OpStartup, log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithLocation(cfg.Location()),
		services.WithAutoSync(cfg.RemoteAutoSync),
		services.WithRemoteNotice(res.RemoteNotice),
	}
	if res.Remote != nil {
		opts = append(opts, services.WithRemote(res.Remote))
	}
	if res.AMQP != nil {
		opts = append(opts, services.WithPublisher(res.AMQP))
	}
	svc := services.NewLedgerService(res.Repository, opts...)
	if err := svc.Open(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to open ledger", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	if res.Remote == nil {
		logger.WarnContext(ctx, "Running local-only", log.FieldNotice, res.RemoteNotice)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.DefaultOptions())

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting lottoledger server", log.FieldOperation, log.OpStartup,
			"port", cfg.Port, "local", cfg.LocalBackend, log.FieldRemote, cfg.RemoteBackend, "auto_sync", cfg.RemoteAutoSync)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Server shutdown error", log.FieldError, err)
	}
	// Pending auto-syncs finish before storage closes
	svc.Wait()
	if err := res.Cleanup(); err != nil {
		logger.ErrorContext(shutdownCtx, "Backend cleanup error", log.FieldError, err)
	}
	logger.InfoContext(shutdownCtx, "Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
