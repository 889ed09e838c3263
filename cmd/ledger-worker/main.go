package main

import (
	"context"
	"errors"
	"os"

	"lottoledger/internal/backend"
	"lottoledger/internal/cli"
	"lottoledger/internal/log"
	"lottoledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	logger.InfoContext(ctx, "Starting ledger-worker", log.FieldRemote, cfg.RemoteBackend, "schedule", cfg.SyncSchedule)

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
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	if res.Remote == nil {
		// Nothing to mirror to; the worker has no job.
		logger.WarnContext(ctx, "No remote store available, worker idle until shutdown", log.FieldNotice, res.RemoteNotice)
		<-ctx.Done()
		return
	}

	syncWorker := worker.NewSyncWorker(res.Repository, res.Remote)
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err)
	}

	scheduler := worker.NewScheduler(ctx)
	if err := scheduler.AddJob(cfg.SyncSchedule, worker.MirrorJob{Worker: syncWorker}); err != nil {
		logger.ErrorContext(ctx, "Failed to schedule periodic sync", log.FieldError, err, "schedule", cfg.SyncSchedule)
		return
	}
	scheduler.Start()
	defer scheduler.Stop()

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.ConsumeLedgerSync(ctx, syncWorker.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Message consumption stopped", log.FieldError, err)
			}
		}()
	} else {
		logger.InfoContext(ctx, "No AMQP broker configured, relying on the schedule only")
	}

	<-ctx.Done()
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown, "last_sync", syncWorker.LastSync())
}
