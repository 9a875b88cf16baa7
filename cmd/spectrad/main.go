package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spectra/internal/config"
	"spectra/internal/daemon"
	"spectra/internal/ipc"
	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logging.CleanupOldLogs(cfg.Paths.LogDir, cfg.Logging.RetentionDays, logger)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	workflowManager := workflow.NewManager(cfg, store, logger)
	stages, err := buildStages(cfg, store, logger)
	if err != nil {
		logger.Error("configure stages", logging.Error(err))
		os.Exit(1)
	}
	workflowManager.ConfigureStages(stages)

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start ipc server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("spectrad shutting down")
}
