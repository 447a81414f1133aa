package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/6529-Collections/nftsales/internal/cluster"
	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/6529-Collections/nftsales/internal/db"
	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/rpc"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve receipt fetching for a remote sync process",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	badgerDb, err := db.OpenBadger(cfg.BadgerPath)
	if err != nil {
		return err
	}
	defer badgerDb.Close()

	registry := newRegistry()
	aggregator, err := startAggregator(registry, cfg.MetricsFlushInterval)
	if err != nil {
		return err
	}
	defer aggregator.Stop()

	p, err := buildPipeline(cmd, cfg, eth.NewReceiptCache(badgerDb), aggregator)
	if err != nil {
		return err
	}
	defer p.Close()

	workerID := "worker-" + uuid.NewString()
	zap.L().Info("Worker started", zap.String("worker", workerID), zap.String("Version", Version))
	closeServer := rpc.StartWorkerServer(cfg.WorkerPort, ctx, workerID, cluster.NewExecutor(p.fetcher), registry)

	<-ctx.Done()
	zap.L().Info("Received shutdown signal, stopping worker...")
	closeServer()
	return nil
}
