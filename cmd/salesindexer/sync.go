package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/6529-Collections/nftsales/internal/cluster"
	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/6529-Collections/nftsales/internal/db"
	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/eth/ethdb"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/6529-Collections/nftsales/internal/rpc"
	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/6529-Collections/nftsales/pkg/salesync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scan every configured chain and store the sales found",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	cmd.Flags().Duration("follow", 0, "keep syncing, pausing this long between passes (0 runs one pass)")
	return cmd
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func startAggregator(registry prometheus.Registerer, interval time.Duration) (*metrics.Aggregator, error) {
	sink, err := metrics.NewPrometheusSink(registry)
	if err != nil {
		return nil, err
	}
	aggregator := metrics.NewAggregator(sink, interval)
	aggregator.Start()
	return aggregator, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	follow, _ := cmd.Flags().GetDuration("follow")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting sales sync...", zap.String("Version", Version))

	sqlite, err := db.OpenSqlite(cfg.SqlitePath)
	if err != nil {
		return err
	}
	defer sqlite.Close()

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

	executor := cluster.NewExecutor(p.fetcher)
	var remote []cluster.Worker
	for _, url := range cfg.WorkerUrls() {
		remote = append(remote, cluster.NewHTTPWorker(url, nil))
	}
	dispatcher := cluster.NewDispatcher(cluster.NewLocalWorker(executor), remote...)
	dispatcher.Start(ctx)

	checkpointDb := ethdb.NewCheckpointDb()
	checkpoints := ethdb.NewCheckpointStore(sqlite, checkpointDb)
	saleDb := ethdb.NewSaleDb()

	closeRpcServer := rpc.StartRPCServer(cfg.RPCPort, ctx, checkpoints, registry)
	defer closeRpcServer()

	scanner := sales.NewScanner(p.decoder, p.market.ChainNames(), p.clients, checkpoints, dispatcher, aggregator,
		sales.ScannerConfig{
			MatureBlockAge:  cfg.MatureBlockAge,
			BlockRange:      cfg.BlockRange,
			QueryMaxRetries: cfg.QueryMaxRetries,
		})
	listener := salesync.NewSalesListener(sqlite, p.market.Marketplace, saleDb, checkpointDb)

	for {
		summary, err := listener.Run(ctx, scanner.Batches())
		zap.L().Info("Sync pass finished",
			zap.String("marketplace", string(p.market.Marketplace)),
			zap.Int("batches", summary.Batches),
			zap.Int("sales", summary.Sales),
			zap.Strings("failedChains", summary.FailedChains))
		if ctx.Err() != nil {
			zap.L().Info("Received shutdown signal, sync stopped")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync %s: %w", p.market.Marketplace, err)
		}
		if follow <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			zap.L().Info("Received shutdown signal, sync stopped")
			return nil
		case <-time.After(follow):
		}
	}
}
