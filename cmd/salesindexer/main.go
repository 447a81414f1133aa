package main

import (
	"os"

	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
	_ = zap.L().Sync()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salesindexer",
		Short:        "NFT marketplace sale indexer",
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("market", string(markets.Opensea), "marketplace to index")

	root.AddCommand(newSyncCmd(), newWorkerCmd(), newDecodeCmd())
	return root
}
