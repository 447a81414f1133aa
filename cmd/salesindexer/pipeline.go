package main

import (
	"fmt"

	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/spf13/cobra"
)

// pipeline holds the decoding and receipt components shared by every
// sub-command.
type pipeline struct {
	market     markets.MarketConfig
	decoder    *sales.SaleEventDecoder
	classifier *sales.LogClassifier
	extractor  *sales.EventMetadataExtractor
	fetcher    *sales.ReceiptFetcher
	clients    map[string]eth.EthClient
}

func buildPipeline(cmd *cobra.Command, cfg config.Config, cache eth.ReceiptCache, recorder metrics.Recorder) (*pipeline, error) {
	name, _ := cmd.Flags().GetString("market")
	market, err := markets.Lookup(name)
	if err != nil {
		return nil, err
	}
	decoder, err := sales.NewSaleEventDecoder(market)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]eth.EthClient)
	for _, chain := range market.ChainNames() {
		client, err := eth.CreateEthClient(chain)
		if err != nil {
			closeClients(clients)
			return nil, fmt.Errorf("market %s: %w", market.Marketplace, err)
		}
		clients[chain] = client
	}

	classifier := sales.NewLogClassifier(decoder, recorder)
	extractor := sales.NewEventMetadataExtractor(classifier)
	fetcher := sales.NewReceiptFetcher(decoder, clients, cache, extractor, recorder, sales.FetcherConfig{
		Parallelism: cfg.EventReceiptParallelism,
		MaxRetries:  cfg.ReceiptMaxRetries,
	})

	return &pipeline{
		market:     market,
		decoder:    decoder,
		classifier: classifier,
		extractor:  extractor,
		fetcher:    fetcher,
		clients:    clients,
	}, nil
}

func (p *pipeline) Close() {
	closeClients(p.clients)
}

func closeClients(clients map[string]eth.EthClient) {
	for _, c := range clients {
		c.Close()
	}
}
