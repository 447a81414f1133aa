package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FetcherConfig struct {
	Parallelism int
	MaxRetries  int
}

// ReceiptFetcher resolves the receipts behind a list of sale events and
// extracts sale metadata from them.
type ReceiptFetcher struct {
	decoder   *SaleEventDecoder
	clients   map[string]eth.EthClient
	cache     eth.ReceiptCache
	extractor *EventMetadataExtractor
	recorder  metrics.Recorder
	cfg       FetcherConfig
}

// NewReceiptFetcher accepts a nil cache.
func NewReceiptFetcher(
	decoder *SaleEventDecoder,
	clients map[string]eth.EthClient,
	cache eth.ReceiptCache,
	extractor *EventMetadataExtractor,
	recorder metrics.Recorder,
	cfg FetcherConfig,
) *ReceiptFetcher {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &ReceiptFetcher{
		decoder:   decoder,
		clients:   clients,
		cache:     cache,
		extractor: extractor,
		recorder:  recorder,
		cfg:       cfg,
	}
}

func (f *ReceiptFetcher) Decoder() *SaleEventDecoder {
	return f.decoder
}

// FetchReceipts works through events in slices of cfg.Parallelism. Within
// a slice each distinct transaction is fetched once, concurrently.
func (f *ReceiptFetcher) FetchReceipts(ctx context.Context, chain string, events []ChainSaleEvent) (TxReceipts, error) {
	receipts := make(TxReceipts)
	market := f.decoder.Marketplace()

	for i := 0; i < len(events); i += f.cfg.Parallelism {
		slice := events[i:min(i+f.cfg.Parallelism, len(events))]
		sliceStart := time.Now()
		f.recorder.Incr(metricName(market, chain, "event_txReceiptProcess.numReceiptsPerSecond"), float64(len(slice)))

		var pending []common.Hash
		seen := make(map[common.Hash]bool)
		for _, ev := range slice {
			hash := ev.Log.TxHash
			if seen[hash] {
				continue
			}
			seen[hash] = true
			if _, ok := receipts[hash]; !ok {
				pending = append(pending, hash)
			}
		}

		fetched := make([]*types.Receipt, len(pending))
		g, gctx := errgroup.WithContext(ctx)
		for j, hash := range pending {
			g.Go(func() error {
				receipt, err := f.GetReceipt(gctx, chain, hash)
				if err != nil {
					return err
				}
				fetched[j] = receipt
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		f.recorder.Submit(metricName(market, chain, "event_queryTxReceipt.latency"),
			elapsedMillis(sliceStart)/float64(len(slice)), metrics.Histogram)

		if len(seen) != len(slice) {
			zap.L().Warn("Receipt to event ratio unbalanced, possible multi-sale",
				zap.String("chain", chain),
				zap.Int("events", len(slice)),
				zap.Int("receipts", len(seen)))
		}

		for j, hash := range pending {
			receipts[hash] = &TxReceiptWithMetadata{Receipt: fetched[j]}
		}
		for _, ev := range slice {
			entry := receipts[ev.Log.TxHash]
			if len(entry.Meta) > 0 {
				zap.L().Debug("Multi-sale TX",
					zap.String("txHash", ev.Log.TxHash.Hex()),
					zap.Uint("logIndex", ev.Log.Index))
			}
			entry.Meta = append(entry.Meta, f.extractor.Extract(ev, entry.Receipt.Logs))
			f.recorder.Incr(metricName(market, chain, "event_txReceiptProcess.numEventsPerSecond"), 1)
		}
	}
	return receipts, nil
}

// GetReceipt fetches one receipt, retrying immediately up to cfg.MaxRetries
// times. The cache is consulted first and a cache failure counts as a miss.
func (f *ReceiptFetcher) GetReceipt(ctx context.Context, chain string, txHash common.Hash) (*types.Receipt, error) {
	if f.cache != nil {
		cached, ok, err := f.cache.GetReceipt(chain, txHash)
		if err != nil {
			zap.L().Warn("Receipt cache read failed", zap.String("txHash", txHash.Hex()), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	client, ok := f.clients[chain]
	if !ok {
		return nil, fmt.Errorf("%w %s: no client for chain %s", ErrReceiptRetrievalFailed, txHash.Hex(), chain)
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt == nil {
			err = ethereum.NotFound
		}
		if err == nil {
			f.storeReceipt(chain, receipt)
			return receipt, nil
		}
		lastErr = err
		zap.L().Warn("Failed to get event receipt",
			zap.String("chain", chain),
			zap.String("txHash", txHash.Hex()),
			zap.Int("retryCount", attempt),
			zap.Error(err))
	}
	zap.L().Error("Giving up on event receipt",
		zap.String("chain", chain),
		zap.String("txHash", txHash.Hex()),
		zap.Int("attempts", f.cfg.MaxRetries+1),
		zap.Error(lastErr))
	return nil, fmt.Errorf("%w %s: %w", ErrReceiptRetrievalFailed, txHash.Hex(), lastErr)
}

func (f *ReceiptFetcher) storeReceipt(chain string, receipt *types.Receipt) {
	if f.cache == nil || receipt == nil {
		return
	}
	if err := f.cache.PutReceipt(chain, receipt); err != nil {
		zap.L().Warn("Receipt cache write failed", zap.String("txHash", receipt.TxHash.Hex()), zap.Error(err))
	}
}
