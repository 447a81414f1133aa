package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"go.uber.org/zap"
)

// CheckpointStore persists the last scanned block per marketplace and chain.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, marketplace markets.Marketplace, chain string) (uint64, error)
	AdvanceCheckpoint(ctx context.Context, marketplace markets.Marketplace, chain string, block uint64) error
}

// ReceiptDispatcher fans receipt fetching out and returns one partial
// result per unit of work.
type ReceiptDispatcher interface {
	DispatchReceipts(ctx context.Context, chain string, events []ChainSaleEvent) ([]TxReceipts, error)
}

type ScannerConfig struct {
	MatureBlockAge  uint64
	BlockRange      uint64
	QueryMaxRetries int
}

type Scanner struct {
	decoder     *SaleEventDecoder
	chains      []string
	clients     map[string]eth.EthClient
	checkpoints CheckpointStore
	dispatcher  ReceiptDispatcher
	recorder    metrics.Recorder
	cfg         ScannerConfig
}

func NewScanner(
	decoder *SaleEventDecoder,
	chains []string,
	clients map[string]eth.EthClient,
	checkpoints CheckpointStore,
	dispatcher ReceiptDispatcher,
	recorder metrics.Recorder,
	cfg ScannerConfig,
) *Scanner {
	return &Scanner{
		decoder:     decoder,
		chains:      chains,
		clients:     clients,
		checkpoints: checkpoints,
		dispatcher:  dispatcher,
		recorder:    recorder,
		cfg:         cfg,
	}
}

// Batches starts a fresh pass over every chain from its stored checkpoint.
func (s *Scanner) Batches() *BatchIterator {
	return &BatchIterator{
		scanner: s,
		pending: append([]string(nil), s.chains...),
	}
}

// BatchIterator yields one ChainEventsBatch per scanned window, chain after
// chain. A window is not scanned until Next is called for it.
type BatchIterator struct {
	scanner *Scanner
	pending []string
	current *chainScan
}

type chainScan struct {
	chain      string
	client     eth.EthClient
	checkpoint uint64
	mature     uint64
	offset     uint64
}

// Next returns ErrScanExhausted when every chain is done. A *ChainScanError
// ends that chain only; calling Next again moves on to the next chain.
func (it *BatchIterator) Next(ctx context.Context) (*ChainEventsBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for {
		if it.current == nil {
			if len(it.pending) == 0 {
				return nil, ErrScanExhausted
			}
			chain := it.pending[0]
			it.pending = it.pending[1:]

			scan, err := it.scanner.openChain(ctx, chain)
			if err != nil {
				return nil, &ChainScanError{Chain: chain, Err: err}
			}
			if scan == nil {
				continue
			}
			it.current = scan
		}

		scan := it.current
		from := scan.checkpoint + scan.offset
		if from >= scan.mature {
			it.current = nil
			continue
		}
		window := BlockRange{StartBlock: from, EndBlock: min(from+it.scanner.cfg.BlockRange, scan.mature)}

		batch, err := it.scanner.scanWindowWithRetry(ctx, scan, window)
		if err != nil {
			it.current = nil
			return nil, err
		}
		scan.offset += it.scanner.cfg.BlockRange + 1
		return batch, nil
	}
}

func (s *Scanner) openChain(ctx context.Context, chain string) (*chainScan, error) {
	cfg, ok := s.decoder.Chain(chain)
	if !ok {
		return nil, fmt.Errorf("%s has no configuration for chain %s", s.decoder.Marketplace(), chain)
	}
	client, ok := s.clients[chain]
	if !ok {
		return nil, fmt.Errorf("no client for chain %s", chain)
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current block: %w", err)
	}
	s.recorder.Set(metricName(s.decoder.Marketplace(), chain, "provider_getBlockNumber.head"), float64(head))
	checkpoint, err := s.checkpoints.GetCheckpoint(ctx, s.decoder.Marketplace(), chain)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	if cfg.DeployBlock > 0 && checkpoint < cfg.DeployBlock {
		zap.L().Info("Checkpoint precedes contract deployment, moving it forward",
			zap.String("chain", chain),
			zap.Uint64("checkpoint", checkpoint),
			zap.Uint64("deployBlock", cfg.DeployBlock))
		if err := s.checkpoints.AdvanceCheckpoint(ctx, s.decoder.Marketplace(), chain, cfg.DeployBlock); err != nil {
			return nil, fmt.Errorf("advance checkpoint to deploy block: %w", err)
		}
		checkpoint = cfg.DeployBlock
	}

	var mature uint64
	if head > s.cfg.MatureBlockAge {
		mature = head - s.cfg.MatureBlockAge
	}
	if mature <= checkpoint || mature-checkpoint <= s.cfg.MatureBlockAge {
		zap.L().Info("Not enough mature blocks to scan",
			zap.String("chain", chain),
			zap.Uint64("currentBlock", head),
			zap.Uint64("lastMatureBlock", mature),
			zap.Uint64("lastSyncedBlockNumber", checkpoint))
		return nil, nil
	}

	return &chainScan{
		chain:      chain,
		client:     client,
		checkpoint: checkpoint,
		mature:     mature,
	}, nil
}

func (s *Scanner) scanWindowWithRetry(ctx context.Context, scan *chainScan, window BlockRange) (*ChainEventsBatch, error) {
	for attempt := 0; ; attempt++ {
		zap.L().Info("Searching blocks",
			zap.String("chain", scan.chain),
			zap.Uint64("fromBlock", window.StartBlock),
			zap.Uint64("toBlock", window.EndBlock),
			zap.Int("retryCount", attempt))

		batch, err := s.scanWindow(ctx, scan, window)
		if err == nil {
			return batch, nil
		}

		msg := err.Error()
		if strings.Contains(msg, "quorum") {
			msg = "Quorum error"
		}
		zap.L().Error("Query error",
			zap.String("chain", scan.chain),
			zap.String("cause", msg),
			zap.Uint64("fromBlock", window.StartBlock),
			zap.Uint64("toBlock", window.EndBlock),
			zap.Int("retryCount", attempt),
			zap.Error(err))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ChainScanError{Chain: scan.chain, Range: &window, Err: ctxErr}
		}
		if attempt >= s.cfg.QueryMaxRetries {
			zap.L().Error("Not able to recover from query errors",
				zap.String("chain", scan.chain),
				zap.Uint64("fromBlock", window.StartBlock))
			return nil, &ChainScanError{
				Chain: scan.chain,
				Range: &window,
				Err:   fmt.Errorf("%w after %d attempts: %w", ErrQueryRetriesExhausted, attempt+1, err),
			}
		}
	}
}

func (s *Scanner) scanWindow(ctx context.Context, scan *chainScan, window BlockRange) (*ChainEventsBatch, error) {
	market := s.decoder.Marketplace()
	query, err := s.decoder.FilterQuery(scan.chain, window)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logs, err := scan.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	s.recorder.Submit(metricName(market, scan.chain, "contract_queryFilter.blockRange"),
		float64(window.EndBlock-window.StartBlock), metrics.Gauge)
	s.recorder.Submit(metricName(market, scan.chain, "contract_queryFilter.latency"),
		elapsedMillis(start), metrics.Histogram)

	events := make([]ChainSaleEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		event, err := s.decoder.Decode(scan.chain, lg)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	zap.L().Info(fmt.Sprintf("Found %d events between %d to %d", len(events), window.StartBlock, window.EndBlock),
		zap.String("chain", scan.chain))

	batch := &ChainEventsBatch{Chain: scan.chain, Events: events, Range: window}
	if len(events) == 0 {
		return batch, nil
	}

	parts, err := s.dispatcher.DispatchReceipts(ctx, scan.chain, events)
	if err != nil {
		return nil, fmt.Errorf("fetch receipts: %w", err)
	}
	batch.Receipts = MergeReceipts(parts...)
	return batch, nil
}

// FailedChain reports the chain whose scan err ended, if any.
func FailedChain(err error) (string, bool) {
	var scanErr *ChainScanError
	if !errors.As(err, &scanErr) {
		return "", false
	}
	return scanErr.Chain, true
}
