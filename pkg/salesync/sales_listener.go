package salesync

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/6529-Collections/nftsales/internal/db"
	"github.com/6529-Collections/nftsales/internal/eth/ethdb"
	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type BatchSource interface {
	Next(ctx context.Context) (*sales.ChainEventsBatch, error)
}

type Summary struct {
	Batches      int
	Sales        int
	FailedChains []string
}

// SalesListener is the consumer of the scanner: it stores each batch and
// only then moves the checkpoint to the batch's end block.
type SalesListener struct {
	sqlite      *sql.DB
	marketplace markets.Marketplace
	sales       ethdb.SaleDb
	checkpoints ethdb.CheckpointDb
}

func NewSalesListener(sqlite *sql.DB, marketplace markets.Marketplace, saleDb ethdb.SaleDb, checkpoints ethdb.CheckpointDb) *SalesListener {
	return &SalesListener{
		sqlite:      sqlite,
		marketplace: marketplace,
		sales:       saleDb,
		checkpoints: checkpoints,
	}
}

// Run drains source. A failed chain is logged and skipped; its error is
// part of the returned error once every other chain has finished.
func (l *SalesListener) Run(ctx context.Context, source BatchSource) (Summary, error) {
	var summary Summary
	var chainErrs error
	for {
		batch, err := source.Next(ctx)
		if errors.Is(err, sales.ErrScanExhausted) {
			return summary, chainErrs
		}
		if chain, failed := sales.FailedChain(err); failed {
			zap.L().Error("Chain scan aborted", zap.String("chain", chain), zap.Error(err))
			summary.FailedChains = append(summary.FailedChains, chain)
			chainErrs = multierr.Append(chainErrs, err)
			continue
		}
		if err != nil {
			return summary, multierr.Append(chainErrs, err)
		}

		stored, err := l.Persist(ctx, batch)
		if err != nil {
			return summary, multierr.Append(chainErrs, err)
		}
		summary.Batches++
		summary.Sales += stored
	}
}

func (l *SalesListener) Persist(ctx context.Context, batch *sales.ChainEventsBatch) (int, error) {
	rows := SalesFromBatch(l.marketplace, batch)
	stored, err := db.TxRunner(ctx, l.sqlite, func(tx *sql.Tx) (int, error) {
		stored := 0
		for _, row := range rows {
			inserted, err := l.sales.StoreSale(ctx, tx, row)
			if err != nil {
				return 0, err
			}
			if inserted {
				stored++
			}
		}
		if err := l.checkpoints.AdvanceCheckpoint(ctx, tx, l.marketplace, batch.Chain, batch.Range.EndBlock); err != nil {
			return 0, err
		}
		return stored, nil
	})
	if err != nil {
		return 0, err
	}
	zap.L().Info("Stored sales",
		zap.String("chain", batch.Chain),
		zap.Uint64("fromBlock", batch.Range.StartBlock),
		zap.Uint64("toBlock", batch.Range.EndBlock),
		zap.Int("events", len(batch.Events)),
		zap.Int("stored", stored))
	return stored, nil
}

// SalesFromBatch pairs every event with its metadata. Events of one
// transaction take that transaction's meta entries in order.
func SalesFromBatch(marketplace markets.Marketplace, batch *sales.ChainEventsBatch) []ethdb.Sale {
	used := make(map[common.Hash]int)
	rows := make([]ethdb.Sale, 0, len(batch.Events))
	for _, ev := range batch.Events {
		hash := ev.Log.TxHash
		meta := sales.EventMetadata{Price: ev.Price}
		if r, ok := batch.Receipts[hash]; ok && used[hash] < len(r.Meta) {
			meta = r.Meta[used[hash]]
		} else {
			zap.L().Warn("Sale has no metadata, storing event price only",
				zap.String("txHash", hash.Hex()),
				zap.Uint("logIndex", ev.Log.Index))
		}
		used[hash]++
		rows = append(rows, saleRow(marketplace, ev, meta))
	}
	return rows
}

func saleRow(marketplace markets.Marketplace, ev sales.ChainSaleEvent, meta sales.EventMetadata) ethdb.Sale {
	row := ethdb.Sale{
		Chain:           ev.Chain,
		Marketplace:     string(marketplace),
		TxHash:          strings.ToLower(ev.Log.TxHash.Hex()),
		LogIndex:        uint64(ev.Log.Index),
		BlockNumber:     ev.Log.BlockNumber,
		ContractAddress: nullAddress(meta.ContractAddress),
		Buyer:           nullAddress(meta.Buyer),
		Seller:          nullAddress(meta.Seller),
		EventSignatures: strings.Join(meta.EventSignatures, ","),
	}
	if meta.TokenID != nil {
		row.TokenID = sql.NullString{String: meta.TokenID.String(), Valid: true}
	}
	price := meta.Price
	if price == nil {
		price = ev.Price
	}
	if price != nil {
		row.Price = price.String()
	}
	return row
}

func nullAddress(a *common.Address) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.ToLower(a.Hex()), Valid: true}
}
