package cluster

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/6529-Collections/nftsales/internal/eth"
	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewExample())
}

var (
	maker = common.HexToAddress("0x1111111111111111111111111111111111111111")
	taker = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeWorker struct {
	id      string
	pingErr error
	exec    func(ctx context.Context, cmd Command) (Result, error)

	mu    sync.Mutex
	calls int
}

func (w *fakeWorker) ID() string { return w.id }

func (w *fakeWorker) Ping(ctx context.Context) error { return w.pingErr }

func (w *fakeWorker) Execute(ctx context.Context, cmd Command) (Result, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	return w.exec(ctx, cmd)
}

func (w *fakeWorker) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// echoWorker answers every FetchReceiptsCommand with an empty receipt per
// transaction hash it was handed.
func echoWorker(id string) *fakeWorker {
	return &fakeWorker{id: id, exec: func(ctx context.Context, cmd Command) (Result, error) {
		c := cmd.(FetchReceiptsCommand)
		receipts := sales.TxReceipts{}
		for _, ev := range c.Events {
			receipts[ev.Log.TxHash] = &sales.TxReceiptWithMetadata{}
		}
		return FetchReceiptsResult{Receipts: receipts}, nil
	}}
}

func newTestDecoder(t *testing.T) *sales.SaleEventDecoder {
	t.Helper()
	d, err := sales.NewSaleEventDecoder(markets.OpenSea)
	require.NoError(t, err)
	return d
}

func newTestExecutor(t *testing.T, client eth.EthClient) *Executor {
	t.Helper()
	decoder := newTestDecoder(t)
	extractor := sales.NewEventMetadataExtractor(sales.NewLogClassifier(decoder, metrics.Nop{}))
	fetcher := sales.NewReceiptFetcher(decoder, map[string]eth.EthClient{"ethereum": client}, nil, extractor,
		metrics.Nop{}, sales.FetcherConfig{Parallelism: 2})
	return NewExecutor(fetcher)
}

func ordersMatchedLog(t *testing.T, tx common.Hash, index uint, price int64) types.Log {
	t.Helper()
	contract, err := markets.OpenSea.Chains["ethereum"].ParseABI()
	require.NoError(t, err)
	ev := contract.Events["OrdersMatched"]
	data, err := ev.Inputs.NonIndexed().Pack([32]byte{1}, [32]byte{2}, big.NewInt(price))
	require.NoError(t, err)
	return types.Log{
		Address: markets.OpenSea.Chains["ethereum"].ContractAddress,
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(maker.Bytes()),
			common.BytesToHash(taker.Bytes()),
			common.HexToHash("0x01"),
		},
		Data:        data,
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func saleEvent(t *testing.T, lg types.Log) sales.ChainSaleEvent {
	t.Helper()
	ev, err := newTestDecoder(t).Decode("ethereum", lg)
	require.NoError(t, err)
	return ev
}

func eventsFor(t *testing.T, txs ...common.Hash) []sales.ChainSaleEvent {
	t.Helper()
	events := make([]sales.ChainSaleEvent, len(txs))
	for i, tx := range txs {
		events[i] = saleEvent(t, ordersMatchedLog(t, tx, uint(i), int64(100+i)))
	}
	return events
}
