package sales

import (
	"math/big"
	"sync"
	"testing"

	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewExample())
}

var (
	wyvernContract = markets.OpenSea.Chains["ethereum"].ContractAddress
	nftContract    = common.HexToAddress("0x33FD426905F149f8376e227d0C9D3340AaD17aF1")
	wethContract   = common.HexToAddress("0xC02aaa39b223Fe8D0a0e5C4F27eAD9083C756Cc2")

	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol = common.HexToAddress("0x3333333333333333333333333333333333333333")
	dave  = common.HexToAddress("0x4444444444444444444444444444444444444444")

	txA = common.HexToHash("0xaaaa")
	txB = common.HexToHash("0xbbbb")
)

type recordedSample struct {
	name  string
	value float64
	kind  metrics.Kind
}

type recordingRecorder struct {
	mu      sync.Mutex
	samples []recordedSample
}

func (r *recordingRecorder) add(name string, v float64, kind metrics.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, recordedSample{name, v, kind})
}

func (r *recordingRecorder) Set(name string, v float64)                    { r.add(name, v, metrics.Gauge) }
func (r *recordingRecorder) Incr(name string, v float64)                   { r.add(name, v, metrics.Counter) }
func (r *recordingRecorder) Submit(name string, v float64, k metrics.Kind) { r.add(name, v, k) }

func (r *recordingRecorder) total(name string) (float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	var n int
	for _, s := range r.samples {
		if s.name == name {
			sum += s.value
			n++
		}
	}
	return sum, n
}

func newTestDecoder(t *testing.T) *SaleEventDecoder {
	t.Helper()
	d, err := NewSaleEventDecoder(markets.OpenSea)
	require.NoError(t, err)
	return d
}

func newTestExtractor(t *testing.T) *EventMetadataExtractor {
	t.Helper()
	return NewEventMetadataExtractor(NewLogClassifier(newTestDecoder(t), metrics.Nop{}))
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func packData(t *testing.T, ev abi.Event, values ...any) []byte {
	t.Helper()
	data, err := ev.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)
	return data
}

func ordersMatchedLog(t *testing.T, tx common.Hash, index uint, maker, taker common.Address, price int64) types.Log {
	t.Helper()
	contract, err := markets.OpenSea.Chains["ethereum"].ParseABI()
	require.NoError(t, err)
	ev := contract.Events["OrdersMatched"]
	return types.Log{
		Address:     wyvernContract,
		Topics:      []common.Hash{ev.ID, addressTopic(maker), addressTopic(taker), common.HexToHash("0x01")},
		Data:        packData(t, ev, [32]byte{1}, [32]byte{2}, big.NewInt(price)),
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func erc721TransferLog(tx common.Hash, index uint, from, to common.Address, tokenID int64) types.Log {
	return types.Log{
		Address:     nftContract,
		Topics:      []common.Hash{erc721ABI.Events["Transfer"].ID, addressTopic(from), addressTopic(to), common.BigToHash(big.NewInt(tokenID))},
		Data:        []byte{},
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func erc20TransferLog(t *testing.T, tx common.Hash, index uint, from, to common.Address, value int64) types.Log {
	ev := erc20ABI.Events["Transfer"]
	return types.Log{
		Address:     wethContract,
		Topics:      []common.Hash{ev.ID, addressTopic(from), addressTopic(to)},
		Data:        packData(t, ev, big.NewInt(value)),
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func erc1155SingleLog(t *testing.T, tx common.Hash, index uint, from, to common.Address, id int64) types.Log {
	ev := erc1155ABI.Events["TransferSingle"]
	return types.Log{
		Address:     nftContract,
		Topics:      []common.Hash{ev.ID, addressTopic(wyvernContract), addressTopic(from), addressTopic(to)},
		Data:        packData(t, ev, big.NewInt(id), big.NewInt(1)),
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func erc1155BatchLog(t *testing.T, tx common.Hash, index uint, from, to common.Address) types.Log {
	ev := erc1155ABI.Events["TransferBatch"]
	return types.Log{
		Address:     nftContract,
		Topics:      []common.Hash{ev.ID, addressTopic(wyvernContract), addressTopic(from), addressTopic(to)},
		Data:        packData(t, ev, []*big.Int{big.NewInt(1), big.NewInt(2)}, []*big.Int{big.NewInt(1), big.NewInt(1)}),
		BlockNumber: 14_200_000,
		TxHash:      tx,
		Index:       index,
	}
}

func unknownLog(tx common.Hash, index uint) types.Log {
	return types.Log{
		Address: common.HexToAddress("0x9999"),
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
		Data:    []byte{},
		TxHash:  tx,
		Index:   index,
	}
}

func saleEvent(t *testing.T, lg types.Log) ChainSaleEvent {
	t.Helper()
	ev, err := newTestDecoder(t).Decode("ethereum", lg)
	require.NoError(t, err)
	return ev
}

func receiptOf(tx common.Hash, logs ...types.Log) *types.Receipt {
	ptrs := make([]*types.Log, len(logs))
	for i := range logs {
		lg := logs[i]
		ptrs[i] = &lg
	}
	return &types.Receipt{TxHash: tx, Status: types.ReceiptStatusSuccessful, Logs: ptrs}
}
