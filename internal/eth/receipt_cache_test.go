package eth

import (
	"math/big"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestInMemoryDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).
		WithLogger(nil) // disable logs for test cleanliness

	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func sampleReceipt(txHash common.Hash) *types.Receipt {
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		TxHash:            txHash,
		BlockNumber:       big.NewInt(14120913),
		Logs: []*types.Log{{
			Address: common.HexToAddress("0x7f268357a8c2552623316e2562d90e642bb538e5"),
			Topics:  []common.Hash{common.HexToHash("0x01")},
			Data:    []byte{0x02},
			TxHash:  txHash,
			Index:   3,
		}},
	}
}

func TestReceiptCache_Miss(t *testing.T) {
	cache := NewReceiptCache(setupTestInMemoryDB(t))

	receipt, found, err := cache.GetReceipt("ethereum", common.HexToHash("0xabc"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, receipt)
}

func TestReceiptCache_PutAndGet(t *testing.T) {
	cache := NewReceiptCache(setupTestInMemoryDB(t))
	txHash := common.HexToHash("0xabc")

	require.NoError(t, cache.PutReceipt("ethereum", sampleReceipt(txHash)))

	receipt, found, err := cache.GetReceipt("ethereum", txHash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, txHash, receipt.TxHash)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, uint(3), receipt.Logs[0].Index)
	assert.Equal(t, []byte{0x02}, receipt.Logs[0].Data)
}

func TestReceiptCache_KeyedByChain(t *testing.T) {
	cache := NewReceiptCache(setupTestInMemoryDB(t))
	txHash := common.HexToHash("0xabc")

	require.NoError(t, cache.PutReceipt("ethereum", sampleReceipt(txHash)))

	_, found, err := cache.GetReceipt("polygon", txHash)
	require.NoError(t, err)
	assert.False(t, found)
}
