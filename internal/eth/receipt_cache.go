package eth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptCache keeps receipts that were already fetched so a re-scan of a
// range after a crash does not hit the node again.
type ReceiptCache interface {
	GetReceipt(chain string, txHash common.Hash) (*types.Receipt, bool, error)
	PutReceipt(chain string, receipt *types.Receipt) error
}

func NewReceiptCache(db *badger.DB) ReceiptCache {
	return &BadgerReceiptCache{db: db}
}

type BadgerReceiptCache struct {
	db *badger.DB
}

const receiptPrefix = "sales:receipt:"

func (c *BadgerReceiptCache) GetReceipt(chain string, txHash common.Hash) (*types.Receipt, bool, error) {
	var receipt *types.Receipt
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(receiptKey(chain, txHash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			receipt = new(types.Receipt)
			return json.Unmarshal(val, receipt)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached receipt %s: %w", txHash.Hex(), err)
	}
	return receipt, true, nil
}

func (c *BadgerReceiptCache) PutReceipt(chain string, receipt *types.Receipt) error {
	val, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt %s: %w", receipt.TxHash.Hex(), err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(receiptKey(chain, receipt.TxHash), val)
	})
}

func receiptKey(chain string, txHash common.Hash) []byte {
	key := make([]byte, 0, len(receiptPrefix)+len(chain)+1+common.HashLength)
	key = append(key, receiptPrefix...)
	key = append(key, chain...)
	key = append(key, ':')
	return append(key, txHash[:]...)
}
