package sales

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

type StandardType string

const (
	ERC20       StandardType = "ERC20"
	ERC721      StandardType = "ERC721"
	ERC1155     StandardType = "ERC1155"
	Marketplace StandardType = "Marketplace"
	Unknown     StandardType = "Unknown"
)

func (t StandardType) IsTransfer() bool {
	return t == ERC20 || t == ERC721 || t == ERC1155
}

type EventArg struct {
	Name  string
	Value any
}

// ChainSaleEvent is one decoded marketplace sale log.
type ChainSaleEvent struct {
	Chain string
	Name  string
	Log   types.Log
	Args  []EventArg
	Price *big.Int
}

func (e ChainSaleEvent) Arg(name string) (any, bool) {
	for _, a := range e.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

type BlockRange struct {
	StartBlock uint64 `json:"startBlock"`
	EndBlock   uint64 `json:"endBlock"`
}

// ChainEventsBatch is what the scanner yields per window. Receipts is nil
// when Events is empty.
type ChainEventsBatch struct {
	Chain    string
	Events   []ChainSaleEvent
	Range    BlockRange
	Receipts TxReceipts
}

type EventMetadata struct {
	ContractAddress *common.Address   `json:"contractAddress"`
	EventSignatures []string          `json:"eventSignatures"`
	Buyer           *common.Address   `json:"buyer"`
	Seller          *common.Address   `json:"seller"`
	TokenID         *big.Int          `json:"tokenID"`
	Price           *big.Int          `json:"price"`
	TransferData    map[string]string `json:"decodedTransferData"`
}

type TxReceiptWithMetadata struct {
	Receipt *types.Receipt  `json:"receipt"`
	Meta    []EventMetadata `json:"meta"`
}

type TxReceipts map[common.Hash]*TxReceiptWithMetadata

// MergeReceipts folds partial results into one map, concatenating meta of
// hashes that appear in more than one part.
func MergeReceipts(parts ...TxReceipts) TxReceipts {
	merged := make(TxReceipts)
	for _, part := range parts {
		for hash, r := range part {
			if existing, ok := merged[hash]; ok {
				existing.Meta = append(existing.Meta, r.Meta...)
				continue
			}
			merged[hash] = &TxReceiptWithMetadata{
				Receipt: r.Receipt,
				Meta:    append([]EventMetadata(nil), r.Meta...),
			}
		}
	}
	return merged
}

func formatArg(v any) string {
	switch val := v.(type) {
	case *big.Int:
		if val == nil {
			return ""
		}
		return val.String()
	case []*big.Int:
		parts := make([]string, len(val))
		for i, n := range val {
			parts[i] = n.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case common.Address:
		return strings.ToLower(val.Hex())
	case common.Hash:
		return val.Hex()
	case [32]byte:
		return hexutil.Encode(val[:])
	case []byte:
		return hexutil.Encode(val)
	default:
		return fmt.Sprint(val)
	}
}

func formatArgs(args map[string]any) map[string]string {
	if args == nil {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = formatArg(v)
	}
	return out
}
