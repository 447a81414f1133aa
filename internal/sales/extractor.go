package sales

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ERC20PriceResolver may derive a sale price from the ERC-20 transfers
// around a sale. Returning nil keeps the event's own price.
type ERC20PriceResolver func(event ChainSaleEvent, erc20Logs []ParsedLog) *big.Int

type EventMetadataExtractor struct {
	classifier    *LogClassifier
	PriceResolver ERC20PriceResolver
}

func NewEventMetadataExtractor(classifier *LogClassifier) *EventMetadataExtractor {
	return &EventMetadataExtractor{classifier: classifier}
}

type transferGroups struct {
	signatures []string
	erc20      []ParsedLog
	erc721     []ParsedLog
	erc1155    []ParsedLog
}

// Extract never fails: whatever it cannot classify is left unset and the
// price falls back to the event's own price.
func (x *EventMetadataExtractor) Extract(event ChainSaleEvent, logs []*types.Log) (meta EventMetadata) {
	meta = EventMetadata{
		EventSignatures: []string{},
		Price:           event.Price,
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Retrieving event metadata failed",
				zap.String("chain", event.Chain),
				zap.String("txHash", event.Log.TxHash.Hex()),
				zap.Uint("logIndex", event.Log.Index),
				zap.Int("receiptLogs", len(logs)),
				zap.Any("metadata", meta),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	parsed := make([]ParsedLog, 0, len(logs))
	for _, lg := range logs {
		if lg == nil {
			continue
		}
		parsed = append(parsed, x.classifier.Classify(event.Chain, *lg))
	}

	idx := eventIndex(event, parsed)
	if idx < 0 {
		zap.L().Warn("Sale event not found in receipt logs",
			zap.String("txHash", event.Log.TxHash.Hex()),
			zap.Uint("logIndex", event.Log.Index))
		return meta
	}

	groups := reduceParsedLogs(relevantLogs(parsed, idx))
	meta.EventSignatures = groups.signatures

	if len(groups.erc20) > 0 && x.PriceResolver != nil {
		if price := x.PriceResolver(event, groups.erc20); price != nil {
			meta.Price = price
		}
	}

	zap.L().Debug("Found event index",
		zap.Int("idx", idx),
		zap.Int("receiptLogs", len(parsed)),
		zap.String("txHash", event.Log.TxHash.Hex()),
		zap.Int("erc721", len(groups.erc721)),
		zap.Int("erc1155", len(groups.erc1155)),
		zap.Int("erc20", len(groups.erc20)))

	if len(groups.erc721) > 0 {
		if transfer, ok := findByName(groups.erc721, "Transfer"); ok {
			topics := transfer.Raw.Topics
			seller := common.BytesToAddress(topics[1].Bytes())
			buyer := common.BytesToAddress(topics[2].Bytes())
			contract := transfer.Raw.Address
			meta.Seller = &seller
			meta.Buyer = &buyer
			meta.TokenID = new(big.Int).SetBytes(topics[3].Bytes())
			meta.ContractAddress = &contract
			meta.TransferData = formatArgs(transfer.Args)
			return meta
		}
	} else if len(groups.erc1155) > 0 {
		if transfer, ok := findByName(groups.erc1155, "TransferSingle"); ok {
			contract := transfer.Raw.Address
			meta.ContractAddress = &contract
			meta.TransferData = formatArgs(transfer.Args)
			if from, ok := transfer.Args["from"].(common.Address); ok {
				meta.Seller = &from
			}
			if to, ok := transfer.Args["to"].(common.Address); ok {
				meta.Buyer = &to
			}
			return meta
		}
		if _, ok := findByName(groups.erc1155, "TransferBatch"); ok {
			zap.L().Warn("ERC1155 TransferBatch sale left without buyer and seller",
				zap.String("txHash", event.Log.TxHash.Hex()),
				zap.Uint("logIndex", event.Log.Index))
			return meta
		}
	}

	zap.L().Warn("Event is NON_STANDARD",
		zap.Int("eventIndex", idx),
		zap.String("txHash", event.Log.TxHash.Hex()),
		zap.Uint("logIndex", event.Log.Index))
	return meta
}

// eventIndex finds the event's own log. The search starts at the log with
// the event's index and walks back, so with several sales in one
// transaction each one resolves to itself rather than to the last sale.
func eventIndex(event ChainSaleEvent, parsed []ParsedLog) int {
	if len(event.Log.Topics) == 0 {
		return -1
	}
	start := len(parsed) - 1
	for i, p := range parsed {
		if p.Raw.Index == event.Log.Index {
			start = i
			break
		}
	}
	for i := start; i >= 0; i-- {
		topics := parsed[i].Raw.Topics
		if len(topics) > 0 && topics[0] == event.Log.Topics[0] {
			return i
		}
	}
	return -1
}

// relevantLogs collects the contiguous transfer logs just before the event.
// Any other log ends the run, so transfers of an earlier sale in the same
// transaction are not picked up.
func relevantLogs(parsed []ParsedLog, eventIdx int) []ParsedLog {
	if len(parsed) == 1 {
		return nil
	}
	start := eventIdx
	for start > 0 && parsed[start-1].Type.IsTransfer() {
		start--
	}
	return parsed[start:eventIdx]
}

func reduceParsedLogs(logs []ParsedLog) transferGroups {
	groups := transferGroups{signatures: make([]string, 0, len(logs))}
	for _, l := range logs {
		if l.Event != nil {
			groups.signatures = append(groups.signatures, l.Event.Sig)
		}
		switch l.Type {
		case ERC721:
			groups.erc721 = append(groups.erc721, l)
		case ERC1155:
			groups.erc1155 = append(groups.erc1155, l)
		case ERC20:
			groups.erc20 = append(groups.erc20, l)
		}
	}
	return groups
}

func findByName(logs []ParsedLog, name string) (ParsedLog, bool) {
	for _, l := range logs {
		if l.Name() == name {
			return l, true
		}
	}
	return ParsedLog{}, false
}
