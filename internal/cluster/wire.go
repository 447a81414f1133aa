package cluster

import (
	"fmt"

	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	PingPath     = "/api/v1/cluster/ping"
	DispatchPath = "/api/v1/cluster/dispatch"
)

type CommandKind string

const FetchReceiptsKind CommandKind = "fetchReceipts"

// DispatchRequest carries raw logs; the worker decodes them again against
// its own marketplace configuration.
type DispatchRequest struct {
	Command CommandKind `json:"command"`
	Chain   string      `json:"chain"`
	Logs    []types.Log `json:"logs"`
}

type DispatchResponse struct {
	Receipts sales.TxReceipts `json:"receipts"`
}

type PingResponse struct {
	WorkerID string `json:"workerId"`
	Status   string `json:"status"`
}

func EncodeCommand(cmd Command) (DispatchRequest, error) {
	switch c := cmd.(type) {
	case FetchReceiptsCommand:
		logs := make([]types.Log, len(c.Events))
		for i, ev := range c.Events {
			logs[i] = ev.Log
		}
		return DispatchRequest{Command: FetchReceiptsKind, Chain: c.Chain, Logs: logs}, nil
	default:
		return DispatchRequest{}, fmt.Errorf("unsupported command %T", cmd)
	}
}

func DecodeCommand(decoder *sales.SaleEventDecoder, req DispatchRequest) (Command, error) {
	switch req.Command {
	case FetchReceiptsKind:
		events := make([]sales.ChainSaleEvent, len(req.Logs))
		for i, lg := range req.Logs {
			ev, err := decoder.Decode(req.Chain, lg)
			if err != nil {
				return nil, err
			}
			events[i] = ev
		}
		return FetchReceiptsCommand{Chain: req.Chain, Events: events}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
}

func EncodeResult(res Result) (DispatchResponse, error) {
	switch r := res.(type) {
	case FetchReceiptsResult:
		return DispatchResponse{Receipts: r.Receipts}, nil
	default:
		return DispatchResponse{}, fmt.Errorf("unsupported result %T", res)
	}
}
