package cluster

import (
	"context"
	"fmt"

	"github.com/6529-Collections/nftsales/internal/sales"
)

// Command is a unit of work a worker can run. The set is closed; Execute
// switches over every variant.
type Command interface {
	command()
}

type FetchReceiptsCommand struct {
	Chain  string
	Events []sales.ChainSaleEvent
}

func (FetchReceiptsCommand) command() {}

type Result interface {
	result()
}

type FetchReceiptsResult struct {
	Receipts sales.TxReceipts
}

func (FetchReceiptsResult) result() {}

// Executor runs commands in-process. Both LocalWorker and the worker HTTP
// endpoint go through it.
type Executor struct {
	fetcher *sales.ReceiptFetcher
}

func NewExecutor(fetcher *sales.ReceiptFetcher) *Executor {
	return &Executor{fetcher: fetcher}
}

func (e *Executor) Decoder() *sales.SaleEventDecoder {
	return e.fetcher.Decoder()
}

func (e *Executor) Execute(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case FetchReceiptsCommand:
		receipts, err := e.fetcher.FetchReceipts(ctx, c.Chain, c.Events)
		if err != nil {
			return nil, err
		}
		return FetchReceiptsResult{Receipts: receipts}, nil
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}
