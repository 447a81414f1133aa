package eth

import (
	"context"
	"fmt"

	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var CreateEthClient = createEthClient

// EthClient is the slice of the JSON-RPC surface the sales pipeline needs.
type EthClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

func createEthClient(chain string) (EthClient, error) {
	nodeUrl := config.Get().ChainUrls()[chain]
	if nodeUrl == "" {
		return nil, fmt.Errorf("failed to configure %s client - node url is not set", chain)
	}
	client, err := ethclient.Dial(nodeUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s client - %w", chain, err)
	}
	return client, nil
}
