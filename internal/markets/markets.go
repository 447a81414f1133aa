package markets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type Marketplace string

const (
	Opensea Marketplace = "opensea"
)

// ChainConfig describes one marketplace deployment on one chain.
type ChainConfig struct {
	ContractAddress     common.Address
	ABI                 string
	SaleEventName       string
	DeploymentEventName string
	// DeployBlock of zero means the deployment block is unknown and the
	// checkpoint is never floored.
	DeployBlock uint64
	// PriceArgIndex locates the price among the sale event's inputs when the
	// event has no input literally named "price".
	PriceArgIndex int
}

type MarketConfig struct {
	Marketplace Marketplace
	Chains      map[string]ChainConfig
}

// ChainNames returns configured chains in a stable order.
func (m MarketConfig) ChainNames() []string {
	names := make([]string, 0, len(m.Chains))
	for name := range m.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c ChainConfig) ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(c.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse marketplace abi: %w", err)
	}
	if _, ok := parsed.Events[c.SaleEventName]; !ok {
		return abi.ABI{}, fmt.Errorf("sale event %q not in marketplace abi", c.SaleEventName)
	}
	return parsed, nil
}

var registry = map[Marketplace]MarketConfig{
	Opensea: OpenSea,
}

func Lookup(name string) (MarketConfig, error) {
	m, ok := registry[Marketplace(strings.ToLower(name))]
	if !ok {
		return MarketConfig{}, fmt.Errorf("unknown marketplace %q", name)
	}
	return m, nil
}
