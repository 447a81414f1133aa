package sales

import (
	"fmt"
	"math/big"

	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type chainInterface struct {
	config   markets.ChainConfig
	contract abi.ABI
	sale     abi.Event
}

// SaleEventDecoder turns raw marketplace logs into ChainSaleEvents.
type SaleEventDecoder struct {
	marketplace markets.Marketplace
	chains      map[string]chainInterface
}

func NewSaleEventDecoder(market markets.MarketConfig) (*SaleEventDecoder, error) {
	d := &SaleEventDecoder{
		marketplace: market.Marketplace,
		chains:      make(map[string]chainInterface, len(market.Chains)),
	}
	for chain, cfg := range market.Chains {
		contract, err := cfg.ParseABI()
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", market.Marketplace, chain, err)
		}
		d.chains[chain] = chainInterface{
			config:   cfg,
			contract: contract,
			sale:     contract.Events[cfg.SaleEventName],
		}
	}
	return d, nil
}

func (d *SaleEventDecoder) Marketplace() markets.Marketplace {
	return d.marketplace
}

func (d *SaleEventDecoder) Chain(chain string) (markets.ChainConfig, bool) {
	ci, ok := d.chains[chain]
	return ci.config, ok
}

func (d *SaleEventDecoder) contract(chain string) (abi.ABI, bool) {
	ci, ok := d.chains[chain]
	return ci.contract, ok
}

// FilterQuery selects the sale event of the chain's marketplace contract in r.
func (d *SaleEventDecoder) FilterQuery(chain string, r BlockRange) (ethereum.FilterQuery, error) {
	ci, ok := d.chains[chain]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("no %s interface for chain %s", d.marketplace, chain)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.StartBlock),
		ToBlock:   new(big.Int).SetUint64(r.EndBlock),
		Addresses: []common.Address{ci.config.ContractAddress},
		Topics:    [][]common.Hash{{ci.sale.ID}},
	}, nil
}

func (d *SaleEventDecoder) Decode(chain string, lg types.Log) (ChainSaleEvent, error) {
	ci, ok := d.chains[chain]
	if !ok {
		return ChainSaleEvent{}, fmt.Errorf("no %s interface for chain %s", d.marketplace, chain)
	}
	ev, err := matchEvent(ci.contract, lg)
	if err != nil {
		return ChainSaleEvent{}, fmt.Errorf("decode sale log %d of %s: %w", lg.Index, lg.TxHash.Hex(), err)
	}
	if ev.ID != ci.sale.ID {
		return ChainSaleEvent{}, fmt.Errorf("log %d of %s is %s, not %s", lg.Index, lg.TxHash.Hex(), ev.Name, ci.sale.Name)
	}
	decoded, err := decodeArgs(ev, lg)
	if err != nil {
		return ChainSaleEvent{}, fmt.Errorf("decode sale log %d of %s: %w", lg.Index, lg.TxHash.Hex(), err)
	}

	args := make([]EventArg, len(ev.Inputs))
	for i, in := range ev.Inputs {
		args[i] = EventArg{Name: in.Name, Value: decoded[in.Name]}
	}
	return ChainSaleEvent{
		Chain: chain,
		Name:  ev.Name,
		Log:   lg,
		Args:  args,
		Price: priceOf(args, ci.config.PriceArgIndex),
	}, nil
}

func priceOf(args []EventArg, fallbackIndex int) *big.Int {
	for _, a := range args {
		if a.Name != "price" {
			continue
		}
		if p, ok := a.Value.(*big.Int); ok && p != nil {
			return p
		}
	}
	if fallbackIndex >= 0 && fallbackIndex < len(args) {
		if p, ok := args[fallbackIndex].Value.(*big.Int); ok {
			return p
		}
	}
	return nil
}
