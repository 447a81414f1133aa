package markets

import "github.com/ethereum/go-ethereum/common"

// Wyvern exchange v2, the contract OpenSea settled trades through before Seaport.
const wyvernExchangeABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "previousOwner", "type": "address"},
      {"indexed": true, "name": "newOwner", "type": "address"}
    ],
    "name": "OwnershipTransferred",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "name": "buyHash", "type": "bytes32"},
      {"indexed": false, "name": "sellHash", "type": "bytes32"},
      {"indexed": true, "name": "maker", "type": "address"},
      {"indexed": true, "name": "taker", "type": "address"},
      {"indexed": false, "name": "price", "type": "uint256"},
      {"indexed": true, "name": "metadata", "type": "bytes32"}
    ],
    "name": "OrdersMatched",
    "type": "event"
  }
]`

var OpenSea = MarketConfig{
	Marketplace: Opensea,
	Chains: map[string]ChainConfig{
		"ethereum": {
			ContractAddress:     common.HexToAddress("0x7f268357a8c2552623316e2562d90e642bb538e5"),
			ABI:                 wyvernExchangeABI,
			SaleEventName:       "OrdersMatched",
			DeploymentEventName: "OwnershipTransferred",
			DeployBlock:         14120913,
			PriceArgIndex:       4,
		},
	},
}
