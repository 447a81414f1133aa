package sales

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var erc721ABI, erc1155ABI, erc20ABI abi.ABI

func init() {
	erc721ABI = mustParseABI("ERC721", `[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "from",    "type": "address"},
            {"indexed": true, "name": "to",      "type": "address"},
            {"indexed": true, "name": "tokenId", "type": "uint256"}
        ],
        "name": "Transfer",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "owner",    "type": "address"},
            {"indexed": true, "name": "approved", "type": "address"},
            {"indexed": true, "name": "tokenId",  "type": "uint256"}
        ],
        "name": "Approval",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true,  "name": "owner",    "type": "address"},
            {"indexed": true,  "name": "operator", "type": "address"},
            {"indexed": false, "name": "approved", "type": "bool"}
        ],
        "name": "ApprovalForAll",
        "type": "event"
    }
	]`)

	erc1155ABI = mustParseABI("ERC1155", `[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "operator", "type": "address"},
            {"indexed": true, "name": "from",     "type": "address"},
            {"indexed": true, "name": "to",       "type": "address"},
            {"indexed": false,"name": "id",       "type": "uint256"},
            {"indexed": false,"name": "value",    "type": "uint256"}
        ],
        "name": "TransferSingle",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true, "name": "operator", "type": "address"},
            {"indexed": true, "name": "from",     "type": "address"},
            {"indexed": true, "name": "to",       "type": "address"},
            {"indexed": false,"name": "ids",      "type": "uint256[]"},
            {"indexed": false,"name": "values",   "type": "uint256[]"}
        ],
        "name": "TransferBatch",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": false, "name": "value", "type": "string"},
            {"indexed": true,  "name": "id",    "type": "uint256"}
        ],
        "name": "URI",
        "type": "event"
    }
	]`)

	erc20ABI = mustParseABI("ERC20", `[
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true,  "name": "from",  "type": "address"},
            {"indexed": true,  "name": "to",    "type": "address"},
            {"indexed": false, "name": "value", "type": "uint256"}
        ],
        "name": "Transfer",
        "type": "event"
    },
    {
        "anonymous": false,
        "inputs": [
            {"indexed": true,  "name": "owner",   "type": "address"},
            {"indexed": true,  "name": "spender", "type": "address"},
            {"indexed": false, "name": "value",   "type": "uint256"}
        ],
        "name": "Approval",
        "type": "event"
    }
	]`)
}

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("failed to parse " + name + " ABI")
	}
	return parsed
}
