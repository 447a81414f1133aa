package markets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSeaConfig(t *testing.T) {
	chain, ok := OpenSea.Chains["ethereum"]
	require.True(t, ok)
	assert.Equal(t, uint64(14120913), chain.DeployBlock)

	parsed, err := chain.ParseABI()
	require.NoError(t, err)

	event := parsed.Events[chain.SaleEventName]
	assert.Equal(t, "price", event.Inputs[chain.PriceArgIndex].Name)
	assert.Equal(t, "OrdersMatched(bytes32,bytes32,address,address,uint256,bytes32)", event.Sig)
}

func TestParseABI_MissingSaleEvent(t *testing.T) {
	chain := OpenSea.Chains["ethereum"]
	chain.SaleEventName = "OrderFulfilled"

	_, err := chain.ParseABI()
	assert.ErrorContains(t, err, "OrderFulfilled")
}

func TestParseABI_InvalidJSON(t *testing.T) {
	chain := ChainConfig{ABI: "not json", SaleEventName: "X"}

	_, err := chain.ParseABI()
	assert.ErrorContains(t, err, "parse marketplace abi")
}

func TestLookup(t *testing.T) {
	m, err := Lookup("OpenSea")
	require.NoError(t, err)
	assert.Equal(t, Opensea, m.Marketplace)
	assert.Equal(t, []string{"ethereum"}, m.ChainNames())

	_, err = Lookup("blur")
	assert.Error(t, err)
}
