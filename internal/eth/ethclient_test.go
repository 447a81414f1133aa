package eth

import (
	"testing"

	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCreateEthClient_Success(t *testing.T) {
	originalConfig := config.Get
	defer func() { config.Get = originalConfig }()

	config.Get = func() config.Config {
		return config.Config{
			EthereumNodeUrl: "http://localhost:8545",
		}
	}

	client, err := createEthClient("ethereum")
	assert.NoError(t, err)
	assert.NotNil(t, client)
	client.Close()
}

func TestCreateEthClient_SecondaryChain(t *testing.T) {
	originalConfig := config.Get
	defer func() { config.Get = originalConfig }()

	config.Get = func() config.Config {
		return config.Config{
			ChainNodeUrls: "polygon=http://localhost:8546",
		}
	}

	client, err := createEthClient("polygon")
	assert.NoError(t, err)
	assert.NotNil(t, client)
	client.Close()
}

func TestCreateEthClient_EmptyURL(t *testing.T) {
	originalConfig := config.Get
	defer func() { config.Get = originalConfig }()

	config.Get = func() config.Config {
		return config.Config{}
	}

	client, err := createEthClient("ethereum")
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "node url is not set")
}

func TestCreateEthClient_InvalidURL(t *testing.T) {
	originalConfig := config.Get
	defer func() { config.Get = originalConfig }()

	config.Get = func() config.Config {
		return config.Config{
			EthereumNodeUrl: "invalid://url",
		}
	}

	client, err := createEthClient("ethereum")
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to configure ethereum client")
}
