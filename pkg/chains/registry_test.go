package chains

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentGatePay/TX/pkg/constants"
)

func TestRegistrySupportedNetworks(t *testing.T) {
	registry := NewRegistry(nil)

	supported := registry.SupportedNetworks()
	assert.Equal(t, []string{"arbitrum", "base", "ethereum", "polygon"}, supported)

	for _, network := range supported {
		assert.True(t, registry.IsSupported(network))
	}
	assert.False(t, registry.IsSupported("solana"))
}

func TestRegistryGetUnknownNetwork(t *testing.T) {
	registry := NewRegistry(nil)

	chain, err := registry.Get("optimism")
	assert.Nil(t, chain)
	require.Error(t, err)

	var unsupported *UnsupportedNetworkError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "optimism", unsupported.Network)
	assert.Equal(t, registry.SupportedNetworks(), unsupported.Supported)
}

func TestRegistryRPCOverrides(t *testing.T) {
	registry := NewRegistry(map[string]string{
		constants.NetworkBase: "https://rpc-one.example, https://rpc-two.example",
	})

	base, err := registry.Get(constants.NetworkBase)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc-one.example", "https://rpc-two.example"}, base.RPCEndpoints)

	// Networks without overrides keep the defaults
	polygon, err := registry.Get(constants.NetworkPolygon)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultRPCEndpoints[constants.NetworkPolygon], polygon.RPCEndpoints)
}

func TestRegistryTokenAddress(t *testing.T) {
	registry := NewRegistry(nil)

	tests := []struct {
		name          string
		symbol        string
		network       string
		expected      string
		expectedError string
	}{
		{
			name:     "USDC on base",
			symbol:   constants.TokenUSDC,
			network:  constants.NetworkBase,
			expected: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		{
			name:     "DAI on ethereum",
			symbol:   constants.TokenDAI,
			network:  constants.NetworkEthereum,
			expected: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		},
		{
			name:          "USDT is not deployed on base",
			symbol:        constants.TokenUSDT,
			network:       constants.NetworkBase,
			expectedError: "USDT not supported on base",
		},
		{
			name:          "unknown token",
			symbol:        "PEPE",
			network:       constants.NetworkBase,
			expectedError: "unsupported token: PEPE",
		},
		{
			name:          "unknown network fails before token lookup",
			symbol:        constants.TokenUSDC,
			network:       "tron",
			expectedError: "unsupported chain: tron",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := registry.TokenAddress(tt.symbol, tt.network)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(tt.expected), addr)
		})
	}
}

func TestRegistryTokenByAddress(t *testing.T) {
	registry := NewRegistry(nil)

	usdcOnBase := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	token, ok := registry.TokenByAddress(constants.NetworkBase, usdcOnBase)
	require.True(t, ok)
	assert.Equal(t, constants.TokenUSDC, token.Symbol)
	assert.Equal(t, 6, token.Decimals)

	// Same contract on the wrong network does not match
	_, ok = registry.TokenByAddress(constants.NetworkPolygon, usdcOnBase)
	assert.False(t, ok)

	_, ok = registry.TokenByAddress(constants.NetworkBase, common.HexToAddress("0x1111111111111111111111111111111111111111"))
	assert.False(t, ok)
}

func TestRegistryExplorerTxURL(t *testing.T) {
	registry := NewRegistry(nil)

	base, err := registry.Get(constants.NetworkBase)
	require.NoError(t, err)
	assert.Equal(t, "https://basescan.org/tx/0xabc", base.ExplorerTxURL("0xabc"))
}
