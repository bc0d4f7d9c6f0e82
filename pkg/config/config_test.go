package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentGatePay/TX/pkg/constants"
)

const testKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func TestLoadRequiresPrivateKey(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")

	cfg, err := Load(nil)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "PRIVATE_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("PORT", "")
	t.Setenv("COMMISSION_RATE_BIPS", "")
	t.Setenv("ALLOW_UNAUTHENTICATED", "")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, int64(constants.DefaultCommissionRateBips), cfg.CommissionRateBips)
	assert.False(t, cfg.AllowUnauthenticated)
	assert.False(t, cfg.GatewayConfigured())
	assert.False(t, cfg.CommissionWalletConfigured())
	assert.Empty(t, cfg.RPCOverrides)
}

func TestLoadFullConfiguration(t *testing.T) {
	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("PORT", "8080")
	t.Setenv("AUTH_TOKEN", "bearer-secret")
	t.Setenv("GATEWAY_PRIVATE_KEY", testKey)
	t.Setenv("GATEWAY_WALLET", "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	t.Setenv("COMMISSION_WALLET", "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC")
	t.Setenv("COMMISSION_RATE_BIPS", "75")
	t.Setenv("BASE_RPC", "https://base.example")
	t.Setenv("ETHEREUM_RPC", "https://eth-one.example,https://eth-two.example")
	t.Setenv("HUB_URL", "https://hub.example")
	t.Setenv("OWNER_API_KEY", "agp_owner")
	t.Setenv("ALLOW_UNAUTHENTICATED", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "bearer-secret", cfg.AuthToken)
	assert.True(t, cfg.GatewayConfigured())
	assert.Equal(t, common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"), cfg.GatewayWallet)
	assert.True(t, cfg.CommissionWalletConfigured())
	assert.Equal(t, int64(75), cfg.CommissionRateBips)
	assert.Equal(t, map[string]string{
		constants.NetworkBase:     "https://base.example",
		constants.NetworkEthereum: "https://eth-one.example,https://eth-two.example",
	}, cfg.RPCOverrides)
	assert.Equal(t, "https://hub.example", cfg.HubURL)
	assert.Equal(t, "agp_owner", cfg.OwnerAPIKey)
	assert.True(t, cfg.AllowUnauthenticated)
}

func TestLoadRejectsBadCommissionRate(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-5", "10000", "10001"} {
		t.Setenv("PRIVATE_KEY", testKey)
		t.Setenv("COMMISSION_RATE_BIPS", raw)

		_, err := Load(nil)
		assert.ErrorContains(t, err, "COMMISSION_RATE_BIPS", "rate %q should be rejected", raw)
	}
}

func TestLoadIgnoresMalformedAddresses(t *testing.T) {
	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("GATEWAY_WALLET", "not-an-address")
	t.Setenv("COMMISSION_WALLET", "0x123")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, common.Address{}, cfg.GatewayWallet)
	assert.False(t, cfg.CommissionWalletConfigured())
}
