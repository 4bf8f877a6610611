package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapConfig_Defaults(t *testing.T) {
	for _, k := range []string{"FEE_COLLECTOR_WALLET", "SOLANA_NETWORK", "NETWORK_FEE_SOL", "ACCOUNT_BUFFER_SOL", "MAX_SWAP_FEE_SOL", "CONFIRM_TIMEOUT", "PREPARED_SWAP_TTL", "SIMULATE_SWAPS"} {
		t.Setenv(k, "")
	}
	var c SwapConfig
	require.NoError(t, LoadAll(&c))

	def := DefaultSwapConfig()
	assert.Equal(t, def.Network, c.Network)
	assert.True(t, def.NetworkFee.Equal(c.NetworkFee))
	assert.True(t, def.Buffer.Equal(c.Buffer))
	assert.True(t, def.MaxSwapFee.Equal(c.MaxSwapFee))
	assert.Equal(t, 60*time.Second, c.ConfirmTimeout)
	assert.Equal(t, 90*time.Second, c.PreparedSwapTTL)
	assert.True(t, c.Simulate)
}

func TestSwapConfig_Env(t *testing.T) {
	t.Setenv("SOLANA_NETWORK", "mainnet-beta")
	t.Setenv("NETWORK_FEE_SOL", "0.001")
	t.Setenv("CONFIRM_TIMEOUT", "30s")
	t.Setenv("SIMULATE_SWAPS", "false")

	var c SwapConfig
	require.NoError(t, LoadAll(&c))
	assert.Equal(t, "mainnet-beta", c.Network)
	assert.True(t, decimal.RequireFromString("0.001").Equal(c.NetworkFee))
	assert.Equal(t, 30*time.Second, c.ConfirmTimeout)
	assert.False(t, c.Simulate)
}

func TestSwapConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown network", map[string]string{"SOLANA_NETWORK": "moonnet"}},
		{"unparseable fee", map[string]string{"NETWORK_FEE_SOL": "cheap"}},
		{"negative buffer", map[string]string{"ACCOUNT_BUFFER_SOL": "-0.1"}},
		{"zero max fee", map[string]string{"MAX_SWAP_FEE_SOL": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, LoadAll(&SwapConfig{}))
		})
	}
}

func TestGeneralConfig_ProdNeedsAdminKey(t *testing.T) {
	t.Setenv("ENV", ProdEnv)
	t.Setenv("ADMIN_API_KEY", "")
	assert.Error(t, LoadAll(&GeneralConfig{}))

	t.Setenv("ADMIN_API_KEY", "secret")
	c := &GeneralConfig{}
	require.NoError(t, LoadAll(c))
	assert.False(t, c.IsDevelopment())
}

func TestStoreAndSealConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		conf    Config
		wantErr bool
	}{
		{"bolt default", map[string]string{"STORE_DRIVER": ""}, &StoreConfig{}, false},
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres", "POSTGRES_DSN": ""}, &StoreConfig{}, true},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, &StoreConfig{}, true},
		{"aead short secret", map[string]string{"KEY_SEAL_MODE": "aead", "KEY_SEAL_SECRET": "short"}, &SealConfig{}, true},
		{"aead", map[string]string{"KEY_SEAL_MODE": "", "KEY_SEAL_SECRET": "0123456789abcdef0123456789abcdef"}, &SealConfig{}, false},
		{"legacy", map[string]string{"KEY_SEAL_MODE": "legacy", "KEY_SEAL_SECRET": ""}, &SealConfig{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := LoadAll(tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRPCConfig_DASFallsBackToRPC(t *testing.T) {
	t.Setenv("RPC_URL", "https://rpc.example")
	t.Setenv("DAS_URL", "")
	c := &RPCConfig{}
	require.NoError(t, LoadAll(c))
	assert.Equal(t, "https://rpc.example", c.DASUrl)

	t.Setenv("RPC_URL", "")
	assert.Error(t, LoadAll(&RPCConfig{}))
}
