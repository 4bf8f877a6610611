package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

type SwapConfig struct {
	// FeeCollector is the configured fee collector wallet. Empty selects
	// common.DefaultFeeCollector.
	FeeCollector string
	Network      string
	ExplorerURL  string

	NetworkFee decimal.Decimal // SOL
	Buffer     decimal.Decimal // SOL, rent for the receive accounts
	MaxSwapFee decimal.Decimal // SOL

	ConfirmTimeout  time.Duration
	PreparedSwapTTL time.Duration

	// Simulate dry-runs each prepared swap before the pool signs it.
	Simulate bool
}

func (c *SwapConfig) Key() string {
	return SWAP_CONFIG_KEY
}

func (c *SwapConfig) Load() error {
	var err error
	c.FeeCollector = common.GetEnvOrDefault("FEE_COLLECTOR_WALLET", "")
	c.Network = common.GetEnvOrDefault("SOLANA_NETWORK", common.DefaultNetwork)
	c.ExplorerURL = common.GetEnvOrDefault("EXPLORER_URL", common.DefaultExplorerURL)

	if c.NetworkFee, err = decimal.NewFromString(common.GetEnvOrDefault("NETWORK_FEE_SOL", "0.0005")); err != nil {
		return fmt.Errorf("NETWORK_FEE_SOL: %w", err)
	}
	if c.Buffer, err = decimal.NewFromString(common.GetEnvOrDefault("ACCOUNT_BUFFER_SOL", "0.002")); err != nil {
		return fmt.Errorf("ACCOUNT_BUFFER_SOL: %w", err)
	}
	if c.MaxSwapFee, err = decimal.NewFromString(common.GetEnvOrDefault("MAX_SWAP_FEE_SOL", "10")); err != nil {
		return fmt.Errorf("MAX_SWAP_FEE_SOL: %w", err)
	}

	c.ConfirmTimeout = common.GetEnvDurationOrDefault("CONFIRM_TIMEOUT", 60*time.Second)
	c.PreparedSwapTTL = common.GetEnvDurationOrDefault("PREPARED_SWAP_TTL", 90*time.Second)
	c.Simulate = common.GetEnvBoolOrDefault("SIMULATE_SWAPS", true)
	return nil
}

func (c *SwapConfig) Validate() error {
	switch c.Network {
	case "devnet", "mainnet-beta", "testnet", "localnet":
	default:
		return fmt.Errorf("invalid network %q: must be devnet, mainnet-beta, testnet or localnet", c.Network)
	}
	if c.NetworkFee.IsNegative() || c.Buffer.IsNegative() {
		return fmt.Errorf("network fee and buffer must be non-negative")
	}
	if !c.MaxSwapFee.IsPositive() {
		return fmt.Errorf("max swap fee must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm timeout must be positive")
	}
	return nil
}

// DefaultSwapConfig returns the devnet defaults without reading the environment.
func DefaultSwapConfig() *SwapConfig {
	return &SwapConfig{
		Network:         common.DefaultNetwork,
		ExplorerURL:     common.DefaultExplorerURL,
		NetworkFee:      decimal.RequireFromString("0.0005"),
		Buffer:          decimal.RequireFromString("0.002"),
		MaxSwapFee:      decimal.NewFromInt(10),
		ConfirmTimeout:  60 * time.Second,
		PreparedSwapTTL: 90 * time.Second,
		Simulate:        true,
	}
}
