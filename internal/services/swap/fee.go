package swap

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	DefaultNetworkFee = decimal.RequireFromString("0.0005")
	DefaultBuffer     = decimal.RequireFromString("0.002")
	DefaultMaxSwapFee = decimal.NewFromInt(10)

	// SuspiciousBalance is the balance above which a wallet read is audited.
	SuspiciousBalance = decimal.NewFromInt(1_000_000)
)

// FeeLamports converts a SOL fee to lamports, rounding down.
func FeeLamports(fee decimal.Decimal) uint64 {
	if !fee.IsPositive() {
		return 0
	}
	return fee.Shift(9).Floor().BigInt().Uint64()
}

// FeePolicy holds the constants shared by the balance gate and the advisory
// pre-check.
type FeePolicy struct {
	NetworkFee decimal.Decimal
	Buffer     decimal.Decimal
	MaxSwapFee decimal.Decimal
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{NetworkFee: DefaultNetworkFee, Buffer: DefaultBuffer, MaxSwapFee: DefaultMaxSwapFee}
}

func (p FeePolicy) ValidateSwapFee(fee decimal.Decimal) error {
	if fee.IsNegative() || fee.GreaterThan(p.MaxSwapFee) {
		return newError(ErrInvalidSwapFee, fmt.Sprintf("Invalid swap fee configuration: %s SOL is outside [0, %s]", fee, p.MaxSwapFee), nil)
	}
	return nil
}

// Required is the balance a wallet needs to pay fee and network costs.
func (p FeePolicy) Required(fee decimal.Decimal) decimal.Decimal {
	return fee.Add(p.NetworkFee).Add(p.Buffer)
}

// Sufficient reports balance >= Required(fee).
func (p FeePolicy) Sufficient(balance, fee decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(p.Required(fee))
}

func (p FeePolicy) balanceMessage(balance, fee decimal.Decimal) string {
	if p.Sufficient(balance, fee) {
		return "Sufficient balance for atomic swap and fees"
	}
	return fmt.Sprintf("Insufficient balance. Need %s SOL total (%s swap fee + %s network fee + %s buffer), have %s SOL",
		p.Required(fee).StringFixed(4), fee, p.NetworkFee, p.Buffer, balance.StringFixed(4))
}
