package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type SwapIntent struct {
	UserWallet   string
	UserNFTMint  string
	PoolNFTMint  string
	CollectionID string
}

type SwapState uint8

const (
	SwapStateIdle SwapState = iota
	SwapStateValidating
	SwapStateBuilding
	SwapStateSigning
	SwapStateBroadcasting
	SwapStateConfirming
	SwapStateVerifyingFee
	SwapStateCompleted
	SwapStateFailed
)

func (s SwapState) String() string {
	switch s {
	case SwapStateIdle:
		return "Idle"
	case SwapStateValidating:
		return "Validating"
	case SwapStateBuilding:
		return "Building"
	case SwapStateSigning:
		return "Signing"
	case SwapStateBroadcasting:
		return "Broadcasting"
	case SwapStateConfirming:
		return "Confirming"
	case SwapStateVerifyingFee:
		return "VerifyingFee"
	case SwapStateCompleted:
		return "Completed"
	case SwapStateFailed:
		return "Failed"
	default:
		return "UNKNOWN"
	}
}

// SwapReceipt is the durable outcome of a completed atomic swap.
type SwapReceipt struct {
	Signature    solana.Signature
	ExplorerURL  string
	Instructions int
	FeeLamports  uint64
	FeeSOL       decimal.Decimal
	FeeCollector solana.PublicKey
	UserNFTMint  string
	PoolNFTMint  string
	CollectionID string
	Network      string
	FeeVerified  bool
	Slot         uint64
	CompletedAt  time.Time
}

// BalanceCheck is the advisory balance pre-check shown before a swap.
type BalanceCheck struct {
	Valid      bool
	Balance    decimal.Decimal
	Required   decimal.Decimal
	SwapFee    decimal.Decimal
	NetworkFee decimal.Decimal
	Buffer     decimal.Decimal
	Message    string
}

type TransactionStatus struct {
	Exists      bool
	Success     bool
	Signature   string
	Slot        uint64
	BlockTime   *time.Time
	FeeLamports uint64
	ExplorerURL string
	Error       string
}
