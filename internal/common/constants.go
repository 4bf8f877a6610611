// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.TokenProgramID
	ATAProgramID    = solana.SPLAssociatedTokenAccountProgramID
	SystemProgramID = solana.SystemProgramID

	// DefaultFeeCollector receives swap fees when no valid collector is configured.
	DefaultFeeCollector = solana.MustPublicKeyFromBase58("J1Fmahkhu93MFojv3Ycq31baKCkZ7ctVLq8zm3gFF3M")
)

const (
	LamportsPerSOL = 1_000_000_000

	// MaxTransactionSize is the packet limit for a serialized legacy transaction.
	MaxTransactionSize = 1232

	DefaultExplorerURL = "https://explorer.solana.com"
	DefaultNetwork     = "devnet"

	MaxCollectionIDLength = 32
)
