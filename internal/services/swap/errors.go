package swap

import (
	"errors"
	"strings"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
)

type Kind string

const (
	KindInvalidAddress             Kind = "INVALID_ADDRESS"
	KindPoolNotFound               Kind = "POOL_NOT_FOUND"
	KindPoolInactive               Kind = "POOL_INACTIVE"
	KindInvalidSwapFee             Kind = "INVALID_SWAP_FEE"
	KindCapabilityAbsent           Kind = "POOL_WALLET_ACCESS_DENIED"
	KindAssetNotFound              Kind = "NFT_NOT_FOUND"
	KindCollectionMismatch         Kind = "COLLECTION_MISMATCH"
	KindOwnershipMismatch          Kind = "OWNERSHIP_VERIFICATION_FAILED"
	KindInsufficientBalance        Kind = "INSUFFICIENT_FUNDS"
	KindKeyMaterialMalformed       Kind = "KEY_MATERIAL_MALFORMED"
	KindTransactionTooLarge        Kind = "TRANSACTION_SIZE_EXCEEDED"
	KindSigningUnsupported         Kind = "WALLET_SIGNING_NOT_SUPPORTED"
	KindUserRejected               Kind = "USER_REJECTED_TRANSACTION"
	KindNetworkOrBlockhashError    Kind = "NETWORK_ERROR"
	KindTransactionExecutionFailed Kind = "TRANSACTION_EXECUTION_FAILED"
	KindConfirmationTimeout        Kind = "CONFIRMATION_TIMEOUT"
	KindFeeVerificationFailed      Kind = "FEE_VERIFICATION_FAILED"
	KindUnknown                    Kind = "UNKNOWN_ERROR"
)

const errorPrefix = "ATOMIC SWAP FAILED: "

// SwapError is the single error type the swap pipeline returns. Sentinels
// match any SwapError of the same Kind under errors.Is.
type SwapError struct {
	Kind    Kind
	Message string
	Err     error

	// Signature is set once the transaction has been broadcast, so callers
	// can re-query it after a timeout.
	Signature string
}

func (e *SwapError) Error() string {
	return errorPrefix + e.Message
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

func (e *SwapError) Is(target error) bool {
	t, ok := target.(*SwapError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidAddress             = &SwapError{Kind: KindInvalidAddress, Message: "Invalid address"}
	ErrPoolNotFound               = &SwapError{Kind: KindPoolNotFound, Message: "Pool not found for collection"}
	ErrPoolInactive               = &SwapError{Kind: KindPoolInactive, Message: "Pool is not active"}
	ErrInvalidSwapFee             = &SwapError{Kind: KindInvalidSwapFee, Message: "Invalid swap fee configuration"}
	ErrCapabilityAbsent           = &SwapError{Kind: KindCapabilityAbsent, Message: "Pool wallet private key not found. Both NFTs must be exchanged simultaneously, but the pool cannot authorize the transfer of its NFT"}
	ErrAssetNotFound              = &SwapError{Kind: KindAssetNotFound, Message: "NFT not found or invalid"}
	ErrCollectionMismatch         = &SwapError{Kind: KindCollectionMismatch, Message: "Both NFTs must be from the same verified collection"}
	ErrOwnershipMismatch          = &SwapError{Kind: KindOwnershipMismatch, Message: "NFT ownership verification failed"}
	ErrInsufficientBalance        = &SwapError{Kind: KindInsufficientBalance, Message: "Insufficient SOL balance for transaction fees and swap fee"}
	ErrKeyMaterialMalformed       = &SwapError{Kind: KindKeyMaterialMalformed, Message: "Failed to load pool wallet"}
	ErrTransactionTooLarge        = &SwapError{Kind: KindTransactionTooLarge, Message: "Transaction too large"}
	ErrSigningUnsupported         = &SwapError{Kind: KindSigningUnsupported, Message: "Wallet does not support transaction signing"}
	ErrUserRejected               = &SwapError{Kind: KindUserRejected, Message: "Transaction was rejected by user"}
	ErrNetworkOrBlockhash         = &SwapError{Kind: KindNetworkOrBlockhashError, Message: "Network error - please try again"}
	ErrTransactionExecutionFailed = &SwapError{Kind: KindTransactionExecutionFailed, Message: "Transaction failed"}
	ErrConfirmationTimeout        = &SwapError{Kind: KindConfirmationTimeout, Message: "Transaction confirmation timeout"}
	ErrFeeVerificationFailed      = &SwapError{Kind: KindFeeVerificationFailed, Message: "Fee payment could not be verified"}
	ErrUnknown                    = &SwapError{Kind: KindUnknown, Message: "Unknown error"}
)

// newError derives a SwapError from a sentinel, replacing the message when
// msg is set.
func newError(sentinel *SwapError, msg string, cause error) *SwapError {
	if msg == "" {
		msg = sentinel.Message
	}
	return &SwapError{Kind: sentinel.Kind, Message: msg, Err: cause}
}

// KindOf returns the kind of a swap error, or KindUnknown.
func KindOf(err error) Kind {
	var se *SwapError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// classify maps an error from the wallet or the RPC node onto the taxonomy.
func classify(err error) *SwapError {
	var se *SwapError
	if errors.As(err, &se) {
		return se
	}
	var failed *blockchain.TransactionFailedError
	switch {
	case errors.As(err, &failed):
		return newError(ErrTransactionExecutionFailed, failed.Error(), err)
	case errors.Is(err, blockchain.ErrConfirmationTimeout):
		return newError(ErrConfirmationTimeout, "", err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient funds"), strings.Contains(lower, "insufficient lamports"):
		return newError(ErrInsufficientBalance, "", err)
	case strings.Contains(lower, "user rejected"):
		return newError(ErrUserRejected, "", err)
	case strings.Contains(lower, "blockhash not found"):
		return newError(ErrNetworkOrBlockhash, "", err)
	}
	return newError(ErrUnknown, msg, err)
}
