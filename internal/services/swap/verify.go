package swap

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

// feeTolerance absorbs rounding in the collector balance delta.
const feeTolerance = 1

var maxTransactionVersion uint64 = 0

func (e *Executor) getTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	return e.chain.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxTransactionVersion,
	})
}

// collectorBalance is read before broadcast so the fee can still be checked
// when the node returns no transaction meta.
func (e *Executor) collectorBalance(ctx context.Context, p *PreparedSwap) *uint64 {
	if p.FeeLamports == 0 {
		return nil
	}
	res, err := e.chain.GetBalance(ctx, p.FeeCollector, rpc.CommitmentFinalized)
	if err != nil || res == nil {
		return nil
	}
	v := res.Value
	return &v
}

// verifyFee reports whether the collector received the fee. A failure is
// logged and never fails the swap.
func (e *Executor) verifyFee(ctx context.Context, sig solana.Signature, p *PreparedSwap, preBalance *uint64) bool {
	if p.FeeLamports == 0 {
		return true
	}
	ok, checked := e.feeFromMeta(ctx, sig, p)
	if !checked && preBalance != nil {
		if res, err := e.chain.GetBalance(ctx, p.FeeCollector, rpc.CommitmentFinalized); err == nil && res != nil {
			ok = int64(res.Value)-int64(*preBalance) >= int64(p.FeeLamports)-feeTolerance
			checked = true
		}
	}
	if ok {
		return true
	}

	metrics.FeeVerificationFailures.Inc()
	log.Warn().
		Str("swap", p.ID).
		Str("signature", sig.String()).
		Str("collector", p.FeeCollector.String()).
		Uint64("expected_lamports", p.FeeLamports).
		Bool("checked", checked).
		Msg("[swap] " + string(KindFeeVerificationFailed))
	return false
}

func (e *Executor) feeFromMeta(ctx context.Context, sig solana.Signature, p *PreparedSwap) (ok, checked bool) {
	res, err := e.getTransaction(ctx, sig)
	if err != nil || res == nil || res.Meta == nil || res.Transaction == nil {
		return false, false
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return false, false
	}
	pre, post := res.Meta.PreBalances, res.Meta.PostBalances
	for i, key := range tx.Message.AccountKeys {
		if !key.Equals(p.FeeCollector) {
			continue
		}
		if i >= len(pre) || i >= len(post) {
			return false, false
		}
		delta := int64(post[i]) - int64(pre[i])
		diff := delta - int64(p.FeeLamports)
		return diff >= -feeTolerance && diff <= feeTolerance, true
	}
	return false, true
}

// CheckBalance is the advisory pre-check shown before a swap. It applies the
// same rule as the balance gate in Prepare.
func (e *Executor) CheckBalance(ctx context.Context, wallet, collectionID string) (*domain.BalanceCheck, error) {
	if !keys.IsValidAddress(wallet) {
		return nil, newError(ErrInvalidAddress, "Invalid wallet address", nil)
	}
	pool, err := e.loadPool(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	check := &domain.BalanceCheck{
		SwapFee:    pool.SwapFee,
		NetworkFee: e.policy.NetworkFee,
		Buffer:     e.policy.Buffer,
		Required:   e.policy.Required(pool.SwapFee),
	}

	balance, err := e.assets.GetWalletBalance(ctx, wallet)
	if err != nil {
		log.Warn().Err(err).Str("wallet", wallet).Msg("[swap] balance check failed")
		check.Message = "Error checking balance"
		return check, nil
	}
	e.auditBalance(wallet, balance)

	check.Balance = balance
	check.Valid = e.policy.Sufficient(balance, pool.SwapFee)
	check.Message = e.policy.balanceMessage(balance, pool.SwapFee)
	return check, nil
}

// VerifyTransaction looks a signature up at finalized commitment.
func (e *Executor) VerifyTransaction(ctx context.Context, signature string) (*domain.TransactionStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil || sig.IsZero() {
		return nil, newError(ErrInvalidAddress, "Invalid transaction signature", err)
	}
	status := &domain.TransactionStatus{
		Signature:   signature,
		ExplorerURL: e.ExplorerURL(signature),
	}

	res, err := e.getTransaction(ctx, sig)
	switch {
	case errors.Is(err, rpc.ErrNotFound), err == nil && res == nil:
		status.Error = "Transaction not found on blockchain"
		return status, nil
	case err != nil:
		return nil, newError(ErrNetworkOrBlockhash, "", err)
	}

	status.Exists = true
	status.Slot = res.Slot
	if res.BlockTime != nil {
		t := res.BlockTime.Time()
		status.BlockTime = &t
	}
	status.Success = true
	if res.Meta != nil {
		status.FeeLamports = res.Meta.Fee
		if res.Meta.Err != nil {
			status.Success = false
			status.Error = (&blockchain.TransactionFailedError{Signature: sig, Err: res.Meta.Err}).Error()
		}
	}
	return status, nil
}
