// Package swap builds, signs and settles atomic two-party NFT swaps between a
// user wallet and a custodial pool.
package swap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/config"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

const sendMaxRetries uint = 3

// StateObserver is told about every state a swap enters.
type StateObserver func(id string, state domain.SwapState)

type Executor struct {
	cfg    *config.SwapConfig
	policy FeePolicy

	pools      PoolStore
	capability CapabilityChecker
	assets     AssetReader
	chain      ChainRPC
	blockhash  BlockhashSource
	confirmer  Confirmer
	auditor    Auditor
	observer   StateObserver
	simulate   bool

	now func() time.Time
}

type Option func(*Executor)

func WithBlockhashSource(src BlockhashSource) Option {
	return func(e *Executor) { e.blockhash = src }
}

func WithConfirmer(c Confirmer) Option {
	return func(e *Executor) { e.confirmer = c }
}

func WithAuditor(a Auditor) Option {
	return func(e *Executor) { e.auditor = a }
}

func WithStateObserver(fn StateObserver) Option {
	return func(e *Executor) { e.observer = fn }
}

func NewExecutor(cfg *config.SwapConfig, pools PoolStore, checker CapabilityChecker, assets AssetReader, chain ChainRPC, opts ...Option) *Executor {
	if cfg == nil {
		cfg = config.DefaultSwapConfig()
	}
	e := &Executor{
		cfg: cfg,
		policy: FeePolicy{
			NetworkFee: cfg.NetworkFee,
			Buffer:     cfg.Buffer,
			MaxSwapFee: cfg.MaxSwapFee,
		},
		pools:      pools,
		capability: checker,
		assets:     assets,
		chain:      chain,
		auditor:    nopAuditor{},
		simulate:   cfg.Simulate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.blockhash == nil {
		e.blockhash = directBlockhash{rpc: chain}
	}
	if e.confirmer == nil {
		e.confirmer = blockchain.NewPollingConfirmer(chain, 0, cfg.ConfirmTimeout)
	}
	return e
}

func (e *Executor) Policy() FeePolicy {
	return e.policy
}

// ExplorerURL links a signature on the configured explorer and cluster.
func (e *Executor) ExplorerURL(sig string) string {
	return fmt.Sprintf("%s/tx/%s?cluster=%s", e.cfg.ExplorerURL, sig, e.cfg.Network)
}

// run tracks one pass through the state machine for logs and metrics.
type run struct {
	e          *Executor
	id         string
	intent     domain.SwapIntent
	state      domain.SwapState
	phaseStart time.Time
}

func (e *Executor) newRun(id string, intent domain.SwapIntent, state domain.SwapState) *run {
	r := &run{e: e, id: id, intent: intent, state: state, phaseStart: e.now()}
	e.notify(id, state)
	return r
}

func (e *Executor) notify(id string, state domain.SwapState) {
	if e.observer != nil {
		e.observer(id, state)
	}
}

func (r *run) enter(state domain.SwapState) {
	now := r.e.now()
	metrics.SwapDuration.WithLabelValues(r.state.String()).Observe(now.Sub(r.phaseStart).Seconds())
	log.Debug().Str("swap", r.id).Str("from", r.state.String()).Str("to", state.String()).Msg("[swap] state")
	r.state, r.phaseStart = state, now
	r.e.notify(r.id, state)
}

// fail moves the run to Failed and returns the classified error.
func (r *run) fail(err error) *SwapError {
	se := classify(err)
	phase := r.state
	metrics.SwapRequests.WithLabelValues(phase.String(), "failed", string(se.Kind)).Inc()

	evt := log.Warn()
	if se.Kind == KindUnknown || se.Kind == KindKeyMaterialMalformed {
		evt = log.Error()
	}
	evt.Err(se.Err).
		Str("swap", r.id).
		Str("phase", phase.String()).
		Str("kind", string(se.Kind)).
		Str("collection", r.intent.CollectionID).
		Str("wallet", r.intent.UserWallet).
		Msg(se.Message)

	r.e.auditor.LogFailedTransaction(se, map[string]string{
		"swap":       r.id,
		"phase":      phase.String(),
		"kind":       string(se.Kind),
		"collection": r.intent.CollectionID,
		"wallet":     r.intent.UserWallet,
		"signature":  se.Signature,
	})
	r.state = domain.SwapStateFailed
	r.e.notify(r.id, domain.SwapStateFailed)
	return se
}

// Prepare validates an intent, builds the swap transaction and adds the
// pool's signature. The user's signature slot is left empty.
func (e *Executor) Prepare(ctx context.Context, intent domain.SwapIntent) (*PreparedSwap, error) {
	r := e.newRun(newSwapID(), intent, domain.SwapStateValidating)

	v, err := e.validate(ctx, intent)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(domain.SwapStateBuilding)
	b, err := e.build(ctx, v)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := e.simulateSwap(ctx, b.tx); err != nil {
		return nil, r.fail(err)
	}

	r.enter(domain.SwapStateSigning)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(newError(ErrUnknown, "Swap cancelled before signing", err))
	}
	if err := e.poolSign(ctx, v, b.tx); err != nil {
		return nil, r.fail(err)
	}
	message, err := b.tx.Message.MarshalBinary()
	if err != nil {
		return nil, r.fail(newError(ErrUnknown, "Failed to serialize message", err))
	}
	raw, err := b.tx.MarshalBinary()
	if err != nil {
		return nil, r.fail(newError(ErrUnknown, "Failed to serialize transaction", err))
	}

	metrics.SwapRequests.WithLabelValues(r.state.String(), "prepared", "").Inc()
	log.Info().
		Str("swap", r.id).
		Str("collection", intent.CollectionID).
		Str("wallet", intent.UserWallet).
		Int("instructions", len(b.tx.Message.Instructions)).
		Int("size", b.size).
		Uint64("fee_lamports", v.feeLamports).
		Msg("[swap] prepared")

	return &PreparedSwap{
		ID:                   r.id,
		Intent:               intent,
		UserWallet:           v.user,
		PoolAddress:          v.pool.PoolAddress,
		FeeLamports:          v.feeLamports,
		FeeSOL:               v.fee,
		FeeCollector:         b.collector,
		Blockhash:            b.blockhash,
		LastValidBlockHeight: b.lastValidBlockHeight,
		Instructions:         len(b.tx.Message.Instructions),
		Size:                 b.size,
		PreparedAt:           e.now(),
		message:              message,
		raw:                  raw,
	}, nil
}

// poolSign derives the pool key for this call only and wipes it afterwards.
func (e *Executor) poolSign(ctx context.Context, v *validated, tx *solana.Transaction) error {
	key, err := e.capability.LoadSigner(ctx, v.pool)
	switch {
	case errors.Is(err, capability.ErrCapabilityAbsent):
		return newError(ErrCapabilityAbsent, "", err)
	case err != nil:
		return newError(ErrKeyMaterialMalformed, "", err)
	}
	defer wipe(key)

	if _, err := tx.PartialSign(keyGetter(key)); err != nil {
		return newError(ErrKeyMaterialMalformed, "Failed to sign with pool wallet", err)
	}
	return nil
}

// ExecuteSwap runs the whole pipeline with a wallet that signs in process.
func (e *Executor) ExecuteSwap(ctx context.Context, intent domain.SwapIntent, signer WalletSigner) (*domain.SwapReceipt, error) {
	if signer == nil {
		r := e.newRun(newSwapID(), intent, domain.SwapStateSigning)
		return nil, r.fail(newError(ErrSigningUnsupported, "", nil))
	}

	prepared, err := e.Prepare(ctx, intent)
	if err != nil {
		return nil, err
	}

	r := &run{e: e, id: prepared.ID, intent: intent, state: domain.SwapStateSigning, phaseStart: e.now()}
	tx, err := prepared.Transaction()
	if err != nil {
		return nil, r.fail(newError(ErrUnknown, "Failed to copy prepared transaction", err))
	}
	if err := signer.SignTransaction(ctx, tx); err != nil {
		if errors.Is(err, ErrSignerRejected) {
			return nil, r.fail(newError(ErrUserRejected, "", err))
		}
		se := classify(err)
		if se.Kind == KindUnknown {
			se = newError(ErrSigningUnsupported, "Wallet failed to sign: "+err.Error(), err)
		}
		return nil, r.fail(se)
	}
	return e.Submit(ctx, prepared, tx)
}

// Submit checks the fully signed transaction against what was prepared,
// broadcasts it once and waits for finality.
func (e *Executor) Submit(ctx context.Context, prepared *PreparedSwap, signed *solana.Transaction) (*domain.SwapReceipt, error) {
	if prepared == nil || signed == nil {
		r := e.newRun(newSwapID(), domain.SwapIntent{}, domain.SwapStateSigning)
		return nil, r.fail(newError(ErrSigningUnsupported, "No signed transaction to submit", nil))
	}
	r := &run{e: e, id: prepared.ID, intent: prepared.Intent, state: domain.SwapStateSigning, phaseStart: e.now()}

	message, err := signed.Message.MarshalBinary()
	if err != nil || !bytes.Equal(message, prepared.message) {
		return nil, r.fail(newError(ErrSigningUnsupported, "Signed transaction does not match the prepared swap", err))
	}
	if err := signed.VerifySignatures(); err != nil {
		return nil, r.fail(newError(ErrSigningUnsupported, "Transaction is missing a valid signature", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(newError(ErrUnknown, "Swap cancelled before broadcast", err))
	}

	preBalance := e.collectorBalance(ctx, prepared)

	r.enter(domain.SwapStateBroadcasting)
	maxRetries := sendMaxRetries
	sig, err := e.chain.SendTransactionWithOpts(ctx, signed, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentFinalized,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	log.Info().Str("swap", r.id).Str("signature", sig.String()).Msg("[swap] broadcast")

	r.enter(domain.SwapStateConfirming)
	conf, err := e.confirmer.Confirm(ctx, sig)
	if err != nil {
		se := classify(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			se = newError(ErrConfirmationTimeout, "", err)
		}
		if se.Kind == KindConfirmationTimeout {
			se.Message = "Transaction confirmation timeout. Check signature " + sig.String()
		}
		se.Signature = sig.String()
		return nil, r.fail(se)
	}

	r.enter(domain.SwapStateVerifyingFee)
	verified := e.verifyFee(ctx, sig, prepared, preBalance)

	r.enter(domain.SwapStateCompleted)
	receipt := &domain.SwapReceipt{
		Signature:    sig,
		ExplorerURL:  e.ExplorerURL(sig.String()),
		Instructions: prepared.Instructions,
		FeeLamports:  prepared.FeeLamports,
		FeeSOL:       prepared.FeeSOL,
		FeeCollector: prepared.FeeCollector,
		UserNFTMint:  prepared.Intent.UserNFTMint,
		PoolNFTMint:  prepared.Intent.PoolNFTMint,
		CollectionID: prepared.Intent.CollectionID,
		Network:      e.cfg.Network,
		FeeVerified:  verified,
		Slot:         conf.Slot,
		CompletedAt:  e.now(),
	}

	// A 1:1 swap leaves the pool's NFT count unchanged.
	if err := e.pools.AddPoolVolume(ctx, prepared.Intent.CollectionID, prepared.FeeLamports); err != nil {
		log.Warn().Err(err).Str("collection", prepared.Intent.CollectionID).Msg("[swap] failed to update pool stats")
	}
	metrics.SwapRequests.WithLabelValues(domain.SwapStateCompleted.String(), "success", "").Inc()
	metrics.SwapFeesLamports.Add(float64(prepared.FeeLamports))
	e.auditor.Audit(monitor.AuditSuccessfulSwap, map[string]any{
		"swap":         r.id,
		"signature":    sig.String(),
		"wallet":       prepared.Intent.UserWallet,
		"collection":   prepared.Intent.CollectionID,
		"user_nft":     prepared.Intent.UserNFTMint,
		"pool_nft":     prepared.Intent.PoolNFTMint,
		"fee_lamports": prepared.FeeLamports,
		"fee_verified": verified,
	})
	return receipt, nil
}
