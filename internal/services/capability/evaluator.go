// Package capability decides whether the engine can sign for a pool.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNoPool          Reason = "no_pool"
	ReasonNoKeyMaterial   Reason = "no_key_material"
	ReasonNoPrivateKey    Reason = "no_private_key"
	ReasonMalformed       Reason = "malformed"
	ReasonAddressMismatch Reason = "address_mismatch"
)

var (
	ErrCapabilityAbsent     = errors.New("pool has no swap capability")
	ErrKeyMaterialMalformed = errors.New("pool key material is malformed")
)

// Malformed reports whether key material exists but cannot produce the
// pool's signer. A key that derives to another address counts as malformed.
func (r Reason) Malformed() bool {
	return r == ReasonMalformed || r == ReasonAddressMismatch
}

type Result struct {
	Capable bool
	Reason  Reason
}

// KeyMaterialSource is the part of domain.PoolRegistry the evaluator reads.
type KeyMaterialSource interface {
	GetPoolKeyMaterial(ctx context.Context, poolAddress solana.PublicKey) (*domain.PoolKeyMaterial, error)
}

// Evaluator holds no state. Every call reads key material from the store.
type Evaluator struct {
	store KeyMaterialSource
}

func NewEvaluator(store KeyMaterialSource) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate returns the capability of pool. The error is set only when the
// store itself failed; an incapable pool is a Result, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, pool *domain.Pool) (Result, error) {
	res, _, err := e.evaluate(ctx, pool)
	if err == nil {
		metrics.CapabilityChecks.WithLabelValues(string(res.Reason)).Inc()
	}
	return res, err
}

func (e *Evaluator) HasSwapCapability(ctx context.Context, pool *domain.Pool) bool {
	res, err := e.Evaluate(ctx, pool)
	return err == nil && res.Capable
}

// LoadSigner derives the pool keypair from storage. The caller owns the
// returned key and should drop it as soon as it has signed.
func (e *Evaluator) LoadSigner(ctx context.Context, pool *domain.Pool) (solana.PrivateKey, error) {
	res, pk, err := e.evaluate(ctx, pool)
	if err != nil {
		return nil, err
	}
	if res.Reason.Malformed() {
		return nil, fmt.Errorf("%w: %s", ErrKeyMaterialMalformed, res.Reason)
	}
	if !res.Capable {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityAbsent, res.Reason)
	}
	return pk, nil
}

func (e *Evaluator) evaluate(ctx context.Context, pool *domain.Pool) (Result, solana.PrivateKey, error) {
	if pool == nil || pool.PoolAddress.IsZero() {
		return Result{Reason: ReasonNoPool}, nil, nil
	}

	km, err := e.store.GetPoolKeyMaterial(ctx, pool.PoolAddress)
	switch {
	case errors.Is(err, domain.ErrKeyMaterialNotFound):
		return Result{Reason: ReasonNoKeyMaterial}, nil, nil
	case errors.Is(err, keys.ErrUnsealFailed):
		return Result{Reason: ReasonMalformed}, nil, nil
	case err != nil:
		return Result{}, nil, fmt.Errorf("load key material: %w", err)
	case km == nil:
		return Result{Reason: ReasonNoKeyMaterial}, nil, nil
	}

	if !km.HasPrivateKey || km.SecretKey == "" {
		return Result{Reason: ReasonNoPrivateKey}, nil, nil
	}

	pk, err := keys.DeriveForAddress(km.SecretKey, pool.PoolAddress)
	switch {
	case errors.Is(err, keys.ErrKeyMismatch):
		return Result{Reason: ReasonAddressMismatch}, nil, nil
	case err != nil:
		return Result{Reason: ReasonMalformed}, nil, nil
	}
	return Result{Capable: true, Reason: ReasonOK}, pk, nil
}
