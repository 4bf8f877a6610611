package swap

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/assets"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

// validated is everything the builder needs once the intent has passed.
type validated struct {
	intent   domain.SwapIntent
	pool     *domain.Pool
	user     solana.PublicKey
	userMint solana.PublicKey
	poolMint solana.PublicKey

	fee         decimal.Decimal
	feeLamports uint64
	balance     decimal.Decimal
}

func (e *Executor) validate(ctx context.Context, intent domain.SwapIntent) (*validated, error) {
	v := &validated{intent: intent}
	var err error
	if v.user, err = keys.ParseAddress(intent.UserWallet); err != nil {
		return nil, newError(ErrInvalidAddress, "Invalid user wallet address", err)
	}
	if v.userMint, err = keys.ParseAddress(intent.UserNFTMint); err != nil {
		return nil, newError(ErrInvalidAddress, "Invalid user NFT mint address", err)
	}
	if v.poolMint, err = keys.ParseAddress(intent.PoolNFTMint); err != nil {
		return nil, newError(ErrInvalidAddress, "Invalid pool NFT mint address", err)
	}

	if v.pool, err = e.loadPool(ctx, intent.CollectionID); err != nil {
		return nil, err
	}
	if err := e.policy.ValidateSwapFee(v.pool.SwapFee); err != nil {
		return nil, err
	}
	if !v.pool.IsActive {
		return nil, newError(ErrPoolInactive, "", nil)
	}
	v.fee = v.pool.SwapFee
	v.feeLamports = FeeLamports(v.fee)

	if err := e.requireCapability(ctx, v.pool); err != nil {
		return nil, err
	}

	var userAsset, poolAsset *domain.Asset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := e.assets.GetAsset(gctx, intent.UserNFTMint)
		if err != nil {
			return assetError("User NFT", err)
		}
		userAsset = a
		return nil
	})
	g.Go(func() error {
		a, err := e.assets.GetAsset(gctx, intent.PoolNFTMint)
		if err != nil {
			return assetError("Pool NFT", err)
		}
		poolAsset = a
		return nil
	})
	g.Go(func() error {
		b, err := e.assets.GetWalletBalance(gctx, intent.UserWallet)
		if err != nil {
			return newError(ErrNetworkOrBlockhash, "Failed to read wallet balance", err)
		}
		v.balance = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if userAsset.Burnt {
		return nil, newError(ErrAssetNotFound, "User NFT has been burnt", nil)
	}
	if poolAsset.Burnt {
		return nil, newError(ErrAssetNotFound, "Pool NFT has been burnt", nil)
	}
	if err := checkCollection(v.pool, userAsset, poolAsset); err != nil {
		return nil, err
	}
	if userAsset.Owner != "" && userAsset.Owner != intent.UserWallet {
		return nil, newError(ErrOwnershipMismatch, "You do not own the selected NFT", nil)
	}
	if poolAsset.Owner != "" && poolAsset.Owner != v.pool.PoolAddress.String() {
		return nil, newError(ErrOwnershipMismatch, "Pool does not own the selected NFT", nil)
	}

	e.auditBalance(intent.UserWallet, v.balance)
	if !e.policy.Sufficient(v.balance, v.fee) {
		return nil, newError(ErrInsufficientBalance, e.policy.balanceMessage(v.balance, v.fee), nil)
	}
	return v, nil
}

func (e *Executor) loadPool(ctx context.Context, collectionID string) (*domain.Pool, error) {
	if collectionID == "" {
		return nil, newError(ErrPoolNotFound, "", nil)
	}
	pool, err := e.pools.GetPool(ctx, collectionID)
	switch {
	case errors.Is(err, domain.ErrPoolNotFound):
		return nil, newError(ErrPoolNotFound, "Pool not found for collection "+collectionID, err)
	case err != nil:
		return nil, newError(ErrUnknown, "Failed to load pool", err)
	}
	return pool, nil
}

// requireCapability fails fast before any asset read so an incapable pool
// never reaches the chain.
func (e *Executor) requireCapability(ctx context.Context, pool *domain.Pool) error {
	res, err := e.capability.Evaluate(ctx, pool)
	if err != nil {
		return newError(ErrUnknown, "Failed to read pool key material", err)
	}
	switch {
	case res.Reason == capability.ReasonOK:
		return nil
	case res.Reason.Malformed():
		log.Error().Str("collection", pool.CollectionID).Str("reason", string(res.Reason)).Msg("[swap] pool key material is malformed")
		return newError(ErrKeyMaterialMalformed, "", nil)
	default:
		log.Warn().Str("collection", pool.CollectionID).Str("reason", string(res.Reason)).Msg("[swap] pool cannot sign")
		return newError(ErrCapabilityAbsent, "", nil)
	}
}

func assetError(label string, err error) error {
	if errors.Is(err, assets.ErrAssetNotFound) {
		return newError(ErrAssetNotFound, label+" not found or invalid", err)
	}
	return newError(ErrNetworkOrBlockhash, "Failed to fetch "+label+" details", err)
}

// checkCollection accepts a pair when no known collection contradicts the
// pool. Unknown collections never block.
func checkCollection(pool *domain.Pool, userAsset, poolAsset *domain.Asset) error {
	if pool.HasCollectionAddress() {
		for _, a := range []*domain.Asset{userAsset, poolAsset} {
			if a.Collection != "" && !pool.InCollection(a) {
				return newError(ErrCollectionMismatch, "NFT "+a.Mint+" is not part of the pool's verified collection", nil)
			}
		}
		return nil
	}
	if userAsset.Collection != "" && poolAsset.Collection != "" && userAsset.Collection != poolAsset.Collection {
		return newError(ErrCollectionMismatch, "", nil)
	}
	return nil
}

func (e *Executor) auditBalance(wallet string, balance decimal.Decimal) {
	if balance.LessThanOrEqual(SuspiciousBalance) {
		return
	}
	e.auditor.Audit(monitor.AuditSuspiciousBalance, map[string]any{
		"wallet":  wallet,
		"balance": balance.String(),
	})
	e.auditor.LogSuspiciousActivity("unusually large wallet balance", map[string]string{
		"wallet": wallet,
	})
}
