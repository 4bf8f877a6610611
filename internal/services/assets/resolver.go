package assets

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/das"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrIndexerUnavailable = errors.New("asset indexer unavailable")
	ErrBalanceUnavailable = errors.New("wallet balance unavailable")
)

// Indexer is the read side of the asset indexing API. *das.Client satisfies it.
type Indexer interface {
	GetAsset(ctx context.Context, mint string) (*domain.Asset, error)
	GetAssetsByOwner(ctx context.Context, owner string) ([]*domain.Asset, error)
	GetBalance(ctx context.Context, address string) (uint64, error)
}

var _ Indexer = (*das.Client)(nil)

const (
	InterfaceV1NFT           = "V1_NFT"
	InterfaceProgrammableNFT = "ProgrammableNFT"
)

// Resolver turns indexer reads into domain assets. Transport failures are
// reported through the package sentinels only.
type Resolver struct {
	indexer Indexer
}

func NewResolver(indexer Indexer) *Resolver {
	return &Resolver{indexer: indexer}
}

func (r *Resolver) GetAsset(ctx context.Context, mint string) (*domain.Asset, error) {
	asset, err := r.indexer.GetAsset(ctx, mint)
	if err != nil {
		return nil, r.mapErr(ctx, "getAsset", err, ErrAssetNotFound, ErrIndexerUnavailable)
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}

// GetAssetsByOwner lists the non-burnt NFTs held by owner.
func (r *Resolver) GetAssetsByOwner(ctx context.Context, owner string) ([]*domain.Asset, error) {
	all, err := r.indexer.GetAssetsByOwner(ctx, owner)
	if err != nil {
		return nil, r.mapErr(ctx, "getAssetsByOwner", err, ErrIndexerUnavailable, ErrIndexerUnavailable)
	}
	out := make([]*domain.Asset, 0, len(all))
	for _, a := range all {
		if a.Burnt {
			continue
		}
		if a.Interface != InterfaceV1NFT && a.Interface != InterfaceProgrammableNFT {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// GetWalletBalance returns the SOL balance of address.
func (r *Resolver) GetWalletBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	lamports, err := r.indexer.GetBalance(ctx, address)
	if err != nil {
		return decimal.Zero, r.mapErr(ctx, "getBalance", err, ErrBalanceUnavailable, ErrBalanceUnavailable)
	}
	return LamportsToSOL(lamports), nil
}

// UserNFTs lists the wallet's NFTs that belong to the pool's collection.
func (r *Resolver) UserNFTs(ctx context.Context, pool *domain.Pool, wallet string) ([]*domain.Asset, error) {
	owned, err := r.GetAssetsByOwner(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return FilterForPool(pool, owned), nil
}

// PoolNFTs lists the pool wallet's NFTs that belong to its collection.
func (r *Resolver) PoolNFTs(ctx context.Context, pool *domain.Pool) ([]*domain.Asset, error) {
	owned, err := r.GetAssetsByOwner(ctx, pool.PoolAddress.String())
	if err != nil {
		return nil, err
	}
	return FilterForPool(pool, owned), nil
}

func (r *Resolver) mapErr(ctx context.Context, op string, err, notFound, unavailable error) error {
	switch {
	case errors.Is(err, das.ErrNotFound), errors.Is(err, das.ErrMalformedResponse):
		return notFound
	case ctx.Err() != nil:
		return ctx.Err()
	}
	log.Warn().Str("op", op).Err(err).Msg("[assetResolver] indexer call failed")
	return unavailable
}

func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

// FilterForPool keeps assets of the pool's collection. With a pinned
// collection address only assets in that collection are kept; without one,
// names and symbols are compared against the pool's.
func FilterForPool(pool *domain.Pool, assets []*domain.Asset) []*domain.Asset {
	if pool == nil {
		return nil
	}
	out := make([]*domain.Asset, 0, len(assets))
	for _, a := range assets {
		if !keys.IsValidAddress(a.Mint) || a.Name == "" {
			continue
		}
		if pool.HasCollectionAddress() {
			if pool.InCollection(a) {
				out = append(out, a)
			}
			continue
		}
		if matchesByName(pool, a) {
			out = append(out, a)
		}
	}
	return out
}

var unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")

func sanitize(s string) string {
	return unsafeChars.Replace(strings.ToLower(s))
}

func matchesByName(pool *domain.Pool, a *domain.Asset) bool {
	name := sanitize(a.Name)
	symbol := sanitize(a.Symbol)
	poolSymbol := sanitize(pool.CollectionSymbol)

	if words := strings.Fields(sanitize(pool.CollectionName)); len(words) > 0 && strings.Contains(name, words[0]) {
		return true
	}
	if poolSymbol == "" {
		return false
	}
	return strings.Contains(symbol, poolSymbol) || strings.Contains(name, poolSymbol)
}
