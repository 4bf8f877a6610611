package assets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/das"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
)

type stubIndexer struct {
	assets   map[string]*domain.Asset
	owned    map[string][]*domain.Asset
	balances map[string]uint64
	err      error
}

func (s *stubIndexer) GetAsset(_ context.Context, mint string) (*domain.Asset, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.assets[mint]
	if !ok {
		return nil, das.ErrNotFound
	}
	return a, nil
}

func (s *stubIndexer) GetAssetsByOwner(_ context.Context, owner string) ([]*domain.Asset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.owned[owner], nil
}

func (s *stubIndexer) GetBalance(_ context.Context, address string) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.balances[address], nil
}

func mint() string { return solana.NewWallet().PublicKey().String() }

func TestResolver_GetAssetErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"not found", das.ErrNotFound, ErrAssetNotFound},
		{"malformed", das.ErrMalformedResponse, ErrAssetNotFound},
		{"transport", errors.New("dial tcp: connection refused"), ErrIndexerUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&stubIndexer{err: tt.err})
			_, err := r.GetAsset(context.Background(), mint())
			assert.ErrorIs(t, err, tt.expected)
			assert.NotContains(t, err.Error(), "dial tcp")
		})
	}
}

func TestResolver_GetAssetsByOwnerFilters(t *testing.T) {
	owner := mint()
	r := NewResolver(&stubIndexer{owned: map[string][]*domain.Asset{owner: {
		{Mint: mint(), Name: "a", Interface: InterfaceV1NFT},
		{Mint: mint(), Name: "b", Interface: InterfaceProgrammableNFT},
		{Mint: mint(), Name: "c", Interface: InterfaceV1NFT, Burnt: true},
		{Mint: mint(), Name: "d", Interface: "FungibleToken"},
	}}})

	got, err := r.GetAssetsByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}

func TestResolver_GetWalletBalance(t *testing.T) {
	wallet := mint()
	r := NewResolver(&stubIndexer{balances: map[string]uint64{wallet: 2_500_000_001}})

	bal, err := r.GetWalletBalance(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "2.500000001", bal.String())

	_, err = NewResolver(&stubIndexer{err: das.ErrMalformedResponse}).GetWalletBalance(context.Background(), wallet)
	assert.ErrorIs(t, err, ErrBalanceUnavailable)
}

func TestFilterForPool(t *testing.T) {
	coll := mint()
	pinned := &domain.Pool{CollectionAddress: coll, CollectionName: "Mad Lads", CollectionSymbol: "MAD"}
	unpinned := &domain.Pool{CollectionName: "Mad Lads", CollectionSymbol: "MAD"}

	inColl := &domain.Asset{Mint: mint(), Name: "Lad #1", Collection: coll}
	byName := &domain.Asset{Mint: mint(), Name: "Mad Lads #9"}
	bySymbol := &domain.Asset{Mint: mint(), Name: "Something", Symbol: "MAD"}
	other := &domain.Asset{Mint: mint(), Name: "Okay Bear", Symbol: "BEAR", Collection: mint()}
	badMint := &domain.Asset{Mint: "short", Name: "Mad Lads #2", Collection: coll}
	lowered := &domain.Asset{Mint: mint(), Name: "Lad #3", Collection: strings.ToLower(coll)}

	all := []*domain.Asset{inColl, byName, bySymbol, other, badMint, lowered}

	tests := []struct {
		name     string
		pool     *domain.Pool
		expected []*domain.Asset
	}{
		{"pinned collection matches exactly", pinned, []*domain.Asset{inColl}},
		{"name heuristic without collection", unpinned, []*domain.Asset{byName, bySymbol}},
		{"nil pool", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterForPool(tt.pool, all)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFilterForPool_EmptySymbolDoesNotMatchAll(t *testing.T) {
	pool := &domain.Pool{CollectionName: "", CollectionSymbol: ""}
	got := FilterForPool(pool, []*domain.Asset{{Mint: mint(), Name: "Anything"}})
	assert.Empty(t, got)
}
