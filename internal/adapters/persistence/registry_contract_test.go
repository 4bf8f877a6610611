package persistence

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

const testSealSecret = "0123456789abcdef0123456789abcdef-persistence"

func newTestSealer(t *testing.T) keys.Sealer {
	t.Helper()
	sealer, err := keys.NewAEADSealer([]byte(testSealSecret))
	require.NoError(t, err)
	return sealer
}

func samplePool(t *testing.T, id string) *domain.Pool {
	t.Helper()
	return &domain.Pool{
		CollectionID:      id,
		CollectionName:    "Mad Lads",
		CollectionSymbol:  "MAD",
		CollectionAddress: solana.NewWallet().PublicKey().String(),
		PoolAddress:       solana.NewWallet().PublicKey(),
		SwapFee:           decimal.RequireFromString("0.05"),
		IsActive:          true,
		TotalVolume:       uint256.NewInt(0),
		CreatedBy:         "admin",
	}
}

// runRegistryContract exercises behaviour every PoolRegistry must share.
func runRegistryContract(t *testing.T, store domain.PoolRegistry) {
	ctx := context.Background()

	t.Run("missing pool is a sentinel", func(t *testing.T) {
		p, err := store.GetPool(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrPoolNotFound)
		assert.Nil(t, p)
	})

	t.Run("missing key material is a sentinel", func(t *testing.T) {
		km, err := store.GetPoolKeyMaterial(ctx, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, domain.ErrKeyMaterialNotFound)
		assert.Nil(t, km)
	})

	t.Run("create and get", func(t *testing.T) {
		pool := samplePool(t, "madlads")
		require.NoError(t, store.CreatePool(ctx, pool))

		got, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)
		assert.Equal(t, pool.PoolAddress, got.PoolAddress)
		assert.Equal(t, pool.CollectionAddress, got.CollectionAddress)
		assert.True(t, pool.SwapFee.Equal(got.SwapFee))
		assert.True(t, got.IsActive)
		assert.Equal(t, uint64(0), got.TotalVolume.Uint64())
	})

	t.Run("duplicate collection rejected", func(t *testing.T) {
		err := store.CreatePool(ctx, samplePool(t, "madlads"))
		assert.ErrorIs(t, err, domain.ErrPoolExists)
	})

	t.Run("key material is sealed round trip", func(t *testing.T) {
		pool, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)

		km := &domain.PoolKeyMaterial{
			PublicKey:     pool.PoolAddress,
			SecretKey:     "1,2,3",
			HasPrivateKey: true,
		}
		require.NoError(t, store.StorePoolKeyMaterial(ctx, km))

		got, err := store.GetPoolKeyMaterial(ctx, pool.PoolAddress)
		require.NoError(t, err)
		assert.Equal(t, "1,2,3", got.SecretKey)
		assert.True(t, got.HasPrivateKey)
	})

	t.Run("stats set count and accumulate volume", func(t *testing.T) {
		require.NoError(t, store.UpdatePoolStats(ctx, "madlads", 7, 50_000_000))
		require.NoError(t, store.UpdatePoolStats(ctx, "madlads", 6, 25_000_000))

		got, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)
		assert.Equal(t, uint64(6), got.NFTCount)
		assert.Equal(t, uint64(75_000_000), got.TotalVolume.Uint64())
		assert.Equal(t, "0.075", got.TotalVolumeSOL().String())
	})

	t.Run("volume leaves count alone", func(t *testing.T) {
		require.NoError(t, store.UpdatePoolStats(ctx, "madlads", 6, 0))
		require.NoError(t, store.AddPoolVolume(ctx, "madlads", 5_000_000))

		got, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)
		assert.Equal(t, uint64(6), got.NFTCount)
		assert.Equal(t, uint64(80_000_000), got.TotalVolume.Uint64())
	})

	t.Run("stats on missing pool", func(t *testing.T) {
		tests := []struct {
			name string
			call func() error
		}{
			{"update stats", func() error { return store.UpdatePoolStats(ctx, "ghost", 1, 1) }},
			{"add volume", func() error { return store.AddPoolVolume(ctx, "ghost", 1) }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.ErrorIs(t, tt.call(), domain.ErrPoolNotFound)
			})
		}
	})

	t.Run("toggle active", func(t *testing.T) {
		require.NoError(t, store.SetPoolActive(ctx, "madlads", false))
		got, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		assert.ErrorIs(t, store.SetPoolActive(ctx, "ghost", true), domain.ErrPoolNotFound)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.CreatePool(ctx, samplePool(t, "okaybears")))
		pools, err := store.ListPools(ctx)
		require.NoError(t, err)
		assert.Len(t, pools, 2)
	})

	t.Run("delete cascades key material", func(t *testing.T) {
		pool, err := store.GetPool(ctx, "madlads")
		require.NoError(t, err)

		require.NoError(t, store.DeletePool(ctx, "madlads"))

		_, err = store.GetPool(ctx, "madlads")
		assert.ErrorIs(t, err, domain.ErrPoolNotFound)
		_, err = store.GetPoolKeyMaterial(ctx, pool.PoolAddress)
		assert.ErrorIs(t, err, domain.ErrKeyMaterialNotFound)

		assert.ErrorIs(t, store.DeletePool(ctx, "madlads"), domain.ErrPoolNotFound)
	})
}
