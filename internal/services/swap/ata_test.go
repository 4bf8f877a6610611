package swap

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

func TestAssociatedTokenAddress(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	want, _, err := solana.FindProgramAddress(
		[][]byte{wallet[:], common.TokenProgramID[:], mint[:]},
		common.ATAProgramID,
	)
	require.NoError(t, err)

	tests := []struct {
		name string
	}{
		{"derived"},
		{"memoized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AssociatedTokenAddress(wallet, mint)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAssociatedTokenAddress_CacheIsBounded(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	for i := 0; i < ataCacheSize+100; i++ {
		_, err := AssociatedTokenAddress(solana.NewWallet().PublicKey(), mint)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, ataCache.Size(), ataCacheSize)
}
