package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Pool is the custodial counterparty for one NFT collection.
type Pool struct {
	CollectionID     string
	CollectionName   string
	CollectionSymbol string
	CollectionImage  string
	Description      string

	// CollectionAddress is the verified collection key. Empty means the pool
	// does not pin a collection and swaps fall back to pairwise matching.
	CollectionAddress string

	PoolAddress solana.PublicKey
	SwapFee     decimal.Decimal // SOL
	IsActive    bool

	// Advisory counters, never consulted for swap correctness.
	NFTCount    uint64
	TotalVolume *uint256.Int // lamports

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Pool) HasCollectionAddress() bool {
	return p != nil && p.CollectionAddress != ""
}

// InCollection reports whether a carries the pool's pinned collection
// address. Addresses are base58 and compared exactly.
func (p *Pool) InCollection(a *Asset) bool {
	return p.HasCollectionAddress() && a != nil && a.Collection == p.CollectionAddress
}

// TotalVolumeSOL converts the accumulated lamport volume for display.
func (p *Pool) TotalVolumeSOL() decimal.Decimal {
	if p == nil || p.TotalVolume == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.TotalVolume.ToBig(), -9)
}

// PoolKeyMaterial is the custodial signing capability of a pool. SecretKey
// holds the comma separated text of the 64 raw secret key bytes.
type PoolKeyMaterial struct {
	PublicKey     solana.PublicKey
	SecretKey     string
	HasPrivateKey bool
	CreatedAt     time.Time
}
