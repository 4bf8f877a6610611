package domain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrPoolNotFound        = errors.New("pool not found")
	ErrPoolExists          = errors.New("pool already exists for this collection")
	ErrKeyMaterialNotFound = errors.New("pool key material not found")
	ErrVolumeOverflow      = errors.New("pool volume overflow")
)

// PoolRegistry is the persistent store of pools and their key material.
// Lookups return ErrPoolNotFound / ErrKeyMaterialNotFound on absence.
type PoolRegistry interface {
	GetPool(ctx context.Context, collectionID string) (*Pool, error)
	GetPoolKeyMaterial(ctx context.Context, poolAddress solana.PublicKey) (*PoolKeyMaterial, error)
	ListPools(ctx context.Context) ([]*Pool, error)

	CreatePool(ctx context.Context, pool *Pool) error
	StorePoolKeyMaterial(ctx context.Context, km *PoolKeyMaterial) error
	UpdatePoolStats(ctx context.Context, collectionID string, nftCount uint64, volumeLamports uint64) error
	// AddPoolVolume accumulates swap volume and leaves NFTCount untouched.
	AddPoolVolume(ctx context.Context, collectionID string, volumeLamports uint64) error
	SetPoolActive(ctx context.Context, collectionID string, active bool) error
	DeletePool(ctx context.Context, collectionID string) error

	Close() error
}
