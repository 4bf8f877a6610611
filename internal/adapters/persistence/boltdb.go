package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

const (
	PoolsBucket    = "pools"
	PoolKeysBucket = "pool_keys"

	DefaultDBPath = "./data/nft-swap.db"
)

// BoltStore is a domain.PoolRegistry on a single bolt file.
type BoltStore struct {
	db     *bolt.DB
	dbPath string
	sealer keys.Sealer
}

var _ domain.PoolRegistry = (*BoltStore)(nil)

func NewBoltStore(dbPath string, sealer keys.Sealer) (*BoltStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{PoolsBucket, PoolKeysBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("[poolStorage] opened database")

	return &BoltStore{db: db, dbPath: dbPath, sealer: sealer}, nil
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BoltStore) GetPool(_ context.Context, collectionID string) (*domain.Pool, error) {
	var stored *StoredPool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(PoolsBucket)).Get([]byte(collectionID))
		if raw == nil {
			return domain.ErrPoolNotFound
		}
		stored = &StoredPool{}
		return sonic.Unmarshal(raw, stored)
	})
	if err != nil {
		if err == domain.ErrPoolNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load pool %s: %w", collectionID, err)
	}
	return storedToPool(stored)
}

func (s *BoltStore) GetPoolKeyMaterial(_ context.Context, poolAddress solana.PublicKey) (*domain.PoolKeyMaterial, error) {
	var stored *StoredKeyMaterial
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(PoolKeysBucket)).Get([]byte(poolAddress.String()))
		if raw == nil {
			return domain.ErrKeyMaterialNotFound
		}
		stored = &StoredKeyMaterial{}
		return sonic.Unmarshal(raw, stored)
	})
	if err != nil {
		if err == domain.ErrKeyMaterialNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load key material: %w", err)
	}
	return storedToKeyMaterial(stored, s.sealer)
}

func (s *BoltStore) ListPools(_ context.Context) ([]*domain.Pool, error) {
	var pools []*domain.Pool
	failed := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).ForEach(func(k, v []byte) error {
			var stored StoredPool
			if err := sonic.Unmarshal(v, &stored); err != nil {
				log.Error().Str("collection", string(k)).Err(err).Msg("[poolStorage] failed to unmarshal pool, skipping")
				failed++
				return nil
			}
			pool, err := storedToPool(&stored)
			if err != nil {
				log.Error().Str("collection", string(k)).Err(err).Msg("[poolStorage] failed to convert stored pool, skipping")
				failed++
				return nil
			}
			pools = append(pools, pool)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	if failed > 0 {
		log.Warn().Int("loaded", len(pools)).Int("failed", failed).Msg("[poolStorage] pool listing completed with errors")
	}
	return pools, nil
}

func (s *BoltStore) CreatePool(_ context.Context, pool *domain.Pool) error {
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now

	data, err := sonic.Marshal(poolToStored(pool))
	if err != nil {
		return fmt.Errorf("failed to marshal pool: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(PoolsBucket))
		if b.Get([]byte(pool.CollectionID)) != nil {
			return domain.ErrPoolExists
		}
		return b.Put([]byte(pool.CollectionID), data)
	})
}

func (s *BoltStore) StorePoolKeyMaterial(_ context.Context, km *domain.PoolKeyMaterial) error {
	if km.CreatedAt.IsZero() {
		km.CreatedAt = time.Now().UTC()
	}
	stored, err := keyMaterialToStored(km, s.sealer)
	if err != nil {
		return err
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal key material: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolKeysBucket)).Put([]byte(km.PublicKey.String()), data)
	})
}

func (s *BoltStore) UpdatePoolStats(_ context.Context, collectionID string, nftCount uint64, volumeLamports uint64) error {
	return s.updatePool(collectionID, func(p *domain.Pool) error {
		p.NFTCount = nftCount
		if volumeLamports > 0 {
			sum, err := addVolume(p.TotalVolume, volumeLamports)
			if err != nil {
				return err
			}
			p.TotalVolume = sum
		}
		return nil
	})
}

func (s *BoltStore) AddPoolVolume(_ context.Context, collectionID string, volumeLamports uint64) error {
	return s.updatePool(collectionID, func(p *domain.Pool) error {
		sum, err := addVolume(p.TotalVolume, volumeLamports)
		if err != nil {
			return err
		}
		p.TotalVolume = sum
		return nil
	})
}

func (s *BoltStore) SetPoolActive(_ context.Context, collectionID string, active bool) error {
	return s.updatePool(collectionID, func(p *domain.Pool) error {
		p.IsActive = active
		return nil
	})
}

// DeletePool removes the pool and, in the same transaction, its key material.
func (s *BoltStore) DeletePool(_ context.Context, collectionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		pools := tx.Bucket([]byte(PoolsBucket))
		raw := pools.Get([]byte(collectionID))
		if raw == nil {
			return domain.ErrPoolNotFound
		}
		var stored StoredPool
		if err := sonic.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal pool: %w", err)
		}
		if err := tx.Bucket([]byte(PoolKeysBucket)).Delete([]byte(stored.PoolAddress)); err != nil {
			return err
		}
		return pools.Delete([]byte(collectionID))
	})
}

func (s *BoltStore) updatePool(collectionID string, mutate func(*domain.Pool) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(PoolsBucket))
		raw := b.Get([]byte(collectionID))
		if raw == nil {
			return domain.ErrPoolNotFound
		}
		var stored StoredPool
		if err := sonic.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal pool: %w", err)
		}
		pool, err := storedToPool(&stored)
		if err != nil {
			return err
		}
		if err := mutate(pool); err != nil {
			return err
		}
		pool.UpdatedAt = time.Now().UTC()
		data, err := sonic.Marshal(poolToStored(pool))
		if err != nil {
			return fmt.Errorf("failed to marshal pool: %w", err)
		}
		return b.Put([]byte(collectionID), data)
	})
}
