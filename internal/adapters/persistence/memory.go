package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

// MemoryStore keeps pools in process memory. Rows go through the same stored
// form as the bolt store, so key material is still sealed.
type MemoryStore struct {
	mu     sync.RWMutex
	pools  map[string]*StoredPool
	keys   map[string]*StoredKeyMaterial
	sealer keys.Sealer
}

var _ domain.PoolRegistry = (*MemoryStore)(nil)

func NewMemoryStore(sealer keys.Sealer) *MemoryStore {
	return &MemoryStore{
		pools:  make(map[string]*StoredPool),
		keys:   make(map[string]*StoredKeyMaterial),
		sealer: sealer,
	}
}

func (s *MemoryStore) GetPool(_ context.Context, collectionID string) (*domain.Pool, error) {
	s.mu.RLock()
	stored, ok := s.pools[collectionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return storedToPool(stored)
}

func (s *MemoryStore) GetPoolKeyMaterial(_ context.Context, poolAddress solana.PublicKey) (*domain.PoolKeyMaterial, error) {
	s.mu.RLock()
	stored, ok := s.keys[poolAddress.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrKeyMaterialNotFound
	}
	return storedToKeyMaterial(stored, s.sealer)
}

func (s *MemoryStore) ListPools(_ context.Context) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]*domain.Pool, 0, len(s.pools))
	for _, stored := range s.pools {
		p, err := storedToPool(stored)
		if err != nil {
			continue
		}
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].CollectionID < pools[j].CollectionID })
	return pools, nil
}

func (s *MemoryStore) CreatePool(_ context.Context, pool *domain.Pool) error {
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[pool.CollectionID]; ok {
		return domain.ErrPoolExists
	}
	s.pools[pool.CollectionID] = poolToStored(pool)
	return nil
}

func (s *MemoryStore) StorePoolKeyMaterial(_ context.Context, km *domain.PoolKeyMaterial) error {
	if km.CreatedAt.IsZero() {
		km.CreatedAt = time.Now().UTC()
	}
	stored, err := keyMaterialToStored(km, s.sealer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.keys[stored.PublicKey] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) UpdatePoolStats(_ context.Context, collectionID string, nftCount uint64, volumeLamports uint64) error {
	return s.update(collectionID, func(p *domain.Pool) error {
		p.NFTCount = nftCount
		sum, err := addVolume(p.TotalVolume, volumeLamports)
		if err != nil {
			return err
		}
		p.TotalVolume = sum
		return nil
	})
}

func (s *MemoryStore) AddPoolVolume(_ context.Context, collectionID string, volumeLamports uint64) error {
	return s.update(collectionID, func(p *domain.Pool) error {
		sum, err := addVolume(p.TotalVolume, volumeLamports)
		if err != nil {
			return err
		}
		p.TotalVolume = sum
		return nil
	})
}

func (s *MemoryStore) SetPoolActive(_ context.Context, collectionID string, active bool) error {
	return s.update(collectionID, func(p *domain.Pool) error {
		p.IsActive = active
		return nil
	})
}

func (s *MemoryStore) DeletePool(_ context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.pools[collectionID]
	if !ok {
		return domain.ErrPoolNotFound
	}
	delete(s.pools, collectionID)
	delete(s.keys, stored.PoolAddress)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) update(collectionID string, fn func(*domain.Pool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.pools[collectionID]
	if !ok {
		return domain.ErrPoolNotFound
	}
	p, err := storedToPool(stored)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	s.pools[collectionID] = poolToStored(p)
	return nil
}
