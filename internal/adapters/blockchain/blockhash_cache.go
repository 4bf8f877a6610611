package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/metrics"
)

const (
	DefaultBlockhashRefresh = 2 * time.Second
	DefaultBlockhashMaxAge  = 5 * time.Second
)

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

// BlockhashFetcher is the RPC call the cache depends on. *rpc.Client satisfies it.
type BlockhashFetcher interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// BlockhashCache keeps a recent finalized blockhash warm so transaction
// builds do not pay for an RPC round trip.
type BlockhashCache struct {
	mu      sync.RWMutex
	current *CachedBlockhash

	rpc      BlockhashFetcher
	refresh  time.Duration
	maxAge   time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

func NewBlockhashCache(fetcher BlockhashFetcher, refresh, maxAge time.Duration) *BlockhashCache {
	if refresh <= 0 {
		refresh = DefaultBlockhashRefresh
	}
	if maxAge <= 0 {
		maxAge = DefaultBlockhashMaxAge
	}
	return &BlockhashCache{
		rpc:     fetcher,
		refresh: refresh,
		maxAge:  maxAge,
		stop:    make(chan struct{}),
	}
}

// Start primes the cache and refreshes it in the background until Stop.
func (c *BlockhashCache) Start(ctx context.Context) {
	if _, err := c.fetch(ctx); err != nil {
		log.Warn().Err(err).Msg("[BlockhashCache] failed to fetch initial blockhash, will retry on first request")
	}

	go func() {
		ticker := time.NewTicker(c.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				fetchCtx, cancel := context.WithTimeout(ctx, c.refresh)
				if _, err := c.fetch(fetchCtx); err != nil {
					log.Debug().Err(err).Msg("[BlockhashCache] background refresh failed")
				}
				cancel()
			}
		}
	}()
}

func (c *BlockhashCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// GetBlockhash returns the cached blockhash while it is fresh, otherwise
// fetches a new one. A stale value is still served when the RPC call fails.
func (c *BlockhashCache) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()

	if cached != nil && time.Since(cached.UpdatedAt) < c.maxAge {
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Dur("age", time.Since(cached.UpdatedAt)).Msg("[BlockhashCache] serving stale blockhash")
			return cached.Blockhash, cached.LastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, err
	}
	return fresh.Blockhash, fresh.LastValidBlockHeight, nil
}

func (c *BlockhashCache) fetch(ctx context.Context) (*CachedBlockhash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		metrics.BlockhashRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	if res == nil || res.Value == nil {
		metrics.BlockhashRefreshes.WithLabelValues("error").Inc()
		return nil, ErrEmptyBlockhash
	}

	fresh := &CachedBlockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
		UpdatedAt:            time.Now(),
	}
	c.mu.Lock()
	c.current = fresh
	c.mu.Unlock()
	metrics.BlockhashRefreshes.WithLabelValues("ok").Inc()
	return fresh, nil
}
