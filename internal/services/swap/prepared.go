package swap

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
)

// PreparedSwap is a built transaction carrying the pool's signature and
// waiting for the user's.
type PreparedSwap struct {
	ID     string
	Intent domain.SwapIntent

	UserWallet  solana.PublicKey
	PoolAddress solana.PublicKey

	FeeLamports  uint64
	FeeSOL       decimal.Decimal
	FeeCollector solana.PublicKey

	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Instructions         int
	Size                 int

	PreparedAt time.Time

	// message is the exact byte string both parties sign.
	message []byte
	raw     []byte
}

// Transaction decodes a fresh copy of the pool-signed transaction.
func (p *PreparedSwap) Transaction() (*solana.Transaction, error) {
	return solana.TransactionFromDecoder(bin.NewBinDecoder(p.raw))
}

// Encoded returns the pool-signed transaction as base64 for a client wallet.
func (p *PreparedSwap) Encoded() string {
	return base64.StdEncoding.EncodeToString(p.raw)
}

// Message returns a copy of the serialized message.
func (p *PreparedSwap) Message() []byte {
	return append([]byte(nil), p.message...)
}

func newSwapID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("swap-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// PreparedStore parks prepared swaps between Prepare and Submit. Each entry
// can be taken once and expires with its blockhash.
type PreparedStore struct {
	cache *common.BoundedLRUCache[string, *PreparedSwap]
}

func NewPreparedStore(capacity int, ttl time.Duration) *PreparedStore {
	return &PreparedStore{cache: common.NewBoundedLRUCache[string, *PreparedSwap](capacity, ttl)}
}

func (s *PreparedStore) Put(p *PreparedSwap) {
	s.cache.Set(p.ID, p)
	metrics.PreparedSwapCacheSize.Set(float64(s.cache.Size()))
}

func (s *PreparedStore) Take(id string) (*PreparedSwap, bool) {
	p, ok := s.cache.Take(id)
	metrics.PreparedSwapCacheSize.Set(float64(s.cache.Size()))
	return p, ok
}

// Peek returns a prepared swap without consuming it.
func (s *PreparedStore) Peek(id string) (*PreparedSwap, bool) {
	return s.cache.Get(id)
}

func (s *PreparedStore) Purge() int {
	n := s.cache.PurgeExpired()
	metrics.PreparedSwapCacheSize.Set(float64(s.cache.Size()))
	return n
}

func (s *PreparedStore) Len() int {
	return s.cache.Size()
}
