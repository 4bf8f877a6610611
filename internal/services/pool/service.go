// Package pool administers pools and their custodial key material.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
	"github.com/hxuan190/nft-swap-engine/internal/services"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

var (
	ErrInvalidPool  = errors.New("invalid pool definition")
	ErrNoPrivateKey = errors.New("pool has no private key to export")
)

const exportWarning = "This file contains the pool's private key. Anyone holding it can move every NFT in the pool. Store it offline."

// refreshConcurrency bounds indexer calls during RefreshAll.
const refreshConcurrency = 4

type KeyMode string

const (
	KeyModeGenerate    KeyMode = "generate"
	KeyModeImport      KeyMode = "import"
	KeyModeAddressOnly KeyMode = "address_only"
)

type CreateRequest struct {
	CollectionID      string
	CollectionName    string
	CollectionSymbol  string
	CollectionImage   string
	Description       string
	CollectionAddress string
	SwapFee           decimal.Decimal
	CreatedBy         string

	Mode        KeyMode
	PoolAddress string // import (optional) and address_only
	SecretKey   string // import
}

type WalletExport struct {
	PublicKey  string    `json:"publicKey"`
	SecretKey  []int     `json:"secretKey"`
	ExportedAt time.Time `json:"exportedAt"`
	Warning    string    `json:"warning"`
}

type AssetLister interface {
	PoolNFTs(ctx context.Context, pool *domain.Pool) ([]*domain.Asset, error)
}

type Auditor interface {
	Audit(action string, fields map[string]any)
}

type Service struct {
	registry   domain.PoolRegistry
	assets     AssetLister
	auditor    Auditor
	maxSwapFee decimal.Decimal
	log        *services.ServiceLogger
	now        func() time.Time
}

func NewService(registry domain.PoolRegistry, assets AssetLister, auditor Auditor, maxSwapFee decimal.Decimal) *Service {
	s := &Service{
		registry:   registry,
		assets:     assets,
		auditor:    auditor,
		maxSwapFee: maxSwapFee,
		now:        time.Now,
	}
	s.log = services.NewServiceLogger(s)
	return s
}

func (s *Service) ID() string {
	return "pool-admin"
}

func (s *Service) Get(ctx context.Context, collectionID string) (*domain.Pool, error) {
	return s.registry.GetPool(ctx, collectionID)
}

func (s *Service) List(ctx context.Context) ([]*domain.Pool, error) {
	return s.registry.ListPools(ctx)
}

func (s *Service) validate(req *CreateRequest) error {
	req.CollectionID = strings.TrimSpace(req.CollectionID)
	switch {
	case req.CollectionID == "":
		return fmt.Errorf("%w: collection id is required", ErrInvalidPool)
	case len(req.CollectionID) > common.MaxCollectionIDLength:
		return fmt.Errorf("%w: collection id longer than %d characters", ErrInvalidPool, common.MaxCollectionIDLength)
	case strings.TrimSpace(req.CollectionName) == "":
		return fmt.Errorf("%w: collection name is required", ErrInvalidPool)
	case req.SwapFee.IsNegative() || req.SwapFee.GreaterThan(s.maxSwapFee):
		return fmt.Errorf("%w: swap fee must be between 0 and %s SOL", ErrInvalidPool, s.maxSwapFee)
	case req.CollectionAddress != "" && !keys.IsValidAddress(req.CollectionAddress):
		return fmt.Errorf("%w: invalid collection address", ErrInvalidPool)
	}
	return nil
}

// custody resolves the pool address and the key material to store for req.
// A nil key material means the pool is registered without a signer.
func custody(req *CreateRequest) (solana.PublicKey, *domain.PoolKeyMaterial, error) {
	switch req.Mode {
	case KeyModeGenerate, "":
		pk, text, err := keys.NewPoolKeypair()
		if err != nil {
			return solana.PublicKey{}, nil, err
		}
		return pk.PublicKey(), &domain.PoolKeyMaterial{PublicKey: pk.PublicKey(), SecretKey: text, HasPrivateKey: true}, nil

	case KeyModeImport:
		secret, err := keys.ParseSecretKey(req.SecretKey)
		if err != nil {
			return solana.PublicKey{}, nil, err
		}
		pk, err := keys.DeriveKeypair(secret)
		if err != nil {
			return solana.PublicKey{}, nil, err
		}
		if req.PoolAddress != "" && req.PoolAddress != pk.PublicKey().String() {
			return solana.PublicKey{}, nil, fmt.Errorf("%w: secret key belongs to %s", keys.ErrKeyMismatch, pk.PublicKey())
		}
		return pk.PublicKey(), &domain.PoolKeyMaterial{PublicKey: pk.PublicKey(), SecretKey: keys.EncodeSecretKey(secret), HasPrivateKey: true}, nil

	case KeyModeAddressOnly:
		addr, err := keys.ParseAddress(req.PoolAddress)
		if err != nil {
			return solana.PublicKey{}, nil, err
		}
		return addr, nil, nil
	}
	return solana.PublicKey{}, nil, fmt.Errorf("%w: unknown key mode %q", ErrInvalidPool, req.Mode)
}

// Create registers a pool. Key material is stored after the pool row and the
// row is removed again if that fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Pool, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	addr, km, err := custody(&req)
	if err != nil {
		return nil, err
	}

	pool := &domain.Pool{
		CollectionID:      req.CollectionID,
		CollectionName:    strings.TrimSpace(req.CollectionName),
		CollectionSymbol:  req.CollectionSymbol,
		CollectionImage:   req.CollectionImage,
		Description:       req.Description,
		CollectionAddress: req.CollectionAddress,
		PoolAddress:       addr,
		SwapFee:           req.SwapFee,
		IsActive:          true,
		CreatedBy:         req.CreatedBy,
	}
	if err := s.registry.CreatePool(ctx, pool); err != nil {
		return nil, err
	}
	if km != nil {
		if err := s.registry.StorePoolKeyMaterial(ctx, km); err != nil {
			if delErr := s.registry.DeletePool(ctx, pool.CollectionID); delErr != nil {
				s.log.Collection(pool.CollectionID).Error().Err(delErr).Msg("rollback after key store failure failed")
			}
			return nil, fmt.Errorf("store key material: %w", err)
		}
	}

	metrics.PoolCount.Inc()
	mode := req.Mode
	if mode == "" {
		mode = KeyModeGenerate
	}
	s.log.Collection(pool.CollectionID).Info().Str("pool", addr.String()).Str("mode", string(mode)).Msg("pool created")
	s.auditor.Audit(monitor.AuditPoolCreated, map[string]any{
		"collection": pool.CollectionID,
		"pool":       addr.String(),
		"mode":       string(mode),
		"created_by": req.CreatedBy,
	})
	return pool, nil
}

func (s *Service) Delete(ctx context.Context, collectionID string) error {
	if err := s.registry.DeletePool(ctx, collectionID); err != nil {
		return err
	}
	metrics.PoolCount.Dec()
	metrics.PoolNFTCount.DeleteLabelValues(collectionID)
	s.auditor.Audit(monitor.AuditPoolDeleted, map[string]any{"collection": collectionID})
	return nil
}

func (s *Service) SetActive(ctx context.Context, collectionID string, active bool) error {
	if err := s.registry.SetPoolActive(ctx, collectionID, active); err != nil {
		return err
	}
	s.log.Collection(collectionID).Info().Bool("active", active).Msg("pool status changed")
	return nil
}

// ExportWallet renders the pool keypair as JSON for offline backup.
func (s *Service) ExportWallet(ctx context.Context, collectionID string) ([]byte, error) {
	pool, err := s.registry.GetPool(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	km, err := s.registry.GetPoolKeyMaterial(ctx, pool.PoolAddress)
	if err != nil {
		return nil, err
	}
	if !km.HasPrivateKey || km.SecretKey == "" {
		return nil, ErrNoPrivateKey
	}
	secret, err := keys.ParseSecretKey(km.SecretKey)
	if err != nil {
		return nil, err
	}

	out := WalletExport{
		PublicKey:  pool.PoolAddress.String(),
		SecretKey:  make([]int, len(secret)),
		ExportedAt: s.now().UTC(),
		Warning:    exportWarning,
	}
	for i, b := range secret {
		out.SecretKey[i] = int(b)
	}
	data, err := sonic.Marshal(out)
	if err != nil {
		return nil, err
	}
	s.auditor.Audit(monitor.AuditWalletExported, map[string]any{
		"collection": collectionID,
		"pool":       pool.PoolAddress.String(),
	})
	return data, nil
}

// ImportWallet attaches key material to an existing pool. data is either an
// export document or the bare secret key text; its public key must equal
// the pool address.
func (s *Service) ImportWallet(ctx context.Context, collectionID string, data []byte) error {
	pool, err := s.registry.GetPool(ctx, collectionID)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(string(data))
	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		doc := gjson.Parse(text)
		if pub := doc.Get("publicKey").String(); pub != "" && pub != pool.PoolAddress.String() {
			return fmt.Errorf("%w: wallet is for %s, pool is %s", keys.ErrKeyMismatch, pub, pool.PoolAddress)
		}
		text = doc.Get("secretKey").Raw
	}

	pk, err := keys.DeriveForAddress(text, pool.PoolAddress)
	if err != nil {
		return err
	}
	km := &domain.PoolKeyMaterial{
		PublicKey:     pool.PoolAddress,
		SecretKey:     keys.EncodeSecretKey(pk),
		HasPrivateKey: true,
	}
	if err := s.registry.StorePoolKeyMaterial(ctx, km); err != nil {
		return err
	}
	s.auditor.Audit(monitor.AuditWalletImported, map[string]any{
		"collection": collectionID,
		"pool":       pool.PoolAddress.String(),
	})
	return nil
}

// RefreshNFTCount recounts the collection NFTs the pool wallet holds.
func (s *Service) RefreshNFTCount(ctx context.Context, collectionID string) (uint64, error) {
	pool, err := s.registry.GetPool(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	nfts, err := s.assets.PoolNFTs(ctx, pool)
	if err != nil {
		return 0, err
	}
	count := uint64(len(nfts))
	if err := s.registry.UpdatePoolStats(ctx, collectionID, count, 0); err != nil {
		return 0, err
	}
	metrics.PoolNFTCount.WithLabelValues(collectionID).Set(float64(count))
	return count, nil
}

// RefreshAll recounts every pool. Failures are collected per pool and do not
// stop the others.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	pools, err := s.registry.ListPools(ctx)
	if err != nil {
		return 0, err
	}
	metrics.PoolCount.Set(float64(len(pools)))

	errs := make([]error, len(pools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i, p := range pools {
		g.Go(func() error {
			if _, err := s.RefreshNFTCount(gctx, p.CollectionID); err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.CollectionID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	refreshed := 0
	for _, err := range errs {
		if err == nil {
			refreshed++
		}
	}
	if joined := errors.Join(errs...); joined != nil {
		s.log.Warn().Err(joined).Int("refreshed", refreshed).Int("total", len(pools)).Msg("pool refresh incomplete")
		return refreshed, joined
	}
	return refreshed, nil
}
