package persistence

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

type StoredPool struct {
	CollectionID      string `json:"collectionId"`
	CollectionName    string `json:"collectionName"`
	CollectionSymbol  string `json:"collectionSymbol"`
	CollectionImage   string `json:"collectionImage,omitempty"`
	Description       string `json:"description,omitempty"`
	CollectionAddress string `json:"collectionAddress"`
	PoolAddress       string `json:"poolAddress"`
	SwapFee           string `json:"swapFee"` // SOL, decimal string
	IsActive          bool   `json:"isActive"`
	NFTCount          uint64 `json:"nftCount"`
	TotalVolume       string `json:"totalVolume"` // lamports, decimal string
	CreatedBy         string `json:"createdBy"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

// StoredKeyMaterial is the at-rest form of domain.PoolKeyMaterial. The
// secret text only ever appears here sealed.
type StoredKeyMaterial struct {
	PublicKey          string `json:"public_key"`
	EncryptedSecretKey string `json:"encrypted_secret_key"`
	HasPrivateKey      bool   `json:"has_private_key"`
	CreatedAt          int64  `json:"created_at"`
}

func poolToStored(p *domain.Pool) *StoredPool {
	volume := "0"
	if p.TotalVolume != nil {
		volume = p.TotalVolume.Dec()
	}
	return &StoredPool{
		CollectionID:      p.CollectionID,
		CollectionName:    p.CollectionName,
		CollectionSymbol:  p.CollectionSymbol,
		CollectionImage:   p.CollectionImage,
		Description:       p.Description,
		CollectionAddress: p.CollectionAddress,
		PoolAddress:       p.PoolAddress.String(),
		SwapFee:           p.SwapFee.String(),
		IsActive:          p.IsActive,
		NFTCount:          p.NFTCount,
		TotalVolume:       volume,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt.UnixMilli(),
		UpdatedAt:         p.UpdatedAt.UnixMilli(),
	}
}

func storedToPool(s *StoredPool) (*domain.Pool, error) {
	addr, err := solana.PublicKeyFromBase58(s.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid pool address: %w", err)
	}
	fee, err := decimal.NewFromString(s.SwapFee)
	if err != nil {
		return nil, fmt.Errorf("invalid swap fee %q: %w", s.SwapFee, err)
	}
	volume := uint256.NewInt(0)
	if s.TotalVolume != "" {
		if volume, err = uint256.FromDecimal(s.TotalVolume); err != nil {
			return nil, fmt.Errorf("invalid total volume %q: %w", s.TotalVolume, err)
		}
	}
	return &domain.Pool{
		CollectionID:      s.CollectionID,
		CollectionName:    s.CollectionName,
		CollectionSymbol:  s.CollectionSymbol,
		CollectionImage:   s.CollectionImage,
		Description:       s.Description,
		CollectionAddress: s.CollectionAddress,
		PoolAddress:       addr,
		SwapFee:           fee,
		IsActive:          s.IsActive,
		NFTCount:          s.NFTCount,
		TotalVolume:       volume,
		CreatedBy:         s.CreatedBy,
		CreatedAt:         time.UnixMilli(s.CreatedAt).UTC(),
		UpdatedAt:         time.UnixMilli(s.UpdatedAt).UTC(),
	}, nil
}

func keyMaterialToStored(km *domain.PoolKeyMaterial, sealer keys.Sealer) (*StoredKeyMaterial, error) {
	stored := &StoredKeyMaterial{
		PublicKey:     km.PublicKey.String(),
		HasPrivateKey: km.HasPrivateKey,
		CreatedAt:     km.CreatedAt.UnixMilli(),
	}
	if km.SecretKey != "" {
		blob, err := sealer.Seal([]byte(km.SecretKey))
		if err != nil {
			return nil, fmt.Errorf("seal key material: %w", err)
		}
		stored.EncryptedSecretKey = blob
	}
	return stored, nil
}

func storedToKeyMaterial(s *StoredKeyMaterial, sealer keys.Sealer) (*domain.PoolKeyMaterial, error) {
	pub, err := solana.PublicKeyFromBase58(s.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid key material public key: %w", err)
	}
	km := &domain.PoolKeyMaterial{
		PublicKey:     pub,
		HasPrivateKey: s.HasPrivateKey,
		CreatedAt:     time.UnixMilli(s.CreatedAt).UTC(),
	}
	if s.EncryptedSecretKey != "" {
		plain, err := sealer.Unseal(s.EncryptedSecretKey)
		if err != nil {
			return nil, err
		}
		km.SecretKey = string(plain)
	}
	return km, nil
}

// addVolume increments a lamport volume, refusing to wrap.
func addVolume(current *uint256.Int, delta uint64) (*uint256.Int, error) {
	if current == nil {
		current = uint256.NewInt(0)
	}
	sum, overflow := new(uint256.Int).AddOverflow(current, uint256.NewInt(delta))
	if overflow {
		return nil, domain.ErrVolumeOverflow
	}
	return sum, nil
}
