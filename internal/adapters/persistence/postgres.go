package persistence

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
)

//go:embed schema.sql
var schemaSQL string

const pgErrUniqueViolation = "23505"

// PostgresStore is a domain.PoolRegistry backed by PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	sealer keys.Sealer
}

var _ domain.PoolRegistry = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string, sealer keys.Sealer) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info().Str("host", config.ConnConfig.Host).Msg("[poolStorage] connected to postgres")
	return &PostgresStore{pool: pool, sealer: sealer}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const poolColumns = `collection_id, collection_name, collection_symbol, collection_image, description,
	collection_address, pool_address, swap_fee::TEXT, is_active, nft_count, total_volume::TEXT,
	created_by, created_at, updated_at`

func (s *PostgresStore) GetPool(ctx context.Context, collectionID string) (*domain.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE collection_id = $1`, collectionID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPoolKeyMaterial(ctx context.Context, poolAddress solana.PublicKey) (*domain.PoolKeyMaterial, error) {
	var stored StoredKeyMaterial
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT public_key, encrypted_secret_key, has_private_key, created_at
		FROM pool_keys WHERE public_key = $1
	`, poolAddress.String()).Scan(&stored.PublicKey, &stored.EncryptedSecretKey, &stored.HasPrivateKey, &createdAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.ErrKeyMaterialNotFound
		}
		return nil, fmt.Errorf("get key material: %w", err)
	}
	stored.CreatedAt = createdAt.UnixMilli()
	return storedToKeyMaterial(&stored, s.sealer)
}

func (s *PostgresStore) ListPools(ctx context.Context) ([]*domain.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools ORDER BY created_at ASC, collection_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var pools []*domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func (s *PostgresStore) CreatePool(ctx context.Context, p *domain.Pool) error {
	stored := poolToStored(p)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			collection_id, collection_name, collection_symbol, collection_image, description,
			collection_address, pool_address, swap_fee, is_active, nft_count, total_volume, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::NUMERIC, $9, $10, $11::NUMERIC, $12)
	`,
		stored.CollectionID, stored.CollectionName, stored.CollectionSymbol, stored.CollectionImage,
		stored.Description, stored.CollectionAddress, stored.PoolAddress, stored.SwapFee,
		stored.IsActive, int64(stored.NFTCount), stored.TotalVolume, stored.CreatedBy,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrPoolExists
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

func (s *PostgresStore) StorePoolKeyMaterial(ctx context.Context, km *domain.PoolKeyMaterial) error {
	stored, err := keyMaterialToStored(km, s.sealer)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_keys (public_key, encrypted_secret_key, has_private_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (public_key) DO UPDATE
		SET encrypted_secret_key = EXCLUDED.encrypted_secret_key,
		    has_private_key = EXCLUDED.has_private_key
	`, stored.PublicKey, stored.EncryptedSecretKey, stored.HasPrivateKey)
	if err != nil {
		return fmt.Errorf("store key material: %w", err)
	}
	return nil
}

// UpdatePoolStats sets the NFT count and adds to the volume.
func (s *PostgresStore) UpdatePoolStats(ctx context.Context, collectionID string, nftCount uint64, volumeLamports uint64) error {
	return s.addVolume(ctx, collectionID, volumeLamports, `
		UPDATE pools SET nft_count = $3, total_volume = $2::NUMERIC, updated_at = NOW()
		WHERE collection_id = $1
	`, int64(nftCount))
}

func (s *PostgresStore) AddPoolVolume(ctx context.Context, collectionID string, volumeLamports uint64) error {
	return s.addVolume(ctx, collectionID, volumeLamports, `
		UPDATE pools SET total_volume = $2::NUMERIC, updated_at = NOW()
		WHERE collection_id = $1
	`)
}

// addVolume locks the pool row and runs update with the new total as $2.
// The addition is checked against uint256 overflow before it is written.
func (s *PostgresStore) addVolume(ctx context.Context, collectionID string, volumeLamports uint64, update string, args ...any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT total_volume::TEXT FROM pools WHERE collection_id = $1 FOR UPDATE`, collectionID).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return domain.ErrPoolNotFound
		}
		return fmt.Errorf("lock pool: %w", err)
	}
	vol, err := uint256.FromDecimal(current)
	if err != nil {
		return fmt.Errorf("parse volume %q: %w", current, err)
	}
	sum, err := addVolume(vol, volumeLamports)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, update, append([]any{collectionID, sum.Dec()}, args...)...); err != nil {
		return fmt.Errorf("update pool stats: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SetPoolActive(ctx context.Context, collectionID string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pools SET is_active = $2, updated_at = NOW() WHERE collection_id = $1`, collectionID, active)
	if err != nil {
		return fmt.Errorf("set pool active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPoolNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePool(ctx context.Context, collectionID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var poolAddress string
	err = tx.QueryRow(ctx, `DELETE FROM pools WHERE collection_id = $1 RETURNING pool_address`, collectionID).Scan(&poolAddress)
	if err != nil {
		if isNotFoundError(err) {
			return domain.ErrPoolNotFound
		}
		return fmt.Errorf("delete pool: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pool_keys WHERE public_key = $1`, poolAddress); err != nil {
		return fmt.Errorf("delete key material: %w", err)
	}
	return tx.Commit(ctx)
}

func scanPool(row pgx.Row) (*domain.Pool, error) {
	var (
		s         StoredPool
		nftCount  int64
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&s.CollectionID, &s.CollectionName, &s.CollectionSymbol, &s.CollectionImage, &s.Description,
		&s.CollectionAddress, &s.PoolAddress, &s.SwapFee, &s.IsActive, &nftCount, &s.TotalVolume,
		&s.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.NFTCount = uint64(nftCount)
	s.CreatedAt = createdAt.UnixMilli()
	s.UpdatedAt = updatedAt.UnixMilli()
	return storedToPool(&s)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
