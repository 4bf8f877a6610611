package swap

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
)

// ChainRPC is the part of *rpc.Client the executor uses.
type ChainRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

var _ ChainRPC = (*rpc.Client)(nil)

// BlockhashSource hands out a recent finalized blockhash.
type BlockhashSource interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
}

var _ BlockhashSource = (*blockchain.BlockhashCache)(nil)

type Confirmer interface {
	Confirm(ctx context.Context, sig solana.Signature) (*blockchain.Confirmation, error)
}

var (
	_ Confirmer = (*blockchain.PollingConfirmer)(nil)
	_ Confirmer = (*blockchain.WSConfirmer)(nil)
)

// PoolStore is the part of domain.PoolRegistry the executor reads and writes.
type PoolStore interface {
	GetPool(ctx context.Context, collectionID string) (*domain.Pool, error)
	AddPoolVolume(ctx context.Context, collectionID string, volumeLamports uint64) error
}

type CapabilityChecker interface {
	Evaluate(ctx context.Context, pool *domain.Pool) (capability.Result, error)
	LoadSigner(ctx context.Context, pool *domain.Pool) (solana.PrivateKey, error)
}

var _ CapabilityChecker = (*capability.Evaluator)(nil)

type AssetReader interface {
	GetAsset(ctx context.Context, mint string) (*domain.Asset, error)
	GetWalletBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Auditor receives audit records and failed swaps. *monitor.Monitor
// implements it.
type Auditor interface {
	Audit(action string, fields map[string]any)
	LogFailedTransaction(err error, details map[string]string)
	LogSuspiciousActivity(activity string, details map[string]string)
}

type nopAuditor struct{}

func (nopAuditor) Audit(string, map[string]any)                    {}
func (nopAuditor) LogFailedTransaction(error, map[string]string)   {}
func (nopAuditor) LogSuspiciousActivity(string, map[string]string) {}

// directBlockhash fetches a blockhash per call when no cache is wired.
type directBlockhash struct {
	rpc ChainRPC
}

func (d directBlockhash) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	res, err := d.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, 0, err
	}
	if res == nil || res.Value == nil || res.Value.Blockhash.IsZero() {
		return solana.Hash{}, 0, blockchain.ErrEmptyBlockhash
	}
	return res.Value.Blockhash, res.Value.LastValidBlockHeight, nil
}
