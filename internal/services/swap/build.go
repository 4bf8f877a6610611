package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

type built struct {
	tx                   *solana.Transaction
	collector            solana.PublicKey
	blockhash            solana.Hash
	lastValidBlockHeight uint64
	size                 int
}

// swapAccounts are the four token accounts a swap touches.
type swapAccounts struct {
	userSend solana.PublicKey // user ATA of the user NFT
	userRecv solana.PublicKey // user ATA of the pool NFT
	poolSend solana.PublicKey // pool ATA of the pool NFT
	poolRecv solana.PublicKey // pool ATA of the user NFT
}

func deriveAccounts(user, pool, userMint, poolMint solana.PublicKey) (swapAccounts, error) {
	var acc swapAccounts
	var err error
	if acc.userSend, err = AssociatedTokenAddress(user, userMint); err != nil {
		return acc, err
	}
	if acc.userRecv, err = AssociatedTokenAddress(user, poolMint); err != nil {
		return acc, err
	}
	if acc.poolSend, err = AssociatedTokenAddress(pool, poolMint); err != nil {
		return acc, err
	}
	if acc.poolRecv, err = AssociatedTokenAddress(pool, userMint); err != nil {
		return acc, err
	}
	return acc, nil
}

func (e *Executor) build(ctx context.Context, v *validated) (*built, error) {
	poolAddr := v.pool.PoolAddress
	acc, err := deriveAccounts(v.user, poolAddr, v.userMint, v.poolMint)
	if err != nil {
		return nil, newError(ErrUnknown, "Failed to derive token accounts", err)
	}

	out := &built{}
	var userRecvMissing, poolRecvMissing bool
	g, gctx := errgroup.WithContext(ctx)
	if v.feeLamports > 0 {
		g.Go(func() error {
			c, err := e.resolveFeeCollector(gctx)
			out.collector = c
			return err
		})
	}
	g.Go(func() error {
		h, last, err := e.blockhash.GetBlockhash(gctx)
		if err != nil {
			return newError(ErrNetworkOrBlockhash, "Failed to get recent blockhash", err)
		}
		out.blockhash, out.lastValidBlockHeight = h, last
		return nil
	})
	g.Go(func() error {
		var err error
		userRecvMissing, err = e.accountMissing(gctx, acc.userRecv)
		return err
	})
	g.Go(func() error {
		var err error
		poolRecvMissing, err = e.accountMissing(gctx, acc.poolRecv)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var instrs []solana.Instruction
	if v.feeLamports > 0 {
		instrs = append(instrs, system.NewTransferInstruction(v.feeLamports, v.user, out.collector).Build())
	}
	if userRecvMissing {
		instrs = append(instrs, newCreateATAInstruction(v.user, acc.userRecv, v.user, v.poolMint))
	}
	if poolRecvMissing {
		instrs = append(instrs, newCreateATAInstruction(v.user, acc.poolRecv, poolAddr, v.userMint))
	}
	instrs = append(instrs,
		token.NewTransferInstruction(1, acc.userSend, acc.poolRecv, v.user, nil).Build(),
		token.NewTransferInstruction(1, acc.poolSend, acc.userRecv, poolAddr, nil).Build(),
	)

	tx, err := solana.NewTransaction(instrs, out.blockhash, solana.TransactionPayer(v.user))
	if err != nil {
		return nil, newError(ErrUnknown, "Failed to assemble transaction", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, newError(ErrUnknown, "Failed to serialize transaction", err)
	}
	out.size = len(raw)
	metrics.TransactionSize.Observe(float64(out.size))
	if out.size > common.MaxTransactionSize {
		return nil, newError(ErrTransactionTooLarge,
			fmt.Sprintf("Transaction too large: %d bytes (max %d)", out.size, common.MaxTransactionSize), nil)
	}
	out.tx = tx
	return out, nil
}

func (e *Executor) accountMissing(ctx context.Context, account solana.PublicKey) (bool, error) {
	res, err := e.chain.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		return true, nil
	case err != nil:
		return false, newError(ErrNetworkOrBlockhash, "Failed to check token account "+account.String(), err)
	}
	return res == nil || res.Value == nil, nil
}

// resolveFeeCollector returns the configured collector unless it is invalid
// or executable, in which case the default collector is used.
func (e *Executor) resolveFeeCollector(ctx context.Context) (solana.PublicKey, error) {
	collector := common.DefaultFeeCollector
	if e.cfg.FeeCollector != "" {
		pk, err := solana.PublicKeyFromBase58(e.cfg.FeeCollector)
		if err != nil {
			e.rejectCollector(e.cfg.FeeCollector, "invalid address")
			return common.DefaultFeeCollector, nil
		}
		collector = pk
	}

	res, err := e.chain.GetAccountInfoWithOpts(ctx, collector, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		return collector, nil
	case err != nil:
		return solana.PublicKey{}, newError(ErrNetworkOrBlockhash, "Failed to check fee collector", err)
	}
	if res == nil || res.Value == nil || !res.Value.Executable {
		return collector, nil
	}
	if collector.Equals(common.DefaultFeeCollector) {
		return solana.PublicKey{}, newError(ErrUnknown, "Default fee collector is an executable account", nil)
	}
	e.rejectCollector(collector.String(), "executable account")
	return common.DefaultFeeCollector, nil
}

func (e *Executor) rejectCollector(configured, reason string) {
	log.Warn().Str("collector", configured).Str("reason", reason).Msg("[swap] fee collector rejected, using default")
	e.auditor.Audit(monitor.AuditInvalidFeeCollector, map[string]any{
		"configured": configured,
		"reason":     reason,
		"fallback":   common.DefaultFeeCollector.String(),
	})
}
