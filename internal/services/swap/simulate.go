package swap

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

// Simulator is implemented by *rpc.Client. When the chain client has it and
// simulation is enabled, Prepare dry-runs the unsigned transaction before
// the pool signs.
type Simulator interface {
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
}

var _ Simulator = (*rpc.Client)(nil)

// WithSimulation turns the pre-sign dry run on or off.
func WithSimulation(enabled bool) Option {
	return func(e *Executor) { e.simulate = enabled }
}

func (e *Executor) simulateSwap(ctx context.Context, tx *solana.Transaction) error {
	if !e.simulate {
		return nil
	}
	sim, ok := e.chain.(Simulator)
	if !ok {
		return nil
	}

	res, err := sim.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		// best effort, the send preflight still runs
		log.Warn().Err(err).Msg("[swap] simulation unavailable")
		return nil
	}
	if res == nil || res.Value == nil || res.Value.Err == nil {
		return nil
	}

	detail, _ := sonic.MarshalString(res.Value.Err)
	logs := strings.Join(res.Value.Logs, "\n")
	log.Warn().Str("err", detail).Int("logs", len(res.Value.Logs)).Msg("[swap] simulation failed")

	lower := strings.ToLower(detail + " " + logs)
	switch {
	case strings.Contains(lower, "insufficient"):
		return newError(ErrInsufficientBalance, "Simulation failed: insufficient funds", nil)
	case strings.Contains(lower, "blockhashnotfound"):
		return newError(ErrNetworkOrBlockhash, "Simulation failed: blockhash not found", nil)
	}
	return newError(ErrTransactionExecutionFailed, fmt.Sprintf("Simulation failed: %s", detail), nil)
}
