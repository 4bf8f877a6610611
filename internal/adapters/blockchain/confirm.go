package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog/log"
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrEmptyBlockhash      = errors.New("rpc returned no blockhash")
)

// TransactionFailedError carries the error the chain reported for a
// confirmed but failed transaction.
type TransactionFailedError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TransactionFailedError) Error() string {
	raw, err := sonic.MarshalString(e.Err)
	if err != nil {
		raw = fmt.Sprint(e.Err)
	}
	return "Transaction failed: " + raw
}

type Confirmation struct {
	Signature solana.Signature
	Slot      uint64
	Status    rpc.ConfirmationStatusType
}

type SignatureStatusFetcher interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// PollingConfirmer waits for finality by polling getSignatureStatuses.
type PollingConfirmer struct {
	rpc      SignatureStatusFetcher
	interval time.Duration
	timeout  time.Duration
}

func NewPollingConfirmer(fetcher SignatureStatusFetcher, interval, timeout time.Duration) *PollingConfirmer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &PollingConfirmer{rpc: fetcher, interval: interval, timeout: timeout}
}

// Confirm blocks until sig is finalized, fails on chain, or the timeout
// expires. Expiry returns ErrConfirmationTimeout; the transaction may still
// land and should be re-queried by signature.
func (c *PollingConfirmer) Confirm(ctx context.Context, sig solana.Signature) (*Confirmation, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.poll(ctx, waitCtx, sig)
}

func (c *PollingConfirmer) poll(parent, ctx context.Context, sig solana.Signature) (*Confirmation, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var last rpc.ConfirmationStatusType
	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Debug().Err(err).Str("signature", sig.String()).Msg("[confirmer] status poll failed")
		case err == nil && res != nil && len(res.Value) > 0 && res.Value[0] != nil:
			st := res.Value[0]
			if st.Err != nil {
				return nil, &TransactionFailedError{Signature: sig, Err: st.Err}
			}
			if st.ConfirmationStatus != last {
				last = st.ConfirmationStatus
				log.Debug().Str("signature", sig.String()).Str("status", string(last)).Uint64("slot", st.Slot).Msg("[confirmer] status changed")
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return &Confirmation{Signature: sig, Slot: st.Slot, Status: st.ConfirmationStatus}, nil
			}
		}

		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}

// WSConfirmer waits on a signatureSubscribe notification at finalized
// commitment and falls back to polling when the socket is unusable.
type WSConfirmer struct {
	wsURL    string
	fallback *PollingConfirmer
	timeout  time.Duration
}

func NewWSConfirmer(wsURL string, fallback *PollingConfirmer, timeout time.Duration) *WSConfirmer {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &WSConfirmer{wsURL: wsURL, fallback: fallback, timeout: timeout}
}

func (c *WSConfirmer) Confirm(ctx context.Context, sig solana.Signature) (*Confirmation, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ws.Connect(waitCtx, c.wsURL)
	if err != nil {
		log.Warn().Err(err).Msg("[confirmer] websocket connect failed, polling instead")
		return c.fallback.poll(ctx, waitCtx, sig)
	}
	defer client.Close()

	sub, err := client.SignatureSubscribe(sig, rpc.CommitmentFinalized)
	if err != nil {
		log.Warn().Err(err).Msg("[confirmer] signatureSubscribe failed, polling instead")
		return c.fallback.poll(ctx, waitCtx, sig)
	}
	defer sub.Unsubscribe()

	res, err := sub.Recv(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if waitCtx.Err() != nil {
			return nil, ErrConfirmationTimeout
		}
		log.Warn().Err(err).Msg("[confirmer] subscription broke, polling instead")
		return c.fallback.poll(ctx, waitCtx, sig)
	}
	if res.Value.Err != nil {
		return nil, &TransactionFailedError{Signature: sig, Err: res.Value.Err}
	}
	return &Confirmation{Signature: sig, Slot: res.Context.Slot, Status: rpc.ConfirmationStatusFinalized}, nil
}
