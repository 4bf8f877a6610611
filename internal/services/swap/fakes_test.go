package swap

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/assets"
)

// fakeChain is an in-memory ledger that accepts fully signed transactions
// and credits the fee transfer to its recipient.
type fakeChain struct {
	mu sync.Mutex

	blockhash  solana.Hash
	accounts   map[solana.PublicKey]*rpc.Account
	balances   map[solana.PublicKey]uint64
	sendErr    error
	statusErr  interface{}
	withMeta   bool
	metaSkew   int64
	sent       []*solana.Transaction
	hashCalls  int
	statusSeen int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blockhash: solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes()),
		accounts:  make(map[solana.PublicKey]*rpc.Account),
		balances:  make(map[solana.PublicKey]uint64),
	}
}

func (c *fakeChain) addAccount(pk solana.PublicKey, executable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pk] = &rpc.Account{Executable: executable, Owner: solana.SystemProgramID}
}

func (c *fakeChain) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChain) lastSent() *solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeChain) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashCalls++
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: c.blockhash, LastValidBlockHeight: 1000},
	}, nil
}

func (c *fakeChain) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (c *fakeChain) GetBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &rpc.GetBalanceResult{Value: c.balances[account]}, nil
}

func (c *fakeChain) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	if c.sendErr != nil {
		return solana.Signature{}, c.sendErr
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	if to, lamports, ok := systemTransfer(tx); ok {
		c.balances[to] += lamports
	}
	return tx.Signatures[0], nil
}

func (c *fakeChain) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusSeen++
	out := &rpc.GetSignatureStatusesResult{}
	for range sigs {
		out.Value = append(out.Value, &rpc.SignatureStatusesResult{
			Slot:               99,
			Err:                c.statusErr,
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
		})
	}
	return out, nil
}

func (c *fakeChain) GetTransaction(_ context.Context, sig solana.Signature, _ *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.withMeta {
		return nil, rpc.ErrNotFound
	}
	for _, tx := range c.sent {
		if tx.Signatures[0] != sig {
			continue
		}
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, err
		}
		env := &rpc.TransactionResultEnvelope{}
		if err := env.UnmarshalJSON([]byte(`["` + base64.StdEncoding.EncodeToString(raw) + `","base64"]`)); err != nil {
			return nil, err
		}
		n := len(tx.Message.AccountKeys)
		pre, post := make([]uint64, n), make([]uint64, n)
		if to, lamports, ok := systemTransfer(tx); ok {
			for i, k := range tx.Message.AccountKeys {
				if k.Equals(to) {
					post[i] = uint64(int64(lamports) + c.metaSkew)
				}
			}
		}
		return &rpc.GetTransactionResult{
			Slot:        99,
			Transaction: env,
			Meta:        &rpc.TransactionMeta{Fee: 5000, PreBalances: pre, PostBalances: post},
		}, nil
	}
	return nil, rpc.ErrNotFound
}

// systemTransfer decodes the leading system transfer of tx, if any.
func systemTransfer(tx *solana.Transaction) (solana.PublicKey, uint64, bool) {
	if len(tx.Message.Instructions) == 0 {
		return solana.PublicKey{}, 0, false
	}
	inst := tx.Message.Instructions[0]
	prog, err := tx.ResolveProgramIDIndex(inst.ProgramIDIndex)
	if err != nil || !prog.Equals(solana.SystemProgramID) || len(inst.Data) != 12 || len(inst.Accounts) < 2 {
		return solana.PublicKey{}, 0, false
	}
	if binary.LittleEndian.Uint32(inst.Data[:4]) != 2 {
		return solana.PublicKey{}, 0, false
	}
	return tx.Message.AccountKeys[inst.Accounts[1]], binary.LittleEndian.Uint64(inst.Data[4:]), true
}

type fakeConfirmer struct {
	err   error
	calls atomic.Int32
}

func (f *fakeConfirmer) Confirm(_ context.Context, sig solana.Signature) (*blockchain.Confirmation, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &blockchain.Confirmation{Signature: sig, Slot: 77, Status: rpc.ConfirmationStatusFinalized}, nil
}

type stubAssets struct {
	mu       sync.Mutex
	assets   map[string]*domain.Asset
	balances map[string]decimal.Decimal
	err      error
	calls    atomic.Int32
}

func (s *stubAssets) GetAsset(_ context.Context, mint string) (*domain.Asset, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.assets[mint]
	if !ok {
		return nil, assets.ErrAssetNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubAssets) GetWalletBalance(_ context.Context, address string) (decimal.Decimal, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.balances[address], nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
	failed  []error
	alerts  []string
}

func (a *recordingAuditor) Audit(action string, _ map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *recordingAuditor) LogFailedTransaction(err error, _ map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, err)
}

func (a *recordingAuditor) LogSuspiciousActivity(activity string, _ map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, activity)
}

func (a *recordingAuditor) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

type rejectingSigner struct{}

func (rejectingSigner) SignTransaction(context.Context, *solana.Transaction) error {
	return ErrSignerRejected
}

type brokenSigner struct{}

func (brokenSigner) SignTransaction(context.Context, *solana.Transaction) error {
	return errors.New("method not implemented")
}
