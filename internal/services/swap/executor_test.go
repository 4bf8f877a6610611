package swap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/nft-swap-engine/internal/adapters/blockchain"
	"github.com/hxuan190/nft-swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/config"
	"github.com/hxuan190/nft-swap-engine/internal/domain"
	"github.com/hxuan190/nft-swap-engine/internal/services/assets"
	"github.com/hxuan190/nft-swap-engine/internal/services/capability"
	"github.com/hxuan190/nft-swap-engine/internal/services/keys"
	"github.com/hxuan190/nft-swap-engine/internal/services/monitor"
)

const testCollection = "COLXYZ"

type testEnv struct {
	cfg       *config.SwapConfig
	store     *persistence.MemoryStore
	chain     *fakeChain
	assets    *stubAssets
	confirmer *fakeConfirmer
	auditor   *recordingAuditor

	pool    *domain.Pool
	poolKey solana.PrivateKey
	user    solana.PrivateKey
	intent  domain.SwapIntent

	mu     sync.Mutex
	states []domain.SwapState
}

type envOption func(*testEnv)

func withoutKeyMaterial() envOption {
	return func(e *testEnv) { e.poolKey = nil }
}

func withFee(fee string) envOption {
	return func(e *testEnv) { e.pool.SwapFee = decimal.RequireFromString(fee) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	sealer, err := keys.NewAEADSealer([]byte("swap-test-secret-0123456789abcdef"))
	require.NoError(t, err)

	poolKey := solana.NewWallet().PrivateKey
	user := solana.NewWallet().PrivateKey
	userMint := solana.NewWallet().PublicKey().String()
	poolMint := solana.NewWallet().PublicKey().String()

	e := &testEnv{
		cfg:       config.DefaultSwapConfig(),
		store:     persistence.NewMemoryStore(sealer),
		chain:     newFakeChain(),
		confirmer: &fakeConfirmer{},
		auditor:   &recordingAuditor{},
		poolKey:   poolKey,
		user:      user,
		pool: &domain.Pool{
			CollectionID:      "degods",
			CollectionName:    "DeGods",
			CollectionAddress: testCollection,
			PoolAddress:       poolKey.PublicKey(),
			SwapFee:           decimal.RequireFromString("0.05"),
			IsActive:          true,
			NFTCount:          12,
		},
		assets: &stubAssets{
			assets: map[string]*domain.Asset{
				userMint: {Mint: userMint, Name: "DeGod #1", Owner: user.PublicKey().String(), Collection: testCollection},
				poolMint: {Mint: poolMint, Name: "DeGod #2", Owner: poolKey.PublicKey().String(), Collection: testCollection},
			},
			balances: map[string]decimal.Decimal{
				user.PublicKey().String(): decimal.NewFromInt(1),
			},
		},
		intent: domain.SwapIntent{
			UserWallet:   user.PublicKey().String(),
			UserNFTMint:  userMint,
			PoolNFTMint:  poolMint,
			CollectionID: "degods",
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	require.NoError(t, e.store.CreatePool(ctx, e.pool))
	if e.poolKey != nil {
		require.NoError(t, e.store.StorePoolKeyMaterial(ctx, &domain.PoolKeyMaterial{
			PublicKey:     e.pool.PoolAddress,
			SecretKey:     keys.EncodeSecretKey(e.poolKey),
			HasPrivateKey: true,
		}))
	}
	return e
}

func (e *testEnv) executor() *Executor {
	return NewExecutor(e.cfg, e.store, capability.NewEvaluator(e.store), e.assets, e.chain,
		WithConfirmer(e.confirmer),
		WithAuditor(e.auditor),
		WithStateObserver(func(_ string, s domain.SwapState) {
			e.mu.Lock()
			e.states = append(e.states, s)
			e.mu.Unlock()
		}),
	)
}

func (e *testEnv) signer() WalletSigner {
	return NewKeypairSigner(e.user)
}

func (e *testEnv) mints() (solana.PublicKey, solana.PublicKey) {
	return solana.MustPublicKeyFromBase58(e.intent.UserNFTMint), solana.MustPublicKeyFromBase58(e.intent.PoolNFTMint)
}

func requireKind(t *testing.T, err error, sentinel *SwapError) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, strings.HasPrefix(err.Error(), "ATOMIC SWAP FAILED: "), "message %q lacks prefix", err.Error())
}

func TestExecuteSwap_HappyPath(t *testing.T) {
	e := newTestEnv(t)
	receipt, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	require.NoError(t, err)

	assert.Equal(t, 1, e.chain.sentCount())
	assert.Equal(t, 5, receipt.Instructions)
	assert.Equal(t, uint64(50_000_000), receipt.FeeLamports)
	assert.Equal(t, common.DefaultFeeCollector, receipt.FeeCollector)
	assert.True(t, receipt.FeeVerified)
	assert.Equal(t, uint64(77), receipt.Slot)
	assert.Equal(t, "https://explorer.solana.com/tx/"+receipt.Signature.String()+"?cluster=devnet", receipt.ExplorerURL)

	assert.Equal(t, []domain.SwapState{
		domain.SwapStateValidating,
		domain.SwapStateBuilding,
		domain.SwapStateSigning,
		domain.SwapStateBroadcasting,
		domain.SwapStateConfirming,
		domain.SwapStateVerifyingFee,
		domain.SwapStateCompleted,
	}, e.states)

	pool, err := e.store.GetPool(context.Background(), "degods")
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), pool.TotalVolume.Uint64())
	assert.Equal(t, uint64(12), pool.NFTCount)
	assert.True(t, e.auditor.has(monitor.AuditSuccessfulSwap))

	tx := e.chain.lastSent()
	require.NoError(t, tx.VerifySignatures())
	assert.Equal(t, e.user.PublicKey(), tx.Message.AccountKeys[0], "user pays the fee")
}

func TestExecuteSwap_InstructionOrder(t *testing.T) {
	tests := []struct {
		name     string
		fee      string
		existing func(e *testEnv) []solana.PublicKey
		expected []solana.PublicKey
	}{
		{
			name:     "fee and both receive accounts missing",
			fee:      "0.05",
			existing: func(*testEnv) []solana.PublicKey { return nil },
			expected: []solana.PublicKey{solana.SystemProgramID, common.ATAProgramID, common.ATAProgramID, common.TokenProgramID, common.TokenProgramID},
		},
		{
			name: "pool receive account missing",
			fee:  "0.05",
			existing: func(e *testEnv) []solana.PublicKey {
				_, poolMint := e.mints()
				ata, _ := AssociatedTokenAddress(e.user.PublicKey(), poolMint)
				return []solana.PublicKey{ata}
			},
			expected: []solana.PublicKey{solana.SystemProgramID, common.ATAProgramID, common.TokenProgramID, common.TokenProgramID},
		},
		{
			name: "zero fee and accounts exist",
			fee:  "0",
			existing: func(e *testEnv) []solana.PublicKey {
				userMint, poolMint := e.mints()
				a, _ := AssociatedTokenAddress(e.user.PublicKey(), poolMint)
				b, _ := AssociatedTokenAddress(e.pool.PoolAddress, userMint)
				return []solana.PublicKey{a, b}
			},
			expected: []solana.PublicKey{common.TokenProgramID, common.TokenProgramID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, withFee(tt.fee))
			for _, pk := range tt.existing(e) {
				e.chain.addAccount(pk, false)
			}
			receipt, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
			require.NoError(t, err)

			ids, err := e.chain.lastSent().GetProgramIDs()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, []solana.PublicKey(ids))
			assert.Equal(t, len(tt.expected), receipt.Instructions)
		})
	}
}

func TestExecuteSwap_TransfersMoveBothNFTs(t *testing.T) {
	e := newTestEnv(t, withFee("0"))
	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	require.NoError(t, err)

	userMint, poolMint := e.mints()
	userSend, _ := AssociatedTokenAddress(e.user.PublicKey(), userMint)
	userRecv, _ := AssociatedTokenAddress(e.user.PublicKey(), poolMint)
	poolSend, _ := AssociatedTokenAddress(e.pool.PoolAddress, poolMint)
	poolRecv, _ := AssociatedTokenAddress(e.pool.PoolAddress, userMint)

	tx := e.chain.lastSent()
	n := len(tx.Message.Instructions)
	require.GreaterOrEqual(t, n, 2)
	accts := tx.Message.AccountKeys

	userLeg := tx.Message.Instructions[n-2]
	assert.Equal(t, userSend, accts[userLeg.Accounts[0]])
	assert.Equal(t, poolRecv, accts[userLeg.Accounts[1]])
	assert.Equal(t, e.user.PublicKey(), accts[userLeg.Accounts[2]])

	poolLeg := tx.Message.Instructions[n-1]
	assert.Equal(t, poolSend, accts[poolLeg.Accounts[0]])
	assert.Equal(t, userRecv, accts[poolLeg.Accounts[1]])
	assert.Equal(t, e.pool.PoolAddress, accts[poolLeg.Accounts[2]])
}

func TestExecuteSwap_NoKeyMaterialNeverBroadcasts(t *testing.T) {
	e := newTestEnv(t, withoutKeyMaterial())
	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())

	requireKind(t, err, ErrCapabilityAbsent)
	assert.Zero(t, e.chain.sentCount())
	assert.Zero(t, e.chain.hashCalls)
	assert.Zero(t, e.assets.calls.Load(), "capability is checked before any asset read")
	assert.Equal(t, domain.SwapStateFailed, e.states[len(e.states)-1])
	assert.Len(t, e.auditor.failed, 1)
}

func TestExecuteSwap_MalformedKeyMaterial(t *testing.T) {
	e := newTestEnv(t, withoutKeyMaterial())
	require.NoError(t, e.store.StorePoolKeyMaterial(context.Background(), &domain.PoolKeyMaterial{
		PublicKey:     e.pool.PoolAddress,
		SecretKey:     "1,2,3",
		HasPrivateKey: true,
	}))
	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrKeyMaterialMalformed)
	assert.Zero(t, e.chain.sentCount())
}

func TestExecuteSwap_KeyMaterialForAnotherAddress(t *testing.T) {
	e := newTestEnv(t, withoutKeyMaterial())
	require.NoError(t, e.store.StorePoolKeyMaterial(context.Background(), &domain.PoolKeyMaterial{
		PublicKey:     e.pool.PoolAddress,
		SecretKey:     keys.EncodeSecretKey(solana.NewWallet().PrivateKey),
		HasPrivateKey: true,
	}))
	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrKeyMaterialMalformed)
	assert.Zero(t, e.chain.sentCount())
	assert.Zero(t, e.assets.calls.Load())
}

func TestExecuteSwap_PoolDoesNotOwnNFT(t *testing.T) {
	e := newTestEnv(t)
	e.assets.assets[e.intent.PoolNFTMint].Owner = solana.NewWallet().PublicKey().String()

	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrOwnershipMismatch)
	assert.Zero(t, e.chain.hashCalls, "no transaction is built")
	assert.Zero(t, e.chain.sentCount())
}

func TestExecuteSwap_UserDoesNotOwnNFT(t *testing.T) {
	e := newTestEnv(t)
	e.assets.assets[e.intent.UserNFTMint].Owner = solana.NewWallet().PublicKey().String()

	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrOwnershipMismatch)
}

func TestExecuteSwap_BalanceBoundary(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		ok      bool
	}{
		{"equal to fee", "0.05", true},
		{"one lamport short", "0.049999999", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.cfg.NetworkFee = decimal.Zero
			e.cfg.Buffer = decimal.Zero
			e.assets.balances[e.intent.UserWallet] = decimal.RequireFromString(tt.balance)

			_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
			if tt.ok {
				require.NoError(t, err)
				return
			}
			requireKind(t, err, ErrInsufficientBalance)
			assert.Contains(t, err.Error(), "Insufficient balance. Need 0.0500 SOL total")
			assert.Zero(t, e.chain.sentCount())
		})
	}
}

func TestExecuteSwap_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(e *testEnv)
		expected *SwapError
	}{
		{"bad wallet", func(e *testEnv) { e.intent.UserWallet = "not-a-wallet" }, ErrInvalidAddress},
		{"bad mint", func(e *testEnv) { e.intent.PoolNFTMint = "0OIl" }, ErrInvalidAddress},
		{"unknown pool", func(e *testEnv) { e.intent.CollectionID = "nope" }, ErrPoolNotFound},
		{"inactive pool", func(e *testEnv) {
			require.NoError(t, e.store.SetPoolActive(context.Background(), "degods", false))
		}, ErrPoolInactive},
		{"user NFT missing", func(e *testEnv) { delete(e.assets.assets, e.intent.UserNFTMint) }, ErrAssetNotFound},
		{"pool NFT burnt", func(e *testEnv) { e.assets.assets[e.intent.PoolNFTMint].Burnt = true }, ErrAssetNotFound},
		{"indexer down", func(e *testEnv) { e.assets.err = errors.New("connection refused") }, ErrNetworkOrBlockhash},
		{"foreign collection", func(e *testEnv) { e.assets.assets[e.intent.UserNFTMint].Collection = "OTHER" }, ErrCollectionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			tt.mutate(e)
			_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
			requireKind(t, err, tt.expected)
			assert.Zero(t, e.chain.sentCount())
		})
	}
}

func TestExecuteSwap_FeeOutOfRange(t *testing.T) {
	e := newTestEnv(t, withFee("10.5"))
	_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrInvalidSwapFee)
}

func TestCheckCollection(t *testing.T) {
	pinned := &domain.Pool{CollectionAddress: testCollection}
	open := &domain.Pool{}
	asset := func(c string) *domain.Asset { return &domain.Asset{Mint: "m", Collection: c} }

	tests := []struct {
		name     string
		pool     *domain.Pool
		user     string
		poolSide string
		ok       bool
	}{
		{"pinned both match", pinned, testCollection, testCollection, true},
		{"pinned user unknown", pinned, "", testCollection, true},
		{"pinned both unknown", pinned, "", "", true},
		{"pinned user foreign", pinned, "OTHER", testCollection, false},
		{"pinned pool side foreign", pinned, testCollection, "OTHER", false},
		{"pinned user lowercased", pinned, strings.ToLower(testCollection), testCollection, false},
		{"open pair equal", open, "A", "A", true},
		{"open pair differ", open, "A", "B", false},
		{"open one unknown", open, "A", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkCollection(tt.pool, asset(tt.user), asset(tt.poolSide))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrCollectionMismatch)
			}
		})
	}
}

// Listing and swapping must agree on which NFTs belong to a pinned collection.
func TestCheckCollection_AgreesWithListing(t *testing.T) {
	collection := common.DefaultFeeCollector.String()
	pinned := &domain.Pool{CollectionAddress: collection, CollectionName: "DeGods"}
	member := &domain.Asset{Mint: solana.NewWallet().PublicKey().String(), Name: "DeGod #2", Collection: collection}

	for _, c := range []string{collection, strings.ToLower(collection), strings.ToUpper(collection), solana.NewWallet().PublicKey().String()} {
		t.Run(c, func(t *testing.T) {
			candidate := &domain.Asset{Mint: solana.NewWallet().PublicKey().String(), Name: "DeGod #1", Collection: c}
			listed := len(assets.FilterForPool(pinned, []*domain.Asset{candidate})) == 1
			swappable := checkCollection(pinned, candidate, member) == nil
			assert.Equal(t, listed, swappable)
			assert.Equal(t, c == collection, swappable)
		})
	}
}

func TestExecuteSwap_Signers(t *testing.T) {
	tests := []struct {
		name     string
		signer   WalletSigner
		expected *SwapError
	}{
		{"nil signer", nil, ErrSigningUnsupported},
		{"user rejects", rejectingSigner{}, ErrUserRejected},
		{"wallet cannot sign", brokenSigner{}, ErrSigningUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			_, err := e.executor().ExecuteSwap(context.Background(), e.intent, tt.signer)
			requireKind(t, err, tt.expected)
			assert.Zero(t, e.chain.sentCount())
		})
	}
}

func TestSubmit_RejectsAlteredTransaction(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	exec := e.executor()

	prepared, err := exec.Prepare(ctx, e.intent)
	require.NoError(t, err)

	t.Run("missing user signature", func(t *testing.T) {
		tx, err := prepared.Transaction()
		require.NoError(t, err)
		_, err = exec.Submit(ctx, prepared, tx)
		requireKind(t, err, ErrSigningUnsupported)
	})

	t.Run("different message", func(t *testing.T) {
		tx, err := prepared.Transaction()
		require.NoError(t, err)
		tx.Message.RecentBlockhash = solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes())
		require.NoError(t, e.signer().SignTransaction(ctx, tx))
		_, err = exec.Submit(ctx, prepared, tx)
		requireKind(t, err, ErrSigningUnsupported)
	})

	assert.Zero(t, e.chain.sentCount())

	t.Run("signed as prepared", func(t *testing.T) {
		tx, err := prepared.Transaction()
		require.NoError(t, err)
		require.NoError(t, e.signer().SignTransaction(ctx, tx))
		receipt, err := exec.Submit(ctx, prepared, tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Signatures[0], receipt.Signature)
	})
}

func TestSubmit_KeepsRefreshedNFTCount(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	exec := e.executor()

	prepared, err := exec.Prepare(ctx, e.intent)
	require.NoError(t, err)
	require.NoError(t, e.store.UpdatePoolStats(ctx, "degods", 15, 0))

	tx, err := prepared.Transaction()
	require.NoError(t, err)
	require.NoError(t, e.signer().SignTransaction(ctx, tx))
	_, err = exec.Submit(ctx, prepared, tx)
	require.NoError(t, err)

	pool, err := e.store.GetPool(ctx, "degods")
	require.NoError(t, err)
	assert.Equal(t, uint64(15), pool.NFTCount)
	assert.Equal(t, uint64(50_000_000), pool.TotalVolume.Uint64())
}

func TestPrepare_PoolSignatureOnly(t *testing.T) {
	e := newTestEnv(t)
	prepared, err := e.executor().Prepare(context.Background(), e.intent)
	require.NoError(t, err)

	tx, err := prepared.Transaction()
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)
	assert.True(t, tx.Signatures[0].IsZero(), "user slot is left for the wallet")
	assert.False(t, tx.Signatures[1].IsZero())
	assert.Equal(t, prepared.Message(), mustMessage(t, tx))
	assert.NotEmpty(t, prepared.Encoded())
}

func mustMessage(t *testing.T, tx *solana.Transaction) []byte {
	t.Helper()
	b, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestSubmit_CancelledBeforeBroadcast(t *testing.T) {
	e := newTestEnv(t)
	exec := e.executor()
	prepared, err := exec.Prepare(context.Background(), e.intent)
	require.NoError(t, err)
	tx, err := prepared.Transaction()
	require.NoError(t, err)
	require.NoError(t, e.signer().SignTransaction(context.Background(), tx))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.Submit(ctx, prepared, tx)
	require.Error(t, err)
	assert.Zero(t, e.chain.sentCount())
}

func TestExecuteSwap_ChainOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		sendErr    error
		confirmErr error
		expected   *SwapError
		signature  bool
	}{
		{"preflight insufficient funds", errors.New("Transaction simulation failed: insufficient funds for rent"), nil, ErrInsufficientBalance, false},
		{"stale blockhash", errors.New("Blockhash not found"), nil, ErrNetworkOrBlockhash, false},
		{"chain error", nil, &blockchain.TransactionFailedError{Err: map[string]any{"InstructionError": []any{3, "InvalidAccountData"}}}, ErrTransactionExecutionFailed, true},
		{"confirmation timeout", nil, blockchain.ErrConfirmationTimeout, ErrConfirmationTimeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.chain.sendErr = tt.sendErr
			e.confirmer.err = tt.confirmErr

			_, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
			requireKind(t, err, tt.expected)

			var se *SwapError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.signature, se.Signature != "")
			if tt.expected == ErrConfirmationTimeout {
				assert.Contains(t, err.Error(), se.Signature)
			}
		})
	}
}

func TestExecuteSwap_PollingConfirmer(t *testing.T) {
	e := newTestEnv(t)
	exec := NewExecutor(e.cfg, e.store, capability.NewEvaluator(e.store), e.assets, e.chain)

	receipt, err := exec.ExecuteSwap(context.Background(), e.intent, e.signer())
	require.NoError(t, err)
	assert.Equal(t, uint64(99), receipt.Slot)

	e.chain.statusErr = map[string]any{"InstructionError": []any{0, "Custom"}}
	_, err = exec.ExecuteSwap(context.Background(), e.intent, e.signer())
	requireKind(t, err, ErrTransactionExecutionFailed)
	assert.Contains(t, err.Error(), "Transaction failed: ")
}

func TestExecuteSwap_FeeVerificationFromMeta(t *testing.T) {
	tests := []struct {
		name     string
		skew     int64
		verified bool
	}{
		{"exact", 0, true},
		{"within tolerance", -1, true},
		{"short", -1000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.chain.withMeta = true
			e.chain.metaSkew = tt.skew

			receipt, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
			require.NoError(t, err, "fee verification never fails the swap")
			assert.Equal(t, tt.verified, receipt.FeeVerified)
		})
	}
}

func TestExecuteSwap_ExecutableFeeCollector(t *testing.T) {
	e := newTestEnv(t)
	program := solana.NewWallet().PublicKey()
	e.cfg.FeeCollector = program.String()
	e.chain.addAccount(program, true)

	receipt, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	require.NoError(t, err)
	assert.Equal(t, common.DefaultFeeCollector, receipt.FeeCollector)
	assert.True(t, e.auditor.has(monitor.AuditInvalidFeeCollector))
}

func TestExecuteSwap_ConfiguredFeeCollector(t *testing.T) {
	e := newTestEnv(t)
	wallet := solana.NewWallet().PublicKey()
	e.cfg.FeeCollector = wallet.String()
	e.chain.addAccount(wallet, false)

	receipt, err := e.executor().ExecuteSwap(context.Background(), e.intent, e.signer())
	require.NoError(t, err)
	assert.Equal(t, wallet, receipt.FeeCollector)
	assert.Equal(t, uint64(50_000_000), e.chain.balances[wallet])
	assert.False(t, e.auditor.has(monitor.AuditInvalidFeeCollector))
}

func TestCheckBalance(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	exec := e.executor()

	check, err := exec.CheckBalance(ctx, e.intent.UserWallet, "degods")
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, "0.0525", check.Required.String())
	assert.Equal(t, "Sufficient balance for atomic swap and fees", check.Message)

	e.assets.balances[e.intent.UserWallet] = decimal.RequireFromString("0.0525")
	check, err = exec.CheckBalance(ctx, e.intent.UserWallet, "degods")
	require.NoError(t, err)
	assert.True(t, check.Valid, "equality passes")

	e.assets.balances[e.intent.UserWallet] = decimal.RequireFromString("0.01")
	check, err = exec.CheckBalance(ctx, e.intent.UserWallet, "degods")
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.True(t, strings.HasPrefix(check.Message, "Insufficient balance. Need 0.0525 SOL total"))

	e.assets.err = errors.New("timeout")
	check, err = exec.CheckBalance(ctx, e.intent.UserWallet, "degods")
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, "Error checking balance", check.Message)

	_, err = exec.CheckBalance(ctx, "bogus", "degods")
	requireKind(t, err, ErrInvalidAddress)
	_, err = exec.CheckBalance(ctx, e.intent.UserWallet, "missing")
	requireKind(t, err, ErrPoolNotFound)
}

func TestCheckBalance_AuditsSuspiciousBalance(t *testing.T) {
	e := newTestEnv(t)
	e.assets.balances[e.intent.UserWallet] = decimal.NewFromInt(2_000_000)

	_, err := e.executor().CheckBalance(context.Background(), e.intent.UserWallet, "degods")
	require.NoError(t, err)
	assert.True(t, e.auditor.has(monitor.AuditSuspiciousBalance))
	assert.Len(t, e.auditor.alerts, 1)
}

func TestVerifyTransaction(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.chain.withMeta = true
	exec := e.executor()

	receipt, err := exec.ExecuteSwap(ctx, e.intent, e.signer())
	require.NoError(t, err)

	status, err := exec.VerifyTransaction(ctx, receipt.Signature.String())
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Success)
	assert.Equal(t, uint64(99), status.Slot)
	assert.Equal(t, uint64(5000), status.FeeLamports)
	assert.Equal(t, receipt.ExplorerURL, status.ExplorerURL)

	var unknown solana.Signature
	unknown[0] = 1
	status, err = exec.VerifyTransaction(ctx, unknown.String())
	require.NoError(t, err)
	assert.False(t, status.Exists)
	assert.Equal(t, "Transaction not found on blockchain", status.Error)

	_, err = exec.VerifyTransaction(ctx, "not-a-signature")
	requireKind(t, err, ErrInvalidAddress)
}
