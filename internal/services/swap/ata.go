package swap

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/nft-swap-engine/internal/common"
)

// ataCacheSize bounds the memoized derivations. Wallets are user supplied,
// so the cache must not grow with traffic.
const ataCacheSize = 10_000

type ataKey struct {
	Wallet solana.PublicKey
	Mint   solana.PublicKey
}

var ataCache = common.NewBoundedLRUCache[ataKey, solana.PublicKey](ataCacheSize, 0)

// AssociatedTokenAddress derives the SPL token ATA of wallet for mint. Results
// are memoized since the same pool accounts recur across swaps.
func AssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	key := ataKey{Wallet: wallet, Mint: mint}
	if cached, ok := ataCache.Get(key); ok {
		return cached, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ataCache.Set(key, ata)
	return ata, nil
}

// createATAInstruction is the idempotent variant of the associated token
// account program's create instruction.
type createATAInstruction struct {
	payer solana.PublicKey
	ata   solana.PublicKey
	owner solana.PublicKey
	mint  solana.PublicKey
}

func newCreateATAInstruction(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	return &createATAInstruction{payer: payer, ata: ata, owner: owner, mint: mint}
}

func (i *createATAInstruction) ProgramID() solana.PublicKey {
	return common.ATAProgramID
}

func (i *createATAInstruction) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: i.payer, IsSigner: true, IsWritable: true},
		{PublicKey: i.ata, IsSigner: false, IsWritable: true},
		{PublicKey: i.owner, IsSigner: false, IsWritable: false},
		{PublicKey: i.mint, IsSigner: false, IsWritable: false},
		{PublicKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
	}
}

func (i *createATAInstruction) Data() ([]byte, error) {
	return []byte{1}, nil
}
