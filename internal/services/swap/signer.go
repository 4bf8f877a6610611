package swap

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrSignerRejected is returned by a WalletSigner whose owner declined.
var ErrSignerRejected = errors.New("user rejected the request")

// WalletSigner adds the user's signature to a transaction that already
// carries the pool's partial signature. It must not touch other slots.
type WalletSigner interface {
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// KeypairSigner signs with a key held in process. It backs tests and
// server-side wallets.
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(key solana.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *KeypairSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := tx.PartialSign(keyGetter(s.key))
	return err
}

func keyGetter(key solana.PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	pub := key.PublicKey()
	return func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &key
		}
		return nil
	}
}

func wipe(key solana.PrivateKey) {
	for i := range key {
		key[i] = 0
	}
}
