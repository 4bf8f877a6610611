// Package keys validates account addresses and pool key material and seals
// that material for storage.
package keys

import "github.com/gagliardetto/solana-go"

const (
	minAddressLength = 32
	maxAddressLength = 44
)

// IsValidAddress reports whether s is a base58 encoded 32 byte account address.
func IsValidAddress(s string) bool {
	if len(s) < minAddressLength || len(s) > maxAddressLength {
		return false
	}
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// ParseAddress is IsValidAddress returning the decoded key.
func ParseAddress(s string) (solana.PublicKey, error) {
	if len(s) < minAddressLength || len(s) > maxAddressLength {
		return solana.PublicKey{}, ErrInvalidAddress
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, ErrInvalidAddress
	}
	return pk, nil
}
