package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const SecretKeySize = ed25519.PrivateKeySize

var (
	ErrInvalidAddress       = errors.New("invalid address")
	ErrKeyMaterialMalformed = errors.New("key material malformed")
	ErrKeyMismatch          = errors.New("derived public key does not match pool address")
)

// ParseSecretKey decodes secret key text into its 64 raw bytes. Accepted
// forms: comma separated integers (storage form), a JSON array, base64 and
// base58. Every form must yield exactly 64 values in 0..255.
func ParseSecretKey(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrKeyMaterialMalformed)
	}

	switch {
	case strings.HasPrefix(text, "["):
		return parseJSONArray(text)
	case strings.Contains(text, ","):
		return parseCommaSeparated(text)
	}

	if raw, err := base64.StdEncoding.DecodeString(text); err == nil && len(raw) == SecretKeySize {
		return raw, nil
	}
	if raw, err := base58.Decode(text); err == nil && len(raw) == SecretKeySize {
		return raw, nil
	}
	// a single integer is a 1-value comma list
	if _, err := strconv.Atoi(text); err == nil {
		return parseCommaSeparated(text)
	}
	return nil, fmt.Errorf("%w: unrecognised encoding", ErrKeyMaterialMalformed)
}

func parseCommaSeparated(text string) ([]byte, error) {
	parts := strings.Split(text, ",")
	if len(parts) != SecretKeySize {
		return nil, fmt.Errorf("%w: invalid secret key length %d, expected %d", ErrKeyMaterialMalformed, len(parts), SecretKeySize)
	}
	out := make([]byte, SecretKeySize)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("%w: value %d out of byte range", ErrKeyMaterialMalformed, i)
		}
		out[i] = byte(n)
	}
	return out, nil
}

func parseJSONArray(text string) ([]byte, error) {
	var values []int
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMaterialMalformed, err)
	}
	if len(values) != SecretKeySize {
		return nil, fmt.Errorf("%w: invalid secret key length %d, expected %d", ErrKeyMaterialMalformed, len(values), SecretKeySize)
	}
	out := make([]byte, SecretKeySize)
	for i, n := range values {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("%w: value %d out of byte range", ErrKeyMaterialMalformed, i)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// IsValidKeyMaterial reports whether text decodes to exactly 64 byte values.
func IsValidKeyMaterial(text string) bool {
	_, err := ParseSecretKey(text)
	return err == nil
}

// EncodeSecretKey renders raw secret bytes in the comma separated storage form.
func EncodeSecretKey(secret []byte) string {
	var sb strings.Builder
	for i, b := range secret {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	return sb.String()
}

// DeriveKeypair rebuilds the keypair from the 32 byte seed and requires the
// embedded public half to match what the seed derives.
func DeriveKeypair(secret []byte) (solana.PrivateKey, error) {
	if len(secret) != SecretKeySize {
		return nil, fmt.Errorf("%w: invalid secret key length %d, expected %d", ErrKeyMaterialMalformed, len(secret), SecretKeySize)
	}
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrKeyMaterialMalformed)
	}
	return solana.PrivateKey(derived), nil
}

// DeriveForAddress parses text, derives the keypair and requires its public
// key to equal expected.
func DeriveForAddress(text string, expected solana.PublicKey) (solana.PrivateKey, error) {
	secret, err := ParseSecretKey(text)
	if err != nil {
		return nil, err
	}
	pk, err := DeriveKeypair(secret)
	if err != nil {
		return nil, err
	}
	if !pk.PublicKey().Equals(expected) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrKeyMismatch, expected, pk.PublicKey())
	}
	return pk, nil
}

// NewPoolKeypair generates a fresh keypair and returns it along with its
// storage form.
func NewPoolKeypair() (solana.PrivateKey, string, error) {
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate pool keypair: %w", err)
	}
	return pk, EncodeSecretKey(pk), nil
}
