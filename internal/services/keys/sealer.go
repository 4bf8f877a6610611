package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

var ErrUnsealFailed = errors.New("unable to unseal key material")

// Sealer protects key material at rest.
type Sealer interface {
	Seal(plain []byte) (string, error)
	Unseal(blob string) ([]byte, error)
}

const (
	aeadPrefix   = "v1:"
	hkdfSalt     = "nft-swap-engine/pool-keys"
	hkdfInfo     = "aes-256-gcm"
	aeadKeyBytes = 32
)

// AEADSealer encrypts with AES-256-GCM under a key derived from a master
// secret with HKDF-SHA256. Output is "v1:" + base64(nonce || ciphertext).
type AEADSealer struct {
	aead cipher.AEAD
}

func NewAEADSealer(masterSecret []byte) (*AEADSealer, error) {
	if len(masterSecret) < 32 {
		return nil, errors.New("master secret must be at least 32 bytes")
	}
	key := make([]byte, aeadKeyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterSecret, []byte(hkdfSalt), []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEADSealer{aead: aead}, nil
}

func (s *AEADSealer) Seal(plain []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plain, nil)
	return aeadPrefix + base64.StdEncoding.EncodeToString(out), nil
}

func (s *AEADSealer) Unseal(blob string) ([]byte, error) {
	if !strings.HasPrefix(blob, aeadPrefix) {
		return nil, fmt.Errorf("%w: unknown format", ErrUnsealFailed)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, aeadPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return nil, fmt.Errorf("%w: blob too short", ErrUnsealFailed)
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	return plain, nil
}

// LegacyBase64Sealer reads and writes rows produced by the old reversible
// base64 encoding. It provides no confidentiality.
type LegacyBase64Sealer struct{}

func (LegacyBase64Sealer) Seal(plain []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(plain), nil
}

func (LegacyBase64Sealer) Unseal(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	return raw, nil
}
