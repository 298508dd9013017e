// Package wallet loads ed25519 keypairs in the formats accepted by the CLI: a JSON
// array of secret key bytes on disk, or a base58 encoded secret key.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"

	"github.com/coremint/coremint/internal/utils"
	"github.com/goccy/go-json"
	"github.com/mr-tron/base58"
)

var (
	ErrKeypairRequired  = errors.New("wallet: keypair is required")
	ErrKeypairNotFound  = errors.New("wallet: keypair file not found")
	ErrInvalidSecretKey = errors.New("wallet: invalid secret key")
)

// Signer authorizes storage payments. The primary wallet and any delegated payer
// both satisfy it.
type Signer interface {
	Address() string
	Sign(message []byte) ([]byte, error)
}

type Keypair struct {
	key ed25519.PrivateKey
}

// FromSecret accepts a 64 byte secret key (seed followed by public key) or a 32 byte seed.
func FromSecret(secret []byte) (*Keypair, error) {
	switch len(secret) {
	case ed25519.SeedSize:
		return &Keypair{key: ed25519.NewKeyFromSeed(secret)}, nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidSecretKey)
		}
		return &Keypair{key: key}, nil
	default:
		return nil, fmt.Errorf("%w: expected %d or %d bytes, got %d",
			ErrInvalidSecretKey, ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}
}

// LoadFile reads a keypair stored as a JSON array of byte values.
func LoadFile(path string) (*Keypair, error) {
	if path == "" {
		return nil, ErrKeypairRequired
	}

	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if !utils.FileExists(resolved) {
		return nil, fmt.Errorf("%w: %s", ErrKeypairNotFound, resolved)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("wallet: read keypair: %w", err)
	}

	var secret []byte
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON byte array", ErrInvalidSecretKey, resolved)
	}
	for _, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte value %d out of range", ErrInvalidSecretKey, v)
		}
		secret = append(secret, byte(v))
	}

	return FromSecret(secret)
}

// Parse loads a keypair from a file path when one exists, otherwise decodes s as base58.
func Parse(s string) (*Keypair, error) {
	if s == "" {
		return nil, ErrKeypairRequired
	}
	if resolved, err := utils.ResolvePath(s); err == nil && utils.FileExists(resolved) {
		return LoadFile(resolved)
	}

	secret, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: not a keypair file or base58 secret", ErrInvalidSecretKey)
	}
	return FromSecret(secret)
}

// Address is the base58 encoded public key
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey())
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.key.Public().(ed25519.PublicKey)
}

func (k *Keypair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.key, message), nil
}

// SecretKey returns the 64 byte secret in the on-disk layout.
func (k *Keypair) SecretKey() []byte {
	return bytes.Clone(k.key)
}

// ValidAddress reports whether s decodes to a 32 byte public key.
func ValidAddress(s string) bool {
	pub, err := base58.Decode(s)
	return err == nil && len(pub) == ed25519.PublicKeySize
}

// Verify checks a signature produced by Signer.Sign for address.
func Verify(address string, message, sig []byte) bool {
	if !ValidAddress(address) {
		return false
	}
	pub, _ := base58.Decode(address)
	return ed25519.Verify(pub, message, sig)
}

var _ Signer = (*Keypair)(nil)
