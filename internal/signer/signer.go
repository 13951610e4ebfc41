// Package signer holds raw private key material behind a narrow signing
// interface. Adapters receive a Signer, not key bytes, so the surface
// that can leak a key stays small and auditable.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

var (
	ErrInvalidKey  = errors.New("invalid private key")
	ErrInvalidHash = errors.New("hash must be 32 bytes")
)

// Signer wraps 32 bytes of key material. The same bytes serve as a
// secp256k1 scalar for UTXO/EVM/Tron chains and as an ed25519 seed for
// Solana; the coin family decides which view is used.
type Signer struct {
	raw []byte
}

// New creates a signer from raw 32-byte key material.
func New(raw []byte) (*Signer, error) {
	if len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	key := make([]byte, 32)
	copy(key, raw)
	return &Signer{raw: key}, nil
}

// NewRandom creates a signer with a fresh random key.
func NewRandom() (*Signer, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to read entropy: %w", err)
	}
	return New(raw)
}

// FromHex creates a signer from a hex-encoded key, with or without a
// 0x prefix.
func FromHex(hexKey string) (*Signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return New(raw)
}

// Hex returns the key material as a hex string for persistence.
func (s *Signer) Hex() string {
	return hex.EncodeToString(s.raw)
}

// Bytes returns a copy of the raw key material.
func (s *Signer) Bytes() []byte {
	raw := make([]byte, 32)
	copy(raw, s.raw)
	return raw
}

// Secp returns the secp256k1 private key view.
func (s *Signer) Secp() *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(s.raw)
	return priv
}

// PublicKeySecp returns the compressed secp256k1 public key.
func (s *Signer) PublicKeySecp() []byte {
	return s.Secp().PubKey().SerializeCompressed()
}

// SignRecoverable signs a 32-byte hash and returns the signature in
// Ethereum layout: r || s || v (65 bytes, v in {0,1}).
func (s *Signer) SignRecoverable(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrInvalidHash
	}

	// SignCompact returns v || r || s with v in {27,28}
	sig := btcecdsa.SignCompact(s.Secp(), hash, false)
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}

	out := make([]byte, 65)
	copy(out[:64], sig[1:65]) // r || s
	out[64] = sig[0] - 27     // v
	return out, nil
}

// Ed25519Key returns the ed25519 private key view (raw bytes as seed).
func (s *Signer) Ed25519Key() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(s.raw)
}

// PublicKeyEd25519 returns the ed25519 public key.
func (s *Signer) PublicKeyEd25519() ed25519.PublicKey {
	return s.Ed25519Key().Public().(ed25519.PublicKey)
}

// SignEd25519 signs an arbitrary message with the ed25519 view.
func (s *Signer) SignEd25519(message []byte) []byte {
	return ed25519.Sign(s.Ed25519Key(), message)
}
