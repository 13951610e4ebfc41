package codec

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// deriveSolanaAddress derives a Solana address from a 32-byte ed25519 seed.
// The address is the base58-encoded public key.
func deriveSolanaAddress(privKey []byte) (string, error) {
	if len(privKey) != ed25519.SeedSize {
		return "", ErrInvalidKey
	}
	priv := ed25519.NewKeyFromSeed(privKey)
	pub := priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub), nil
}

// ValidateSolanaAddress checks that an address decodes to a 32-byte
// ed25519 point on the curve. Off-curve values are valid program-derived
// addresses but never user wallets, so they are rejected here.
func ValidateSolanaAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedAddressFormat, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: decoded to %d bytes, want 32", ErrUnsupportedAddressFormat, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("%w: not on curve", ErrUnsupportedAddressFormat)
	}
	return nil
}
