// Package codec implements chain-specific encoding: address derivation
// from raw key material, Electrum script hashes, and fixed-point amount
// conversion. Everything here is pure computation - no network access.
package codec

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/shopspring/decimal"

	"github.com/ankerid/custody/internal/chain"
)

var (
	// ErrUnsupportedChain indicates the coin family has no address codec.
	ErrUnsupportedChain = errors.New("unsupported chain family")

	// ErrUnsupportedAddressFormat indicates the address encoding is outside
	// the supported subset (bech32/witness addresses, unknown version bytes).
	ErrUnsupportedAddressFormat = errors.New("unsupported address format")

	// ErrInvalidKey indicates the private key bytes are malformed.
	ErrInvalidKey = errors.New("invalid private key")
)

// DeriveAddress derives the deposit address for a coin from raw private
// key bytes. Token coins have no chain of their own; callers must derive
// against the base coin of a settlement network.
func DeriveAddress(params *chain.Params, privKey []byte) (string, error) {
	switch params.Family {
	case chain.FamilyUTXO:
		return deriveUTXOAddress(params, privKey)
	case chain.FamilyEVM:
		return deriveEVMAddress(privKey)
	case chain.FamilyTron:
		return deriveTronAddress(privKey)
	case chain.FamilySolana:
		return deriveSolanaAddress(privKey)
	default:
		return "", ErrUnsupportedChain
	}
}

// deriveUTXOAddress derives a legacy P2PKH address from a secp256k1 key.
func deriveUTXOAddress(params *chain.Params, privKey []byte) (string, error) {
	if len(privKey) != 32 {
		return "", ErrInvalidKey
	}
	priv, _ := btcec.PrivKeyFromBytes(privKey)
	pubKeyHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	return base58.CheckEncode(pubKeyHash, params.PubKeyHashAddrID), nil
}

// FormatFixedPoint converts an amount in smallest units to its decimal
// representation. The conversion is exact: no rounding ever occurs, so a
// credited amount can never exceed what arrived on chain.
func FormatFixedPoint(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ParseFixedPoint converts a decimal amount to smallest units, truncating
// any precision beyond the coin's decimals.
func ParseFixedPoint(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}
