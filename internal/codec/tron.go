package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// tronAddrVersion is the Base58Check version byte for Tron addresses (T...).
const tronAddrVersion = 0x41

// deriveTronAddress derives a Tron address from a secp256k1 private key.
// Tron uses the Ethereum scheme (Keccak256 of the uncompressed pubkey,
// last 20 bytes) but encodes the result as Base58Check with a 0x41 prefix.
func deriveTronAddress(privKey []byte) (string, error) {
	if len(privKey) != 32 {
		return "", ErrInvalidKey
	}
	priv, _ := btcec.PrivKeyFromBytes(privKey)

	pubKeyBytes := priv.PubKey().SerializeUncompressed()
	hash := Keccak256(pubKeyBytes[1:])

	return base58.CheckEncode(hash[12:], tronAddrVersion), nil
}

// TronAddressToHex converts a Base58Check Tron address to the hex form
// (41-prefixed) expected by the TronGrid wallet API.
func TronAddressToHex(address string) (string, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAddressFormat, err)
	}
	if version != tronAddrVersion || len(payload) != 20 {
		return "", fmt.Errorf("%w: not a Tron address", ErrUnsupportedAddressFormat)
	}
	return hex.EncodeToString(append([]byte{version}, payload...)), nil
}

// TronAddressFromHex converts a 41-prefixed hex address back to Base58Check.
func TronAddressFromHex(hexAddr string) (string, error) {
	raw, err := hex.DecodeString(hexAddr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAddressFormat, err)
	}
	if len(raw) != 21 || raw[0] != tronAddrVersion {
		return "", fmt.Errorf("%w: not a Tron hex address", ErrUnsupportedAddressFormat)
	}
	return base58.CheckEncode(raw[1:], raw[0]), nil
}

// ValidateTronAddress checks that an address is well-formed Base58Check
// with the Tron version byte.
func ValidateTronAddress(address string) bool {
	_, err := TronAddressToHex(address)
	return err == nil
}
