package codec

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

// deriveEVMAddress derives an EVM address from a secp256k1 private key.
// Address = "0x" + last 20 bytes of Keccak256(uncompressed pubkey without 0x04 prefix)
func deriveEVMAddress(privKey []byte) (string, error) {
	if len(privKey) != 32 {
		return "", ErrInvalidKey
	}
	priv, _ := btcec.PrivKeyFromBytes(privKey)

	pubKeyBytes := priv.PubKey().SerializeUncompressed()

	// Hash without the 0x04 prefix
	hash := Keccak256(pubKeyBytes[1:])

	// Take last 20 bytes
	return ChecksumAddress(hex.EncodeToString(hash[12:])), nil
}

// Keccak256 computes the Keccak-256 hash (used by Ethereum).
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// ChecksumAddress applies EIP-55 checksum to an address.
func ChecksumAddress(addr string) string {
	addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
	hash := hex.EncodeToString(Keccak256([]byte(addr)))

	result := "0x"
	for i, c := range addr {
		if c >= '0' && c <= '9' {
			result += string(c)
		} else {
			// If the ith digit of the hash is >= 8, uppercase
			if hash[i] >= '8' {
				result += strings.ToUpper(string(c))
			} else {
				result += string(c)
			}
		}
	}
	return result
}

// ValidateEVMAddress checks if an EVM address is valid.
func ValidateEVMAddress(address string) bool {
	address = strings.TrimPrefix(address, "0x")
	if len(address) != 40 {
		return false
	}
	_, err := hex.DecodeString(address)
	return err == nil
}

// IsChecksumValid checks if an EVM address has valid EIP-55 checksum.
func IsChecksumValid(address string) bool {
	address = strings.TrimPrefix(address, "0x")
	if len(address) != 40 {
		return false
	}

	// If all lowercase or all uppercase, checksum doesn't apply
	lower := strings.ToLower(address)
	upper := strings.ToUpper(address)
	if address == lower || address == upper {
		return true
	}

	checksummed := ChecksumAddress(address)
	return checksummed == "0x"+address
}
