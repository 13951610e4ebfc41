package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/ankerid/custody/internal/chain"
)

// AddressToScriptHash converts a Base58Check address to Electrum's
// scripthash format: SHA256(scriptPubKey) with the bytes reversed.
//
// Only legacy P2PKH and P2SH addresses are supported. Bech32 witness
// addresses fail with ErrUnsupportedAddressFormat; the wallet layer never
// generates them, so a witness address here means foreign input.
func AddressToScriptHash(params *chain.Params, address string) (string, error) {
	script, err := addressToScriptPubKey(params, address)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(script)
	return hex.EncodeToString(reverseBytes(hash[:])), nil
}

// AddressToScript reconstructs the scriptPubKey for a legacy address.
// Transaction building needs the raw script to sign against.
func AddressToScript(params *chain.Params, address string) ([]byte, error) {
	return addressToScriptPubKey(params, address)
}

// addressToScriptPubKey reconstructs the scriptPubKey for a legacy address.
func addressToScriptPubKey(params *chain.Params, address string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAddressFormat, err)
	}
	if len(payload) != 20 {
		return nil, fmt.Errorf("%w: payload is %d bytes, want 20", ErrUnsupportedAddressFormat, len(payload))
	}

	switch version {
	case params.PubKeyHashAddrID:
		return buildP2PKHScript(payload), nil
	case params.ScriptHashAddrID:
		return buildP2SHScript(payload), nil
	default:
		return nil, fmt.Errorf("%w: unknown version byte 0x%02x", ErrUnsupportedAddressFormat, version)
	}
}

// buildP2PKHScript builds OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func buildP2PKHScript(pubKeyHash []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, 0x76, 0xa9, 0x14) // OP_DUP OP_HASH160 PUSH20
	script = append(script, pubKeyHash...)
	script = append(script, 0x88, 0xac) // OP_EQUALVERIFY OP_CHECKSIG
	return script
}

// buildP2SHScript builds OP_HASH160 <hash> OP_EQUAL.
func buildP2SHScript(scriptHash []byte) []byte {
	script := make([]byte, 0, 23)
	script = append(script, 0xa9, 0x14) // OP_HASH160 PUSH20
	script = append(script, scriptHash...)
	script = append(script, 0x87) // OP_EQUAL
	return script
}

// reverseBytes returns a reversed copy of the byte slice.
func reverseBytes(b []byte) []byte {
	result := make([]byte, len(b))
	for i := 0; i < len(b); i++ {
		result[i] = b[len(b)-1-i]
	}
	return result
}
