package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/ankerid/custody/internal/chain"
)

// GenerateMasterMnemonic creates a fresh 24-word mnemonic for the central
// hot wallet. The mnemonic is printed once at provisioning time and never
// stored by the daemon.
func GenerateMasterMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// DeriveCoinSigner derives the central wallet signer for a coin from the
// master mnemonic, following BIP44 (m/44'/coin'/0'/0/0). Solana reuses
// the derived 32 bytes as an ed25519 seed.
func DeriveCoinSigner(mnemonic string, params *chain.Params) (*Signer, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: bad mnemonic", ErrInvalidKey)
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}

	for _, index := range params.DerivationPath(0, 0, 0) {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return New(priv.Serialize())
}
