// Package chain defines chain parameters for supported cryptocurrencies.
// All chain-specific values are hardcoded here - no external configuration needed.
package chain

// Network represents mainnet or testnet.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Family represents the blockchain family a coin settles on.
type Family string

const (
	FamilyUTXO   Family = "utxo"   // BTC and forks (LTC, DOGE)
	FamilyEVM    Family = "evm"    // Ethereum and EVM chains
	FamilyTron   Family = "tron"   // Tron
	FamilySolana Family = "solana" // Solana
	FamilyToken  Family = "token"  // Contract tokens riding a base chain
)

// TokenNetwork describes one settlement network for a token coin.
// A token like USDT exists on several base chains at once; each entry
// names the network code, the base coin whose adapter serves it, and
// the contract address on that chain.
type TokenNetwork struct {
	Code     string // ERC20, BEP20, TRC20
	Base     string // Base coin symbol (ETH, BNB, TRX)
	Contract string // Contract address on the base chain
	Decimals uint8  // Token decimals on this network
}

// Params contains all parameters for a supported coin.
type Params struct {
	// Identity
	Symbol   string // BTC, ETH, TRX, etc.
	Name     string // Bitcoin, Ethereum, etc.
	Family   Family // utxo, evm, tron, solana, token
	Decimals uint8  // 8 for BTC, 18 for ETH, 6 for TRX

	// BIP44 derivation for the central wallet master key
	CoinType uint32 // BIP44 coin type (0=BTC, 60=ETH, 195=TRX, 501=SOL)

	// Address prefixes (UTXO coins)
	PubKeyHashAddrID byte // Base58Check version for P2PKH
	ScriptHashAddrID byte // Base58Check version for P2SH
	WIF              byte // Private key prefix

	// EVM params
	ChainID uint64 // EVM chain ID

	// Token params: settlement networks, in preference order.
	// Empty for non-token coins.
	Networks []TokenNetwork
}

// IsToken reports whether the coin is a contract token on other chains.
func (p *Params) IsToken() bool {
	return p.Family == FamilyToken
}

// NetworkByCode returns the token settlement network with the given code.
func (p *Params) NetworkByCode(code string) (*TokenNetwork, bool) {
	for i := range p.Networks {
		if p.Networks[i].Code == code {
			return &p.Networks[i], true
		}
	}
	return nil, false
}

// DerivationPath returns the BIP44 derivation path for this coin.
// Format: m/44'/coin'/account'/change/index
func (p *Params) DerivationPath(account, change, index uint32) []uint32 {
	return []uint32{
		44 + 0x80000000,         // purpose' (hardened)
		p.CoinType + 0x80000000, // coin_type' (hardened)
		account + 0x80000000,    // account' (hardened)
		change,                  // change (0=external, 1=internal)
		index,                   // address_index
	}
}

// Registry holds all chain parameters indexed by symbol.
var registry = make(map[string]map[Network]*Params)

// Register adds chain params to the registry.
func Register(symbol string, network Network, params *Params) {
	if registry[symbol] == nil {
		registry[symbol] = make(map[Network]*Params)
	}
	registry[symbol][network] = params
}

// Get returns chain params for a symbol and network.
func Get(symbol string, network Network) (*Params, bool) {
	nets, ok := registry[symbol]
	if !ok {
		return nil, false
	}
	params, ok := nets[network]
	return params, ok
}

// List returns all registered coin symbols.
func List() []string {
	symbols := make([]string, 0, len(registry))
	for symbol := range registry {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// ListByFamily returns all coins of a specific family.
func ListByFamily(family Family) []string {
	var symbols []string
	for symbol, nets := range registry {
		for _, params := range nets {
			if params.Family == family {
				symbols = append(symbols, symbol)
				break
			}
		}
	}
	return symbols
}

// IsSupported returns true if the coin is registered.
func IsSupported(symbol string) bool {
	_, ok := registry[symbol]
	return ok
}

// GetByChainID returns chain params for an EVM chain ID.
func GetByChainID(chainID uint64, network Network) (*Params, bool) {
	for _, nets := range registry {
		if params, ok := nets[network]; ok {
			if params.Family == FamilyEVM && params.ChainID == chainID {
				return params, true
			}
		}
	}
	return nil, false
}

// UTXOParamsByVersion returns the UTXO coin whose P2PKH or P2SH version
// byte matches. Used to classify Base58Check addresses during script
// hash derivation.
func UTXOParamsByVersion(version byte, network Network) (*Params, bool) {
	for _, nets := range registry {
		params, ok := nets[network]
		if !ok || params.Family != FamilyUTXO {
			continue
		}
		if params.PubKeyHashAddrID == version || params.ScriptHashAddrID == version {
			return params, true
		}
	}
	return nil, false
}
