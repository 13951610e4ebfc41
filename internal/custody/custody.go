// Package custody fronts the per-chain adapters with a single
// symbol-keyed surface. Failed balance reads are downgraded to zero
// with a warning: a zero balance carries no new information, so the
// reconciliation loop simply learns nothing this cycle instead of
// aborting. History and sweep failures propagate, because acting on a
// missing history or a failed sweep would corrupt the ledger.
package custody

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/pkg/logging"
)

// ErrUnknownCoin indicates no adapter is registered for a symbol (or a
// token symbol/network pair). Callers skip the wallet and move on.
var ErrUnknownCoin = errors.New("unknown coin")

// Facade routes custody operations to the adapter serving each coin.
type Facade struct {
	adapters map[string]adapter.Adapter            // base coins
	tokens   map[string]map[string]adapter.Adapter // token symbol -> network code
	log      *logging.Logger
}

// NewFacade creates an empty facade.
func NewFacade(log *logging.Logger) *Facade {
	return &Facade{
		adapters: make(map[string]adapter.Adapter),
		tokens:   make(map[string]map[string]adapter.Adapter),
		log:      log.Component("custody"),
	}
}

// Register binds a base-coin adapter to a symbol.
func (f *Facade) Register(symbol string, a adapter.Adapter) {
	f.adapters[symbol] = a
}

// RegisterToken binds a token adapter to a symbol on one network.
func (f *Facade) RegisterToken(symbol, network string, a adapter.Adapter) {
	if f.tokens[symbol] == nil {
		f.tokens[symbol] = make(map[string]adapter.Adapter)
	}
	f.tokens[symbol][network] = a
}

// Adapter resolves the adapter for a symbol. network is empty for base
// coins and a network code (ERC20, TRC20, BEP20) for tokens.
func (f *Facade) Adapter(symbol, network string) (adapter.Adapter, error) {
	if network == "" {
		if a, ok := f.adapters[symbol]; ok {
			return a, nil
		}
		return nil, ErrUnknownCoin
	}
	if a, ok := f.tokens[symbol][network]; ok {
		return a, nil
	}
	return nil, ErrUnknownCoin
}

// Symbols returns every registered coin symbol, base coins and tokens,
// sorted for deterministic iteration.
func (f *Facade) Symbols() []string {
	symbols := make([]string, 0, len(f.adapters)+len(f.tokens))
	for symbol := range f.adapters {
		symbols = append(symbols, symbol)
	}
	for symbol := range f.tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// TokenNetworks returns the network codes a token is registered on,
// sorted.
func (f *Facade) TokenNetworks(symbol string) []string {
	networks := make([]string, 0, len(f.tokens[symbol]))
	for code := range f.tokens[symbol] {
		networks = append(networks, code)
	}
	sort.Strings(networks)
	return networks
}

// Balance returns the on-chain balance of an address in smallest units.
// Adapter failures come back as zero with a warning.
func (f *Facade) Balance(ctx context.Context, symbol, network, address string) (*big.Int, error) {
	a, err := f.Adapter(symbol, network)
	if err != nil {
		return nil, err
	}

	balance, err := a.Balance(ctx, address)
	if err != nil {
		f.log.Warn("balance read failed, treating as zero", "coin", symbol, "network", network, "address", address, "err", err)
		return big.NewInt(0), nil
	}
	return balance, nil
}

// TokenBalance sums a token's balance across every network the owner
// holds an address on. addrs maps network code to address.
func (f *Facade) TokenBalance(ctx context.Context, symbol string, addrs map[string]string) (*big.Int, error) {
	if len(f.tokens[symbol]) == 0 {
		return nil, ErrUnknownCoin
	}

	total := big.NewInt(0)
	for _, network := range f.TokenNetworks(symbol) {
		address, ok := addrs[network]
		if !ok || address == "" {
			continue
		}
		balance, err := f.Balance(ctx, symbol, network, address)
		if err != nil {
			return nil, err
		}
		total.Add(total, balance)
	}
	return total, nil
}

// Transactions returns the observed history of an address. Unlike
// balance reads, history failures propagate: an empty list here is
// indistinguishable from "no deposits", and a caller that trusted it
// would advance its watermark past transactions it never saw.
func (f *Facade) Transactions(ctx context.Context, symbol, network, address string) ([]adapter.Tx, error) {
	a, err := f.Adapter(symbol, network)
	if err != nil {
		return nil, err
	}
	return a.Transactions(ctx, address)
}

// SweepAll moves the full balance of an account to the target address.
// Sweep failures are real failures and are never downgraded.
func (f *Facade) SweepAll(ctx context.Context, symbol, network string, from adapter.Account, to string) (*big.Int, error) {
	a, err := f.Adapter(symbol, network)
	if err != nil {
		return nil, err
	}
	return a.SweepAll(ctx, from, to)
}

// GenerateWallet creates a deposit account for a coin.
func (f *Facade) GenerateWallet(symbol, network string) (adapter.Account, error) {
	a, err := f.Adapter(symbol, network)
	if err != nil {
		return adapter.Account{}, err
	}
	return a.GenerateWallet()
}
