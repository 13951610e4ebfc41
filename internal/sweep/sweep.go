// Package sweep moves funds along the custody pipeline: deposit wallets
// forward to the per-chain central (hot) wallet, and the central wallet
// moves to the external venue's deposit address. Every move is gated on
// the coin's sweep threshold so fee-burning micro-sweeps never happen.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/config"
	"github.com/ankerid/custody/internal/custody"
	"github.com/ankerid/custody/internal/exchange"
	"github.com/ankerid/custody/internal/ledger"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/pkg/logging"
)

var (
	// ErrNoCentralWallet indicates a coin has no central wallet
	// configured; its deposits stay where they are.
	ErrNoCentralWallet = errors.New("no central wallet configured")
)

// Sweeper runs threshold-gated sweeps.
type Sweeper struct {
	facade   *custody.Facade
	venue    *exchange.Client
	cfg      *config.Config
	chainNet chain.Network
	log      *logging.Logger
}

// New creates a sweeper. venue may be nil; hot moves then fail with an
// error instead of broadcasting anywhere.
func New(facade *custody.Facade, venue *exchange.Client, cfg *config.Config, log *logging.Logger) *Sweeper {
	chainNet := chain.Mainnet
	if cfg.IsTestnet() {
		chainNet = chain.Testnet
	}
	return &Sweeper{
		facade:   facade,
		venue:    venue,
		cfg:      cfg,
		chainNet: chainNet,
		log:      log.Component("sweep"),
	}
}

// ForwardToHot sweeps one deposit wallet into the coin's central wallet
// when its balance exceeds the threshold. Returns the amount swept in
// smallest units; below the threshold it is a no-op returning zero.
func (s *Sweeper) ForwardToHot(ctx context.Context, w *ledger.Wallet) (*big.Int, error) {
	central, _, err := s.centralFor(w.Coin, w.Network)
	if err != nil {
		return nil, err
	}

	threshold, err := s.thresholdRaw(w.Coin, w.Network)
	if err != nil {
		return nil, err
	}

	balance, err := s.facade.Balance(ctx, w.Coin, w.Network, w.Address)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(threshold) <= 0 {
		return big.NewInt(0), nil
	}

	key, err := signer.FromHex(w.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("wallet %s/%s has bad key material: %w", w.Owner, w.Coin, err)
	}

	account := adapter.Account{Address: w.Address, Signer: key}
	swept, err := s.facade.SweepAll(ctx, w.Coin, w.Network, account, central)
	if err != nil {
		return nil, err
	}

	s.log.Info("forwarded deposit wallet to hot",
		"coin", w.Coin, "network", w.Network, "owner", w.Owner, "swept", swept)
	return swept, nil
}

// MoveFromHot sweeps a coin's central wallet to the venue deposit
// address, with the same threshold gate. Token coins move per network.
func (s *Sweeper) MoveFromHot(ctx context.Context, symbol string) (*big.Int, error) {
	if s.venue == nil {
		return nil, errors.New("no venue configured")
	}

	params, ok := chain.Get(symbol, s.chainNet)
	if !ok {
		return nil, custody.ErrUnknownCoin
	}

	destination, err := s.venue.DepositAddress(ctx, symbol)
	if err != nil {
		return nil, err
	}

	networks := []string{""}
	if params.IsToken() {
		networks = s.facade.TokenNetworks(symbol)
	}

	total := big.NewInt(0)
	for _, network := range networks {
		swept, err := s.moveCentral(ctx, symbol, network, destination)
		if err != nil {
			s.log.Warn("hot move failed", "coin", symbol, "network", network, "err", err)
			continue
		}
		total.Add(total, swept)
	}
	return total, nil
}

func (s *Sweeper) moveCentral(ctx context.Context, symbol, network, destination string) (*big.Int, error) {
	central, centralKey, err := s.centralFor(symbol, network)
	if err != nil {
		return nil, err
	}

	threshold, err := s.thresholdRaw(symbol, network)
	if err != nil {
		return nil, err
	}

	balance, err := s.facade.Balance(ctx, symbol, network, central)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(threshold) <= 0 {
		return big.NewInt(0), nil
	}

	key, err := signer.FromHex(centralKey)
	if err != nil {
		return nil, fmt.Errorf("central wallet for %s has bad key material: %w", symbol, err)
	}

	account := adapter.Account{Address: central, Signer: key}
	swept, err := s.facade.SweepAll(ctx, symbol, network, account, destination)
	if err != nil {
		return nil, err
	}

	s.log.Info("moved hot wallet to venue", "coin", symbol, "network", network, "swept", swept)
	return swept, nil
}

// centralFor resolves the central wallet address and key for a coin.
// Tokens use the central wallet of their network's base chain.
func (s *Sweeper) centralFor(symbol, network string) (address, key string, err error) {
	cfgSymbol := symbol
	if network != "" {
		params, ok := chain.Get(symbol, s.chainNet)
		if !ok {
			return "", "", custody.ErrUnknownCoin
		}
		net, ok := params.NetworkByCode(network)
		if !ok {
			return "", "", fmt.Errorf("%s has no network %s", symbol, network)
		}
		cfgSymbol = net.Base
	}

	cc, ok := s.cfg.Coins[cfgSymbol]
	if !ok || cc.CentralWallet == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNoCentralWallet, cfgSymbol)
	}
	return cc.CentralWallet, cc.CentralKey, nil
}

// thresholdRaw converts a coin's configured threshold to smallest units.
func (s *Sweeper) thresholdRaw(symbol, network string) (*big.Int, error) {
	params, ok := chain.Get(symbol, s.chainNet)
	if !ok {
		return nil, custody.ErrUnknownCoin
	}

	decimals := params.Decimals
	if network != "" {
		net, ok := params.NetworkByCode(network)
		if !ok {
			return nil, fmt.Errorf("%s has no network %s", symbol, network)
		}
		decimals = net.Decimals
	}

	cc := s.cfg.Coins[symbol]
	return cc.MinSweep().Shift(int32(decimals)).BigInt(), nil
}
