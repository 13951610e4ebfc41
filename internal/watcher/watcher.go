// Package watcher reconciles on-chain reality with the ledger. Each
// scan cycle walks the active deposit wallets, forwards swollen
// balances to the hot wallet, and credits new deposits exactly once.
package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/config"
	"github.com/ankerid/custody/internal/custody"
	"github.com/ankerid/custody/internal/exchange"
	"github.com/ankerid/custody/internal/ledger"
	"github.com/ankerid/custody/internal/sweep"
	"github.com/ankerid/custody/pkg/logging"
)

// venueAPI is the slice of the venue client the watcher needs; tests
// substitute a fake.
type venueAPI interface {
	WithdrawalFee(ctx context.Context, coin string) (decimal.Decimal, error)
	AggregateBalance(ctx context.Context, coin string) (decimal.Decimal, error)
}

var _ venueAPI = (*exchange.Client)(nil)

// Watcher drives the reconciliation cycle.
type Watcher struct {
	facade   *custody.Facade
	store    *ledger.Store
	venue    venueAPI
	sweeper  *sweep.Sweeper
	chainNet chain.Network
	log      *logging.Logger
}

// New creates a watcher. sweeper may be nil to disable forwarding.
func New(facade *custody.Facade, store *ledger.Store, venue venueAPI, sweeper *sweep.Sweeper, cfg *config.Config, log *logging.Logger) *Watcher {
	chainNet := chain.Mainnet
	if cfg.IsTestnet() {
		chainNet = chain.Testnet
	}
	return &Watcher{
		facade:   facade,
		store:    store,
		venue:    venue,
		sweeper:  sweeper,
		chainNet: chainNet,
		log:      log.Component("watcher"),
	}
}

// ScanAll runs one reconciliation cycle over every active wallet.
// Per-wallet failures are logged and skipped; the cycle never aborts.
func (w *Watcher) ScanAll(ctx context.Context) {
	wallets, err := w.store.GetActiveWallets(w.facade.Symbols())
	if err != nil {
		w.log.Error("failed to load wallets", "err", err)
		return
	}

	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return
		}
		if err := w.scanWallet(ctx, wallet); err != nil {
			w.log.Warn("wallet scan failed, skipping",
				"owner", wallet.Owner, "coin", wallet.Coin, "network", wallet.Network, "err", err)
		}
	}
}

// scanWallet reconciles one wallet: sweep first, then credit whatever
// history explains the balance change, then move the watermark.
func (w *Watcher) scanWallet(ctx context.Context, wallet *ledger.Wallet) error {
	balance, err := w.facade.Balance(ctx, wallet.Coin, wallet.Network, wallet.Address)
	if err != nil {
		return err
	}

	// Forward to hot before crediting: a failed sweep leaves the
	// watermark untouched, so the wallet is retried whole next cycle.
	if w.sweeper != nil {
		if _, err := w.sweeper.ForwardToHot(ctx, wallet); err != nil {
			if !errors.Is(err, sweep.ErrNoCentralWallet) {
				return fmt.Errorf("sweep failed: %w", err)
			}
			w.log.Debug("no central wallet, leaving funds in place", "coin", wallet.Coin)
		}
	}

	// The balance matching the watermark means no new information.
	if balance.Cmp(wallet.Watermark) == 0 {
		return nil
	}

	txs, err := w.facade.Transactions(ctx, wallet.Coin, wallet.Network, wallet.Address)
	if err != nil {
		return err
	}

	fee, err := w.venue.WithdrawalFee(ctx, wallet.Coin)
	if err != nil {
		return fmt.Errorf("fee lookup failed: %w", err)
	}

	decimals, err := w.decimalsFor(wallet.Coin, wallet.Network)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		if err := w.processTx(wallet, tx, fee, decimals); err != nil {
			w.log.Warn("failed to process transaction, skipping", "tx", tx.Hash, "err", err)
		}
	}

	return w.store.UpdateWatermark(wallet.Owner, wallet.Coin, wallet.Network, balance)
}

// processTx credits one observed transaction. Marking the hash seen
// comes first: the insert-if-absent guarantees at most one cycle ever
// processes a hash, even if a later step here fails.
func (w *Watcher) processTx(wallet *ledger.Wallet, tx adapter.Tx, fee decimal.Decimal, decimals uint8) error {
	inserted, err := w.store.MarkSeen(wallet.Coin, tx.Hash)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	amount := codec.FormatFixedPoint(tx.Amount, decimals)

	if tx.Side == adapter.SideSentTo {
		return w.store.AppendEntry(&ledger.Entry{
			Owner:  wallet.Owner,
			Coin:   wallet.Coin,
			Side:   ledger.SideWithdraw,
			Amount: amount,
			Status: ledger.StatusCompleted,
			TxHash: tx.Hash,
			TxType: ledger.TypeSystem,
		})
	}

	credited := amount.Sub(fee)
	if credited.IsNegative() {
		credited = decimal.Zero
	}
	deducted := amount.Sub(credited)

	if err := w.store.CreditPending(wallet.Owner, wallet.Coin, wallet.Network, credited); err != nil {
		return err
	}
	// The deposit entry records the full observed amount; the fee entry
	// accounts for the difference against the pending credit.
	if err := w.store.AppendEntry(&ledger.Entry{
		Owner:  wallet.Owner,
		Coin:   wallet.Coin,
		Side:   ledger.SideDeposit,
		Amount: amount,
		Status: ledger.StatusCompleted,
		TxHash: tx.Hash,
		TxType: ledger.TypeDeposit,
	}); err != nil {
		return err
	}
	if err := w.store.AppendEntry(&ledger.Entry{
		Owner:  wallet.Owner,
		Coin:   wallet.Coin,
		Side:   ledger.SideWithdraw,
		Amount: deducted,
		Status: ledger.StatusCompleted,
		TxHash: tx.Hash,
		TxType: ledger.TypeFee,
	}); err != nil {
		return err
	}

	w.log.Info("deposit credited", "owner", wallet.Owner, "coin", wallet.Coin,
		"tx", tx.Hash, "amount", amount, "credited", credited)
	return nil
}

// MergePending moves pending credit into spendable balances, one coin
// at a time, gated on the venue actually holding enough to cover it.
func (w *Watcher) MergePending(ctx context.Context) {
	for _, symbol := range w.facade.Symbols() {
		if ctx.Err() != nil {
			return
		}

		pending, err := w.store.TotalPending(symbol)
		if err != nil {
			w.log.Warn("failed to sum pending", "coin", symbol, "err", err)
			continue
		}
		if pending.IsZero() {
			continue
		}

		venueBalance, err := w.venue.AggregateBalance(ctx, symbol)
		if err != nil {
			w.log.Warn("venue balance unavailable, keeping credit pending", "coin", symbol, "err", err)
			continue
		}
		if venueBalance.LessThan(pending) {
			w.log.Warn("venue balance below pending credit, holding merge",
				"coin", symbol, "pending", pending, "venue", venueBalance)
			continue
		}

		merged, err := w.store.MergePendingIntoBalance(symbol)
		if err != nil {
			w.log.Error("merge failed", "coin", symbol, "err", err)
			continue
		}
		if merged > 0 {
			w.log.Info("merged pending credit", "coin", symbol, "wallets", merged, "amount", pending)
		}
	}
}

// decimalsFor returns the smallest-unit scale of a coin or token
// network.
func (w *Watcher) decimalsFor(symbol, network string) (uint8, error) {
	params, ok := chain.Get(symbol, w.chainNet)
	if !ok {
		return 0, custody.ErrUnknownCoin
	}
	if network == "" {
		return params.Decimals, nil
	}
	net, ok := params.NetworkByCode(network)
	if !ok {
		return 0, fmt.Errorf("%s has no network %s", symbol, network)
	}
	return net.Decimals, nil
}
