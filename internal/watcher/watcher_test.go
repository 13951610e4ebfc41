package watcher

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/internal/config"
	"github.com/ankerid/custody/internal/custody"
	"github.com/ankerid/custody/internal/ledger"
	"github.com/ankerid/custody/internal/sweep"
	"github.com/ankerid/custody/pkg/logging"
)

const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

type stubChain struct {
	balance     *big.Int
	txs         []adapter.Tx
	txErr       error
	txCalls     int
	sweepAmount *big.Int // overrides the swept amount when set
	sweepErr    error
	sweeps      int
}

func (s *stubChain) Balance(ctx context.Context, address string) (*big.Int, error) {
	return s.balance, nil
}

func (s *stubChain) Transactions(ctx context.Context, address string) ([]adapter.Tx, error) {
	s.txCalls++
	if s.txErr != nil {
		return nil, s.txErr
	}
	return s.txs, nil
}

func (s *stubChain) SweepAll(ctx context.Context, from adapter.Account, to string) (*big.Int, error) {
	if s.sweepErr != nil {
		return nil, s.sweepErr
	}
	s.sweeps++
	if s.sweepAmount != nil {
		return s.sweepAmount, nil
	}
	return s.balance, nil
}

func (s *stubChain) GenerateWallet() (adapter.Account, error) {
	return adapter.Account{}, nil
}

type fakeVenue struct {
	fee     decimal.Decimal
	balance decimal.Decimal
	balErr  error
}

func (f *fakeVenue) WithdrawalFee(ctx context.Context, coin string) (decimal.Decimal, error) {
	return f.fee, nil
}

func (f *fakeVenue) AggregateBalance(ctx context.Context, coin string) (decimal.Decimal, error) {
	return f.balance, f.balErr
}

type fixture struct {
	watcher *Watcher
	store   *ledger.Store
	facade  *custody.Facade
	venue   *fakeVenue
}

// newFixture wires a watcher over a real database and a stub BTC chain.
// withSweep controls whether a sweeper (with a configured hot wallet)
// is attached.
func newFixture(t *testing.T, stub *stubChain, withSweep bool) *fixture {
	t.Helper()
	log := logging.New(&logging.Config{Level: "fatal", Output: io.Discard})

	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	facade := custody.NewFacade(log)
	facade.Register("BTC", stub)

	venue := &fakeVenue{fee: decimal.RequireFromString("0.00002")}

	cfg := &config.Config{
		NetworkType: config.NetworkMainnet,
		Coins: map[string]config.CoinConfig{
			"BTC": {CentralWallet: "1Central", CentralKey: testKeyHex, MinSweepAmount: "0.001"},
		},
	}

	var sweeper *sweep.Sweeper
	if withSweep {
		sweeper = sweep.New(facade, nil, cfg, log)
	}

	w := New(facade, store, venue, sweeper, cfg, log)
	return &fixture{watcher: w, store: store, facade: facade, venue: venue}
}

func createWallet(t *testing.T, store *ledger.Store) *ledger.Wallet {
	t.Helper()
	w := &ledger.Wallet{Owner: "alice", Coin: "BTC", Address: "1Deposit", PrivKey: testKeyHex, Active: true}
	if err := store.CreateWallet(w); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestDepositCreditedOnce(t *testing.T) {
	stub := &stubChain{
		balance: big.NewInt(150000),
		txs:     []adapter.Tx{{Hash: "deadbeef", Side: adapter.SideDeposit, Amount: big.NewInt(150000)}},
	}
	fx := newFixture(t, stub, false)
	createWallet(t, fx.store)

	// Two full cycles over the same history.
	fx.watcher.ScanAll(context.Background())
	stub.balance = big.NewInt(160000) // force a re-examination
	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	// 150000 sats = 0.0015, minus 0.00002 fee.
	if !wallet.Pending.Equal(decimal.RequireFromString("0.00148")) {
		t.Errorf("pending = %s, want 0.00148 (credited exactly once)", wallet.Pending)
	}

	entries, _ := fx.store.EntriesByHash("BTC", "deadbeef")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (deposit + fee)", len(entries))
	}

	// The deposit entry carries the full observed amount; only the
	// pending credit is net of the fee.
	var depositAmount, feeAmount decimal.Decimal
	for _, e := range entries {
		switch e.TxType {
		case ledger.TypeDeposit:
			depositAmount = e.Amount
		case ledger.TypeFee:
			feeAmount = e.Amount
		}
	}
	if !depositAmount.Equal(decimal.RequireFromString("0.0015")) {
		t.Errorf("deposit entry = %s, want the full observed 0.0015", depositAmount)
	}
	if !feeAmount.Equal(decimal.RequireFromString("0.00002")) {
		t.Errorf("fee entry = %s, want 0.00002", feeAmount)
	}
}

func TestDepositBelowFeeFlooredAtZero(t *testing.T) {
	stub := &stubChain{
		balance: big.NewInt(1000), // 0.00001, below the 0.00002 fee
		txs:     []adapter.Tx{{Hash: "tiny", Side: adapter.SideDeposit, Amount: big.NewInt(1000)}},
	}
	fx := newFixture(t, stub, false)
	createWallet(t, fx.store)

	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.IsZero() {
		t.Errorf("pending = %s, want 0 (credit floored)", wallet.Pending)
	}

	entries, _ := fx.store.EntriesByHash("BTC", "tiny")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		switch e.TxType {
		case ledger.TypeDeposit:
			if !e.Amount.Equal(decimal.RequireFromString("0.00001")) {
				t.Errorf("deposit entry = %s, want the observed 0.00001", e.Amount)
			}
		case ledger.TypeFee:
			if !e.Amount.Equal(decimal.RequireFromString("0.00001")) {
				t.Errorf("fee entry = %s, want the full deposit 0.00001", e.Amount)
			}
		}
	}
}

func TestSentToRecordsSystemEntry(t *testing.T) {
	stub := &stubChain{
		balance: big.NewInt(0),
		txs:     []adapter.Tx{{Hash: "spend", Side: adapter.SideSentTo, Amount: big.NewInt(150000)}},
	}
	fx := newFixture(t, stub, false)
	w := createWallet(t, fx.store)
	fx.store.UpdateWatermark(w.Owner, w.Coin, "", big.NewInt(150000))

	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.IsZero() {
		t.Errorf("pending = %s, want 0 (spends never credit)", wallet.Pending)
	}

	entries, _ := fx.store.EntriesByHash("BTC", "spend")
	if len(entries) != 1 || entries[0].TxType != ledger.TypeSystem {
		t.Fatalf("entries = %+v, want one system entry", entries)
	}
	if wallet.Watermark.Sign() != 0 {
		t.Errorf("watermark = %s, want 0", wallet.Watermark)
	}
}

func TestUnchangedBalanceSkipsHistory(t *testing.T) {
	stub := &stubChain{balance: big.NewInt(150000)}
	fx := newFixture(t, stub, false)
	w := createWallet(t, fx.store)
	fx.store.UpdateWatermark(w.Owner, w.Coin, "", big.NewInt(150000))

	fx.watcher.ScanAll(context.Background())

	if stub.txCalls != 0 {
		t.Errorf("history fetched %d times for an unchanged balance, want 0", stub.txCalls)
	}
}

func TestSweepFailureLeavesWatermark(t *testing.T) {
	stub := &stubChain{
		balance:  big.NewInt(150000),
		txs:      []adapter.Tx{{Hash: "deadbeef", Side: adapter.SideDeposit, Amount: big.NewInt(150000)}},
		sweepErr: adapter.ErrGasCeiling,
	}
	fx := newFixture(t, stub, true)
	createWallet(t, fx.store)

	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if wallet.Watermark.Sign() != 0 {
		t.Errorf("watermark = %s, want 0 after aborted sweep", wallet.Watermark)
	}
	if !wallet.Pending.IsZero() {
		t.Errorf("pending = %s, want 0 (wallet retried whole next cycle)", wallet.Pending)
	}
}

func TestFeeStarvedSweepStillCredits(t *testing.T) {
	// Above the sweep threshold but below fee viability: the sweep is a
	// zero no-op, not an error, and must not block deposit crediting.
	stub := &stubChain{
		balance:     big.NewInt(150000),
		txs:         []adapter.Tx{{Hash: "deadbeef", Side: adapter.SideDeposit, Amount: big.NewInt(150000)}},
		sweepAmount: big.NewInt(0),
	}
	fx := newFixture(t, stub, true)
	createWallet(t, fx.store)

	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.Equal(decimal.RequireFromString("0.00148")) {
		t.Errorf("pending = %s, want 0.00148 despite the fee-starved sweep", wallet.Pending)
	}
	if wallet.Watermark.Cmp(big.NewInt(150000)) != 0 {
		t.Errorf("watermark = %s, want 150000", wallet.Watermark)
	}
}

func TestTransientHistoryFailureRetriesWallet(t *testing.T) {
	stub := &stubChain{
		balance: big.NewInt(150000),
		txs:     []adapter.Tx{{Hash: "deadbeef", Side: adapter.SideDeposit, Amount: big.NewInt(150000)}},
		txErr:   errors.New("explorer down"),
	}
	fx := newFixture(t, stub, false)
	createWallet(t, fx.store)

	// The failed cycle leaves the watermark untouched so the wallet is
	// re-examined whole.
	fx.watcher.ScanAll(context.Background())
	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if wallet.Watermark.Sign() != 0 {
		t.Fatalf("watermark = %s after a failed history read, want 0", wallet.Watermark)
	}
	if !wallet.Pending.IsZero() {
		t.Fatalf("pending = %s after a failed history read, want 0", wallet.Pending)
	}

	// The explorer recovers: the deposit is credited on the next cycle.
	stub.txErr = nil
	fx.watcher.ScanAll(context.Background())
	wallet, _ = fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.Equal(decimal.RequireFromString("0.00148")) {
		t.Errorf("pending = %s, want 0.00148 once history is readable again", wallet.Pending)
	}
	if wallet.Watermark.Cmp(big.NewInt(150000)) != 0 {
		t.Errorf("watermark = %s, want 150000", wallet.Watermark)
	}
}

func TestScanSweepsAboveThreshold(t *testing.T) {
	stub := &stubChain{balance: big.NewInt(150000)}
	fx := newFixture(t, stub, true)
	createWallet(t, fx.store)

	fx.watcher.ScanAll(context.Background())

	if stub.sweeps != 1 {
		t.Errorf("got %d sweeps, want 1", stub.sweeps)
	}
}

func TestEndToEndScan(t *testing.T) {
	stub := &stubChain{
		balance: big.NewInt(150000),
		txs:     []adapter.Tx{{Hash: "deadbeef", Side: adapter.SideDeposit, Amount: big.NewInt(150000)}},
	}
	fx := newFixture(t, stub, true)
	createWallet(t, fx.store)

	fx.watcher.ScanAll(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.Equal(decimal.RequireFromString("0.00148")) {
		t.Errorf("pending = %s, want 0.00148", wallet.Pending)
	}
	if wallet.Watermark.Cmp(big.NewInt(150000)) != 0 {
		t.Errorf("watermark = %s, want 150000", wallet.Watermark)
	}

	// A rescan with identical chain state changes nothing.
	fx.watcher.ScanAll(context.Background())
	again, _ := fx.store.GetWallet("alice", "BTC", "")
	if !again.Pending.Equal(wallet.Pending) || again.Watermark.Cmp(wallet.Watermark) != 0 {
		t.Error("rescan was not a no-op")
	}
}

func TestMergePendingGatedOnVenueBalance(t *testing.T) {
	stub := &stubChain{balance: big.NewInt(0)}
	fx := newFixture(t, stub, false)
	createWallet(t, fx.store)
	fx.store.CreditPending("alice", "BTC", "", decimal.RequireFromString("0.5"))

	// Venue holds less than the pending total: merge held back.
	fx.venue.balance = decimal.RequireFromString("0.4")
	fx.watcher.MergePending(context.Background())
	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Balance.IsZero() {
		t.Errorf("balance = %s, want 0 while venue cannot cover pending", wallet.Balance)
	}

	// Venue catches up: merge goes through.
	fx.venue.balance = decimal.RequireFromString("0.5")
	fx.watcher.MergePending(context.Background())
	wallet, _ = fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Balance.Equal(decimal.RequireFromString("0.5")) || !wallet.Pending.IsZero() {
		t.Errorf("after merge: balance=%s pending=%s", wallet.Balance, wallet.Pending)
	}
}

func TestMergePendingSkipsOnVenueError(t *testing.T) {
	stub := &stubChain{balance: big.NewInt(0)}
	fx := newFixture(t, stub, false)
	createWallet(t, fx.store)
	fx.store.CreditPending("alice", "BTC", "", decimal.RequireFromString("0.5"))
	fx.venue.balErr = errors.New("venue down")

	fx.watcher.MergePending(context.Background())

	wallet, _ := fx.store.GetWallet("alice", "BTC", "")
	if !wallet.Pending.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("pending = %s, want untouched 0.5", wallet.Pending)
	}
}
