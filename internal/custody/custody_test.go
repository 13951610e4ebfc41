package custody

import (
	"context"
	"errors"
	"io"
	"math/big"
	"reflect"
	"testing"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/pkg/logging"
)

type stubAdapter struct {
	balance    *big.Int
	balanceErr error
	txs        []adapter.Tx
	txsErr     error
	swept      *big.Int
	sweepErr   error
}

func (s *stubAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	return s.balance, s.balanceErr
}

func (s *stubAdapter) Transactions(ctx context.Context, address string) ([]adapter.Tx, error) {
	return s.txs, s.txsErr
}

func (s *stubAdapter) SweepAll(ctx context.Context, from adapter.Account, to string) (*big.Int, error) {
	return s.swept, s.sweepErr
}

func (s *stubAdapter) GenerateWallet() (adapter.Account, error) {
	return adapter.Account{Address: "generated"}, nil
}

func testFacade() *Facade {
	return NewFacade(logging.New(&logging.Config{Level: "fatal", Output: io.Discard}))
}

func TestAdapterResolution(t *testing.T) {
	f := testFacade()
	btc := &stubAdapter{}
	usdtERC := &stubAdapter{}
	f.Register("BTC", btc)
	f.RegisterToken("USDT", "ERC20", usdtERC)

	if a, err := f.Adapter("BTC", ""); err != nil || a != adapter.Adapter(btc) {
		t.Errorf("base coin resolution failed: %v", err)
	}
	if a, err := f.Adapter("USDT", "ERC20"); err != nil || a != adapter.Adapter(usdtERC) {
		t.Errorf("token resolution failed: %v", err)
	}

	if _, err := f.Adapter("XYZ", ""); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("err = %v, want ErrUnknownCoin", err)
	}
	if _, err := f.Adapter("USDT", "BEP20"); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("unregistered network err = %v, want ErrUnknownCoin", err)
	}
	if _, err := f.Adapter("BTC", "ERC20"); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("base coin with network err = %v, want ErrUnknownCoin", err)
	}
}

func TestSymbolsSorted(t *testing.T) {
	f := testFacade()
	f.Register("ETH", &stubAdapter{})
	f.Register("BTC", &stubAdapter{})
	f.RegisterToken("USDT", "ERC20", &stubAdapter{})

	want := []string{"BTC", "ETH", "USDT"}
	if got := f.Symbols(); !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}
}

func TestBalanceDowngradesErrors(t *testing.T) {
	f := testFacade()
	f.Register("BTC", &stubAdapter{balanceErr: errors.New("electrum down")})

	balance, err := f.Balance(context.Background(), "BTC", "", "addr")
	if err != nil {
		t.Fatalf("adapter failure should be downgraded: %v", err)
	}
	if balance.Sign() != 0 {
		t.Errorf("balance = %s, want 0", balance)
	}

	if _, err := f.Balance(context.Background(), "XYZ", "", "addr"); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("unknown coin err = %v, want ErrUnknownCoin", err)
	}
}

func TestTransactionsErrorsPropagate(t *testing.T) {
	f := testFacade()
	txsErr := errors.New("explorer down")
	f.Register("BTC", &stubAdapter{txsErr: txsErr})

	// A failed history read must never look like an empty history:
	// callers would treat the silence as authoritative and move on.
	if _, err := f.Transactions(context.Background(), "BTC", "", "addr"); !errors.Is(err, txsErr) {
		t.Errorf("history error was downgraded: %v", err)
	}
}

func TestTokenBalanceSumsNetworks(t *testing.T) {
	f := testFacade()
	f.RegisterToken("USDT", "ERC20", &stubAdapter{balance: big.NewInt(3_000_000)})
	f.RegisterToken("USDT", "TRC20", &stubAdapter{balance: big.NewInt(2_000_000)})

	total, err := f.TokenBalance(context.Background(), "USDT", map[string]string{
		"ERC20": "0xabc",
		"TRC20": "Tabc",
	})
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if total.Int64() != 5_000_000 {
		t.Errorf("total = %s, want 5000000", total)
	}

	// Networks with no address are skipped, not errors.
	partial, err := f.TokenBalance(context.Background(), "USDT", map[string]string{"ERC20": "0xabc"})
	if err != nil || partial.Int64() != 3_000_000 {
		t.Errorf("partial = %s (%v), want 3000000", partial, err)
	}

	if _, err := f.TokenBalance(context.Background(), "XYZ", nil); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("err = %v, want ErrUnknownCoin", err)
	}
}

func TestSweepErrorsPropagate(t *testing.T) {
	f := testFacade()
	sweepErr := errors.New("broadcast failed")
	f.Register("BTC", &stubAdapter{sweepErr: sweepErr})

	_, err := f.SweepAll(context.Background(), "BTC", "", adapter.Account{}, "dest")
	if !errors.Is(err, sweepErr) {
		t.Errorf("sweep error was downgraded: %v", err)
	}
}
