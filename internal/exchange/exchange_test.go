package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWithdrawalFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/fees" || r.URL.Query().Get("coin") != "BTC" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Error("api key header missing")
		}
		io.WriteString(w, `{"withdrawal_fee":"0.00002"}`)
	}))
	defer server.Close()

	fee, err := New(server.URL, "secret", nil).WithdrawalFee(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("WithdrawalFee: %v", err)
	}
	if !fee.Equal(decimal.RequireFromString("0.00002")) {
		t.Errorf("fee = %s, want 0.00002", fee)
	}
}

func TestAggregateBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"available":"12.5"}`)
	}))
	defer server.Close()

	balance, err := New(server.URL, "", nil).AggregateBalance(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("AggregateBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("balance = %s, want 12.5", balance)
	}
}

func TestDepositAddressPrefersConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API was consulted despite configured address")
	}))
	defer server.Close()

	c := New(server.URL, "", map[string]string{"BTC": "1ConfiguredAddr"})
	addr, err := c.DepositAddress(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("DepositAddress: %v", err)
	}
	if addr != "1ConfiguredAddr" {
		t.Errorf("address = %s, want configured one", addr)
	}
}

func TestDepositAddressFromAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"address":"1VenueAddr"}`)
	}))
	defer server.Close()

	addr, err := New(server.URL, "", nil).DepositAddress(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("DepositAddress: %v", err)
	}
	if addr != "1VenueAddr" {
		t.Errorf("address = %s, want 1VenueAddr", addr)
	}
}

func TestDepositAddressMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"address":""}`)
	}))
	defer server.Close()

	_, err := New(server.URL, "", nil).DepositAddress(context.Background(), "XYZ")
	if !errors.Is(err, ErrNoDepositAddress) {
		t.Errorf("err = %v, want ErrNoDepositAddress", err)
	}
}

func TestVenueErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := New(server.URL, "", nil).WithdrawalFee(context.Background(), "BTC"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
