// Package adapter implements per-family chain access behind a single
// interface: balance reads, deposit observation, sweep-everything
// transfers, and wallet generation.
package adapter

import (
	"context"
	"errors"
	"math/big"

	"github.com/ankerid/custody/internal/signer"
)

var (
	// ErrInsufficientFunds indicates the balance cannot cover the transfer
	// plus its fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientGas indicates a token sweep found tokens but no base
	// coin to pay for gas.
	ErrInsufficientGas = errors.New("insufficient gas balance for token transfer")

	// ErrGasCeiling indicates the estimated gas exceeded the safety
	// ceiling, suggesting a contract-controlled recipient.
	ErrGasCeiling = errors.New("gas estimate above safety ceiling")

	// ErrBroadcastFailed indicates the network rejected the transaction.
	ErrBroadcastFailed = errors.New("broadcast failed")

	// ErrNotConfirmed indicates a broadcast transaction never reached a
	// confirmed status within the poll window.
	ErrNotConfirmed = errors.New("transaction not confirmed")

	// ErrInvalidAddress indicates a malformed counterparty address.
	ErrInvalidAddress = errors.New("invalid address")
)

// Side classifies a transaction relative to the observed address.
type Side string

const (
	SideDeposit Side = "Deposit"
	SideSentTo  Side = "Sent to"
)

// Tx is one observed transaction touching an address. Amount is in the
// coin's smallest units.
type Tx struct {
	Hash   string
	Side   Side
	Amount *big.Int
}

// Account is a generated deposit wallet: the address and the signer that
// controls it.
type Account struct {
	Address string
	Signer  *signer.Signer
}

// Adapter is the per-chain access surface. Amounts are always in the
// coin's smallest units (satoshi, wei, sun, lamports, token units).
type Adapter interface {
	// Balance returns the spendable balance of an address.
	Balance(ctx context.Context, address string) (*big.Int, error)

	// Transactions returns the observed history of an address, newest
	// first where the chain provides ordering.
	Transactions(ctx context.Context, address string) ([]Tx, error)

	// SweepAll moves the entire balance of the account to the target
	// address, deducting the network fee from the swept amount. It
	// returns the amount actually sent. A balance that cannot cover
	// the fee is not an error: SweepAll returns 0 and broadcasts
	// nothing, leaving the funds in place for a later attempt.
	SweepAll(ctx context.Context, from Account, to string) (*big.Int, error)

	// GenerateWallet creates a fresh deposit account.
	GenerateWallet() (Account, error)
}
