// Package ledger - append-only entry operations.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry sides describe the direction of the balance movement; the type
// says what the movement was. The pairings in use:
//
//	deposit/deposit    observed on-chain deposit, full amount
//	withdraw/fee       the venue fee deducted from a deposit credit
//	withdraw/system    funds sent out of a deposit wallet (sweeps)
//
// A withdraw-side row is a user withdrawal only when its type says so;
// fee and system rows are bookkeeping, not user actions.
const (
	SideDeposit  = "deposit"
	SideWithdraw = "withdraw"
)

// Entry types.
const (
	TypeDeposit = "deposit"
	TypeFee     = "fee"
	TypeSystem  = "system"
)

// Entry statuses.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// Entry is one immutable ledger record.
type Entry struct {
	ID        string
	Owner     string
	Coin      string
	Side      string
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Status    string
	TxHash    string
	TxType    string
	CreatedAt time.Time
}

// AppendEntry writes a new ledger entry. A missing ID gets a fresh UUID.
func (s *Store) AppendEntry(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO entries (id, owner, coin, side, amount, price, status, txhash, txtype, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Owner, e.Coin, e.Side, e.Amount.String(), e.Price.String(),
		e.Status, e.TxHash, e.TxType, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// EntriesByHash returns all entries recorded for one transaction hash.
func (s *Store) EntriesByHash(coin, txHash string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, owner, coin, side, amount, price, status, txhash, txtype, created_at
		FROM entries WHERE coin = ? AND txhash = ? ORDER BY created_at, txtype
	`, coin, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EntriesByOwner returns the most recent entries of one owner and coin.
func (s *Store) EntriesByOwner(owner, coin string, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, owner, coin, side, amount, price, status, txhash, txtype, created_at
		FROM entries WHERE owner = ? AND coin = ? ORDER BY created_at DESC LIMIT ?
	`, owner, coin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var amount, price string
	var createdAt int64

	err := row.Scan(&e.ID, &e.Owner, &e.Coin, &e.Side, &amount, &price,
		&e.Status, &e.TxHash, &e.TxType, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount value %q: %w", amount, err)
	}
	if e.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price value %q: %w", price, err)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}
