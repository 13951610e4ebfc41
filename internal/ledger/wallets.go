// Package ledger - deposit wallet storage operations.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet errors
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
)

// Wallet is one deposit wallet. Balance and Pending are ledger amounts
// in coin units; Watermark is the last observed on-chain balance in the
// coin's smallest units.
type Wallet struct {
	ID        int64
	Owner     string
	Coin      string
	Network   string // token network code, empty for base coins
	Address   string
	PrivKey   string // hex key material
	Balance   decimal.Decimal
	Pending   decimal.Decimal
	Watermark *big.Int
	Active    bool
	CreatedAt time.Time
}

// CreateWallet stores a new deposit wallet.
func (s *Store) CreateWallet(w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO wallets (owner, coin, network, address, privkey, balance, pending, watermark, active, created_at)
		VALUES (?, ?, ?, ?, ?, '0', '0', '0', ?, ?)
	`, w.Owner, w.Coin, w.Network, w.Address, w.PrivKey, boolToInt(w.Active), time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrWalletExists
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	w.ID, _ = res.LastInsertId()
	return nil
}

// GetWallet retrieves a wallet by owner and coin. For token coins the
// network code selects among the per-network rows.
func (s *Store) GetWallet(owner, coin, network string) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, owner, coin, network, address, privkey, balance, pending, watermark, active, created_at
		FROM wallets WHERE owner = ? AND coin = ? AND network = ?
	`, owner, coin, network)

	return scanWallet(row)
}

// GetActiveWallets returns all active wallets for the given coins, in a
// fixed order so scan cycles are deterministic.
func (s *Store) GetActiveWallets(coins []string) ([]*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(coins) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(coins)-1) + "?"
	args := make([]interface{}, len(coins))
	for i, coin := range coins {
		args[i] = coin
	}

	rows, err := s.db.Query(`
		SELECT id, owner, coin, network, address, privkey, balance, pending, watermark, active, created_at
		FROM wallets WHERE active = 1 AND coin IN (`+placeholders+`)
		ORDER BY coin, owner, network
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// CreditPending adds an amount to a wallet's pending balance.
func (s *Store) CreditPending(owner, coin, network string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending string
	err := s.db.QueryRow(`
		SELECT pending FROM wallets WHERE owner = ? AND coin = ? AND network = ?
	`, owner, coin, network).Scan(&pending)
	if err == sql.ErrNoRows {
		return ErrWalletNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read pending: %w", err)
	}

	current, err := decimal.NewFromString(pending)
	if err != nil {
		return fmt.Errorf("corrupt pending value %q: %w", pending, err)
	}

	_, err = s.db.Exec(`
		UPDATE wallets SET pending = ?, updated_at = ? WHERE owner = ? AND coin = ? AND network = ?
	`, current.Add(amount).String(), time.Now().Unix(), owner, coin, network)
	if err != nil {
		return fmt.Errorf("failed to credit pending: %w", err)
	}
	return nil
}

// UpdateWatermark records the last observed on-chain balance.
func (s *Store) UpdateWatermark(owner, coin, network string, balance *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE wallets SET watermark = ?, updated_at = ? WHERE owner = ? AND coin = ? AND network = ?
	`, balance.String(), time.Now().Unix(), owner, coin, network)
	if err != nil {
		return fmt.Errorf("failed to update watermark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// MergePendingIntoBalance moves every wallet's pending amount into its
// balance for one coin. Returns the number of wallets touched.
func (s *Store) MergePendingIntoBalance(coin string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// sqlite would add the TEXT amounts as floats; merge row by row
	// with exact decimals instead.
	rows, err := s.db.Query(`
		SELECT id, balance, pending FROM wallets WHERE coin = ? AND pending != '0'
	`, coin)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending wallets: %w", err)
	}

	type merge struct {
		id      int64
		balance string
	}
	var merges []merge
	for rows.Next() {
		var id int64
		var balanceStr, pendingStr string
		if err := rows.Scan(&id, &balanceStr, &pendingStr); err != nil {
			rows.Close()
			return 0, err
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("corrupt balance value %q: %w", balanceStr, err)
		}
		pending, err := decimal.NewFromString(pendingStr)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("corrupt pending value %q: %w", pendingStr, err)
		}
		merges = append(merges, merge{id: id, balance: balance.Add(pending).String()})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	for _, m := range merges {
		if _, err := tx.Exec(`
			UPDATE wallets SET balance = ?, pending = '0', updated_at = ? WHERE id = ?
		`, m.balance, now, m.id); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to merge wallet %d: %w", m.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(merges)), nil
}

// TotalPending sums the pending balances of all wallets for a coin.
func (s *Store) TotalPending(coin string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT pending FROM wallets WHERE coin = ?`, coin)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum pending: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var pendingStr string
		if err := rows.Scan(&pendingStr); err != nil {
			return decimal.Zero, err
		}
		pending, err := decimal.NewFromString(pendingStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt pending value %q: %w", pendingStr, err)
		}
		total = total.Add(pending)
	}
	return total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var w Wallet
	var balance, pending, watermark string
	var active int
	var createdAt int64

	err := row.Scan(&w.ID, &w.Owner, &w.Coin, &w.Network, &w.Address, &w.PrivKey,
		&balance, &pending, &watermark, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}

	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance value %q: %w", balance, err)
	}
	if w.Pending, err = decimal.NewFromString(pending); err != nil {
		return nil, fmt.Errorf("corrupt pending value %q: %w", pending, err)
	}
	mark, ok := new(big.Int).SetString(watermark, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt watermark value %q", watermark)
	}
	w.Watermark = mark
	w.Active = active != 0
	w.CreatedAt = time.Unix(createdAt, 0)
	return &w, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
