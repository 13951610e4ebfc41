// Package ledger - processed transaction hash tracking.
package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// MarkSeen records a transaction hash as processed. It returns true when
// this call inserted the hash, false when it was already present. The
// INSERT OR IGNORE makes the check-and-set atomic, so two scan cycles
// racing on the same hash cannot both win.
func (s *Store) MarkSeen(coin, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO seen_hashes (coin, txhash, seen_at) VALUES (?, ?, ?)
	`, coin, txHash, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to mark hash: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsSeen reports whether a hash has already been processed.
func (s *Store) IsSeen(coin, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM seen_hashes WHERE coin = ? AND txhash = ?
	`, coin, txHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadSeenHashes returns every processed hash grouped by coin.
func (s *Store) LoadSeenHashes() (map[string]map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT coin, txhash FROM seen_hashes`)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen hashes: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]map[string]bool)
	for rows.Next() {
		var coin, hash string
		if err := rows.Scan(&coin, &hash); err != nil {
			return nil, err
		}
		if seen[coin] == nil {
			seen[coin] = make(map[string]bool)
		}
		seen[coin][hash] = true
	}
	return seen, rows.Err()
}
