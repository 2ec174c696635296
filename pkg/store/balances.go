package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// Balances is the Pebble-backed balance store. One record per wallet.
type Balances struct {
	mu sync.Mutex
	db *pebble.DB
}

// NewBalances creates a balance store over the shared database.
func NewBalances(db *DB) *Balances {
	return &Balances{db: db.db}
}

var _ venue.BalanceStore = (*Balances)(nil)

// Save persists a balance record.
func (s *Balances) Save(_ context.Context, b *venue.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal balance: %w", err)
	}
	if err := s.db.Set(balanceKey(b.Wallet), data, pebble.Sync); err != nil {
		return fmt.Errorf("save balance %s: %w", b.Wallet.Hex(), err)
	}
	return nil
}

// FindByWallet returns the wallet's balance record, or nil if the
// wallet has never been seen.
func (s *Balances) FindByWallet(_ context.Context, wallet common.Address) (*venue.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, closer, err := s.db.Get(balanceKey(wallet))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", wallet.Hex(), err)
	}
	defer closer.Close()

	var b venue.Balance
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal balance %s: %w", wallet.Hex(), err)
	}
	return &b, nil
}

// All returns every balance record.
func (s *Balances) All(_ context.Context) ([]*venue.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(prefixBalance)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*venue.Balance
	for iter.First(); iter.Valid(); iter.Next() {
		var b venue.Balance
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			continue // skip invalid entries
		}
		out = append(out, &b)
	}
	return out, nil
}
