package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// Orders is the Pebble-backed order store. A single mutex serializes
// read-modify-write cycles so Update is atomic with respect to other
// writers in this process.
type Orders struct {
	mu sync.Mutex
	db *pebble.DB
}

// NewOrders creates an order store over the shared database.
func NewOrders(db *DB) *Orders {
	return &Orders{db: db.db}
}

var _ venue.OrderStore = (*Orders)(nil)

// Save persists an order.
func (s *Orders) Save(_ context.Context, o *venue.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(o)
}

// FindByID returns an order by id, or venue.ErrOrderNotFound.
func (s *Orders) FindByID(_ context.Context, id string) (*venue.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// FindPending returns all Pending orders, oldest first.
func (s *Orders) FindPending(ctx context.Context) ([]*venue.Order, error) {
	return s.scan(func(o *venue.Order) bool {
		return o.Status == venue.OrderPending
	})
}

// FindByClass returns all orders for a customer class, oldest first.
func (s *Orders) FindByClass(_ context.Context, class venue.CustomerClass) ([]*venue.Order, error) {
	return s.scan(func(o *venue.Order) bool {
		return o.Class == class
	})
}

// FindByWallet returns a wallet's orders, oldest first.
func (s *Orders) FindByWallet(_ context.Context, wallet common.Address) ([]*venue.Order, error) {
	return s.scan(func(o *venue.Order) bool {
		return o.Wallet == wallet
	})
}

// Update loads the current record, applies mutate, and persists the
// result, all under the store lock. If mutate returns an error the
// record is not written.
func (s *Orders) Update(_ context.Context, id string, mutate func(*venue.Order) error) (*venue.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(o); err != nil {
		return nil, err
	}
	if err := s.put(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Orders) put(o *venue.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

func (s *Orders) get(id string) (*venue.Order, error) {
	data, closer, err := s.db.Get(orderKey(id))
	if err == pebble.ErrNotFound {
		return nil, venue.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	defer closer.Close()

	var o venue.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order %s: %w", id, err)
	}
	return &o, nil
}

// scan iterates all orders and keeps those matching keep, sorted by
// creation time (id as tiebreak) so callers see a stable order.
func (s *Orders) scan(keep func(*venue.Order) bool) ([]*venue.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*venue.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o venue.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue // skip invalid entries
		}
		if keep(&o) {
			out = append(out, &o)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}
