// Package store provides Pebble-backed implementations of the venue's
// order and balance stores.
package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Key schema:
//
//	ord:<orderID>      → Order
//	bal:<address>      → Balance
const (
	prefixOrder   = "ord:"
	prefixBalance = "bal:"
)

func orderKey(id string) []byte {
	return []byte(prefixOrder + id)
}

func balanceKey(addr common.Address) []byte {
	return []byte(prefixBalance + addr.Hex())
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// DB wraps a Pebble database shared by the order and balance stores.
type DB struct {
	db *pebble.DB
}

// Open opens (or creates) the venue database at path.
func Open(path string) (*DB, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		MaxOpenFiles:          1000,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }
