package venue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// OrderStore is the durable order record collection. The engine reads
// and writes through it but does not own its implementation.
type OrderStore interface {
	// FindPending returns all orders with trade-status Pending, oldest
	// first. The matching engine relies on this order being stable.
	FindPending(ctx context.Context) ([]*Order, error)

	// FindByClass returns all orders placed by the given customer class.
	FindByClass(ctx context.Context, class CustomerClass) ([]*Order, error)

	// FindByWallet returns all orders placed by a wallet, oldest first.
	FindByWallet(ctx context.Context, wallet common.Address) ([]*Order, error)

	// FindByID returns the order with the given id, or ErrOrderNotFound.
	FindByID(ctx context.Context, id string) (*Order, error)

	// Save persists a new or updated order record.
	Save(ctx context.Context, o *Order) error

	// Update applies mutate to the current stored order atomically and
	// persists the result. If mutate returns an error the record is left
	// untouched and the error is returned; callers use this to make
	// status transitions conditional on the order's current state.
	Update(ctx context.Context, id string, mutate func(*Order) error) (*Order, error)
}

// BalanceStore is the durable balance record collection, keyed by
// wallet address.
type BalanceStore interface {
	// FindByWallet returns the wallet's balance record, or nil if the
	// wallet has never been seen.
	FindByWallet(ctx context.Context, wallet common.Address) (*Balance, error)

	// All returns every balance record.
	All(ctx context.Context) ([]*Balance, error)

	// Save persists a new or updated balance record.
	Save(ctx context.Context, b *Balance) error
}

// Ledger is the authoritative balance and settlement system outside
// this process, in practice a smart contract.
type Ledger interface {
	// SettleTrade records a matched trade on the contract, moving
	// baseAmount from seller to buyer and quoteAmount from buyer to
	// seller. Returns the external transaction reference.
	SettleTrade(ctx context.Context, buyer, seller common.Address, baseAmount, quoteAmount decimal.Decimal, tradeID string) (string, error)

	// GetBalances reads a wallet's base and quote asset holdings from
	// the contract. Fails with ErrLedgerUnavailable when the contract
	// cannot be reached.
	GetBalances(ctx context.Context, wallet common.Address) (base, quote decimal.Decimal, err error)
}
