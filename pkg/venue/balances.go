package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/util"
)

// DefaultBalanceMaxAge is how long a synced balance is served from
// cache before the next read goes back to the contract.
const DefaultBalanceMaxAge = 5 * time.Minute

// BalanceCache maintains the locally cached view of wallet balances,
// refreshing from the settlement contract when a record is stale. It
// never serves stale data silently: if a required refresh fails, the
// failure propagates to the caller.
type BalanceCache struct {
	store  BalanceStore
	ledger Ledger
	clock  util.Clock
	maxAge time.Duration
	log    *zap.SugaredLogger
}

// NewBalanceCache creates a cache over the given store and ledger.
// maxAge <= 0 selects DefaultBalanceMaxAge.
func NewBalanceCache(store BalanceStore, ledger Ledger, clock util.Clock, maxAge time.Duration, log *zap.SugaredLogger) *BalanceCache {
	if maxAge <= 0 {
		maxAge = DefaultBalanceMaxAge
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &BalanceCache{
		store:  store,
		ledger: ledger,
		clock:  clock,
		maxAge: maxAge,
		log:    log,
	}
}

// Get returns the wallet's cached balance, creating a zeroed record on
// first reference. If the record has never been synced, or its last
// sync is older than the freshness window, the amounts are refreshed
// from the contract before returning.
func (c *BalanceCache) Get(ctx context.Context, wallet common.Address) (*Balance, error) {
	b, err := c.fetchOrCreate(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if c.stale(b) {
		if err := c.sync(ctx, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Refresh forces a sync with the contract, ignoring the freshness
// window.
func (c *BalanceCache) Refresh(ctx context.Context, wallet common.Address) (*Balance, error) {
	b, err := c.fetchOrCreate(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if err := c.sync(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// All returns every cached balance record without triggering syncs.
func (c *BalanceCache) All(ctx context.Context) ([]*Balance, error) {
	return c.store.All(ctx)
}

// ValidateSufficient reports whether the wallet can cover an order:
// class A needs quote-asset holdings of at least orderTotal, class B
// needs base-asset holdings of at least orderQuantity. The boundary is
// inclusive. This is a point-in-time check against the cached view,
// not a reservation; no hold is placed on the amounts.
func (c *BalanceCache) ValidateSufficient(ctx context.Context, class CustomerClass, wallet common.Address, orderTotal, orderQuantity decimal.Decimal) (bool, error) {
	b, err := c.Get(ctx, wallet)
	if err != nil {
		return false, err
	}
	if class == ClassA {
		return b.QuoteAmount.GreaterThanOrEqual(orderTotal), nil
	}
	return b.BaseAmount.GreaterThanOrEqual(orderQuantity), nil
}

// SetPendingTransactions flags whether the wallet has a settlement in
// flight. Unknown wallets are ignored.
func (c *BalanceCache) SetPendingTransactions(ctx context.Context, wallet common.Address, pending bool) error {
	b, err := c.store.FindByWallet(ctx, wallet)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	b.PendingTransactions = pending
	b.LastUpdated = c.clock.Now()
	return c.store.Save(ctx, b)
}

func (c *BalanceCache) fetchOrCreate(ctx context.Context, wallet common.Address) (*Balance, error) {
	b, err := c.store.FindByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}
	c.log.Infow("balance_created", "wallet", wallet.Hex())
	b = NewBalance(wallet, c.clock.Now())
	if err := c.store.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *BalanceCache) stale(b *Balance) bool {
	if b.LastSync == nil {
		return true
	}
	return c.clock.Now().Sub(*b.LastSync) > c.maxAge
}

func (c *BalanceCache) sync(ctx context.Context, b *Balance) error {
	base, quote, err := c.ledger.GetBalances(ctx, b.Wallet)
	if err != nil {
		c.log.Errorw("balance_sync_failed", "wallet", b.Wallet.Hex(), "err", err)
		return fmt.Errorf("sync balance for %s: %w", b.Wallet.Hex(), err)
	}

	now := c.clock.Now()
	b.BaseAmount = base
	b.QuoteAmount = quote
	b.LastSync = &now
	b.LastUpdated = now

	if err := c.store.Save(ctx, b); err != nil {
		return err
	}
	c.log.Infow("balance_synced", "wallet", b.Wallet.Hex(),
		"base", base.String(), "quote", quote.String())
	return nil
}
