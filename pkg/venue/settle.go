package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/util"
)

var two = decimal.NewFromInt(2)

// Coordinator drives a matched order pair through the external
// settlement call and records the outcome on both orders.
type Coordinator struct {
	orders   OrderStore
	balances *BalanceCache
	ledger   Ledger
	clock    util.Clock
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewCoordinator creates a settlement coordinator. timeout bounds the
// on-chain settlement round-trip; expiry is treated as a settlement
// failure. timeout <= 0 disables the bound.
func NewCoordinator(orders OrderStore, balances *BalanceCache, ledger Ledger, clock util.Clock, timeout time.Duration, log *zap.SugaredLogger) *Coordinator {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Coordinator{
		orders:   orders,
		balances: balances,
		ledger:   ledger,
		clock:    clock,
		timeout:  timeout,
		log:      log,
	}
}

// ExecuteTrade fills a matched buy/sell pair and settles it on the
// contract.
//
// Trade terms: quantity is the smaller of the two order quantities,
// price is the arithmetic mean of the two order prices. Both orders
// are marked fully Filled regardless of any quantity mismatch; the
// remainder is not re-queued.
//
// Both orders are persisted as Filled/Settling before the contract is
// contacted, so a crash mid-settlement leaves an observable Settling
// order rather than a silently lost match. On contract failure both
// orders end Settling -> Failed with the error text recorded; the
// trade-status stays Filled and nothing is retried or reversed.
func (c *Coordinator) ExecuteTrade(ctx context.Context, buy, sell *Order) error {
	qty := decimal.Min(buy.Quantity, sell.Quantity)
	price := buy.Price.Add(sell.Price).Div(two)
	quoteAmount := qty.Mul(price)
	baseAmount := qty
	tradeID := buy.ID + "-" + sell.ID

	c.log.Infow("orders_matched",
		"trade", tradeID, "buy", buy.ID, "sell", sell.ID,
		"qty", qty.String(), "price", price.String())

	now := c.clock.Now()
	fill := func(cur *Order) error {
		if cur.Status != OrderPending {
			return ErrStatusConflict
		}
		cur.Status = OrderFilled
		cur.Completed = &now
		cur.SettlementStatus = Settling
		return nil
	}

	updated, err := c.orders.Update(ctx, buy.ID, fill)
	if err != nil {
		return err
	}
	*buy = *updated

	updated, err = c.orders.Update(ctx, sell.ID, fill)
	if err != nil {
		// The buy leg is already Filled/Settling and the trade-status
		// never reverts; terminate its settlement instead of leaving it
		// stuck in Settling.
		c.failLeg(ctx, buy, "counterparty "+sell.ID+" no longer pending")
		return err
	}
	*sell = *updated

	c.markPending(ctx, buy, sell, true)
	defer c.markPending(ctx, buy, sell, false)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	txRef, err := c.ledger.SettleTrade(callCtx, buy.Wallet, sell.Wallet, baseAmount, quoteAmount, tradeID)
	if err != nil {
		c.recordOutcome(ctx, buy, sell, func(cur *Order) error {
			if cur.SettlementStatus != Settling {
				return ErrStatusConflict
			}
			cur.SettlementStatus = SettlementFailed
			cur.SettlementError = err.Error()
			return nil
		})
		c.log.Errorw("settlement_failed", "trade", tradeID, "err", err)
		return &SettlementError{TradeID: tradeID, Err: err}
	}

	settledAt := c.clock.Now()
	c.recordOutcome(ctx, buy, sell, func(cur *Order) error {
		if cur.SettlementStatus != Settling {
			return ErrStatusConflict
		}
		cur.SettlementStatus = Settled
		cur.TxRef = txRef
		cur.SettledAt = &settledAt
		return nil
	})
	c.log.Infow("trade_settled", "trade", tradeID, "tx", txRef)
	return nil
}

// failLeg moves one order Settling -> Failed with the given reason.
func (c *Coordinator) failLeg(ctx context.Context, o *Order, reason string) {
	updated, err := c.orders.Update(ctx, o.ID, func(cur *Order) error {
		if cur.SettlementStatus != Settling {
			return ErrStatusConflict
		}
		cur.SettlementStatus = SettlementFailed
		cur.SettlementError = reason
		return nil
	})
	if err != nil {
		c.log.Errorw("settlement_record_failed", "order", o.ID, "err", err)
		return
	}
	*o = *updated
}

// recordOutcome applies the same settlement transition to both orders,
// logging rather than aborting if one side conflicts: the other side's
// durable record must still be written.
func (c *Coordinator) recordOutcome(ctx context.Context, buy, sell *Order, mutate func(*Order) error) {
	for _, o := range []*Order{buy, sell} {
		updated, err := c.orders.Update(ctx, o.ID, mutate)
		if err != nil {
			c.log.Errorw("settlement_record_failed", "order", o.ID, "err", err)
			continue
		}
		*o = *updated
	}
}

// markPending toggles the pending-transactions flag on both wallets.
// Best effort: flag upkeep never fails a settlement.
func (c *Coordinator) markPending(ctx context.Context, buy, sell *Order, pending bool) {
	for _, o := range []*Order{buy, sell} {
		if err := c.balances.SetPendingTransactions(ctx, o.Wallet, pending); err != nil {
			c.log.Warnw("pending_flag_update_failed", "wallet", o.Wallet.Hex(), "err", err)
		}
	}
}
