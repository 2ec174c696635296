package venue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TradeExecutor fills and settles one matched order pair.
type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, buy, sell *Order) error
}

// Engine is the periodic matching sweep. It pairs pending buy orders
// (class A) with pending sell orders (class B) and pushes each pair
// through the trade executor.
//
// Matching is deliberately simple: buyers are scanned in store order,
// a pair is a candidate when the buy price is at or above the sell
// price, and each candidate must additionally pass a coin-flip
// admission gate (a uniform draw must exceed 0.5). There is no
// price-time priority and no partial matching.
type Engine struct {
	orders  OrderStore
	settler TradeExecutor
	rnd     *rand.Rand
	log     *zap.SugaredLogger

	// sweepMu makes Sweep single-flight: a call that finds a sweep
	// already running is rejected with ErrSweepInFlight.
	sweepMu sync.Mutex
}

// NewEngine creates a matching engine. rnd seeds the match admission
// gate; nil selects a time-seeded source.
func NewEngine(orders OrderStore, settler TradeExecutor, rnd *rand.Rand, log *zap.SugaredLogger) *Engine {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		orders:  orders,
		settler: settler,
		rnd:     rnd,
		log:     log,
	}
}

// Sweep runs one matching pass over all pending orders and returns the
// orders filled by it. Each buyer matches at most once per sweep, each
// seller is consumed by at most one buyer per sweep, and a settlement
// failure for one pair never aborts the sweep for the remaining
// buyers.
func (e *Engine) Sweep(ctx context.Context) ([]*Order, error) {
	if !e.sweepMu.TryLock() {
		return nil, ErrSweepInFlight
	}
	defer e.sweepMu.Unlock()

	pending, err := e.orders.FindPending(ctx)
	if err != nil {
		return nil, err
	}

	var buyers, sellers []*Order
	for _, o := range pending {
		switch o.Class {
		case ClassA:
			buyers = append(buyers, o)
		case ClassB:
			sellers = append(sellers, o)
		}
	}

	consumed := make(map[string]struct{}, len(sellers))
	var filled []*Order

	for _, buy := range buyers {
		for _, sell := range sellers {
			if _, ok := consumed[sell.ID]; ok {
				continue
			}
			if buy.Price.LessThan(sell.Price) {
				continue
			}
			if e.rnd.Float64() <= 0.5 {
				continue
			}

			err := e.settler.ExecuteTrade(ctx, buy, sell)

			// A seller that left Pending is spoken for even when the
			// settlement failed: a failed settlement still marked it
			// Filled.
			if sell.Status != OrderPending {
				consumed[sell.ID] = struct{}{}
			}

			if err != nil {
				e.log.Errorw("trade_execution_failed",
					"buy", buy.ID, "sell", sell.ID, "err", err)
				break
			}
			filled = append(filled, buy, sell)
			break
		}
	}

	if len(filled) > 0 {
		e.log.Infow("sweep_complete", "pending", len(pending), "filled", len(filled))
	}
	return filled, nil
}
