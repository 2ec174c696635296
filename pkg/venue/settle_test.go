package venue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCoordinator(ledger *fakeLedger, clock *fakeClock) (*Coordinator, *memOrders, *memBalances) {
	orders := newMemOrders()
	balances := newMemBalances()
	cache := NewBalanceCache(balances, ledger, clock, 5*time.Minute, testLogger())
	coord := NewCoordinator(orders, cache, ledger, clock, time.Minute, testLogger())
	return coord, orders, balances
}

func TestExecuteTradeSettlesSuccessfully(t *testing.T) {
	ledger := newFakeLedger()
	clock := newFakeClock()
	coord, orders, _ := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "5", clock)
	sell := testOrder("sell1", ClassB, "90", "3", clock)
	seedPending(t, orders, buy, sell)

	if err := coord.ExecuteTrade(ctx, buy, sell); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// Terms: quantity = min(5, 3), price = mean(100, 90).
	if !ledger.lastBase.Equal(dec("3")) {
		t.Errorf("base amount = %s, want 3", ledger.lastBase)
	}
	if !ledger.lastQuote.Equal(dec("285")) {
		t.Errorf("quote amount = %s, want 285 (3 x 95)", ledger.lastQuote)
	}
	if ledger.lastTradeID != "buy1-sell1" {
		t.Errorf("trade id = %s, want buy1-sell1", ledger.lastTradeID)
	}
	if ledger.lastBuyer != buy.Wallet || ledger.lastSeller != sell.Wallet {
		t.Error("buyer/seller wallets not forwarded to contract")
	}

	for _, id := range []string{"buy1", "sell1"} {
		o, err := orders.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("find %s: %v", id, err)
		}
		if o.Status != OrderFilled {
			t.Errorf("%s status = %s, want filled", id, o.Status)
		}
		if o.Completed == nil {
			t.Errorf("%s has no completed timestamp", id)
		}
		if o.SettlementStatus != Settled {
			t.Errorf("%s settlement = %s, want settled", id, o.SettlementStatus)
		}
		if o.TxRef != "0xdeadbeef" {
			t.Errorf("%s tx ref = %q, want 0xdeadbeef", id, o.TxRef)
		}
		if o.SettledAt == nil {
			t.Errorf("%s has no settlement timestamp", id)
		}
	}
}

// Both orders are marked fully Filled even though the quantities 5 and
// 3 do not match; the 2-unit remainder is not re-queued.
func TestExecuteTradeAbsorbsQuantityMismatch(t *testing.T) {
	ledger := newFakeLedger()
	clock := newFakeClock()
	coord, orders, _ := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "5", clock)
	sell := testOrder("sell1", ClassB, "100", "3", clock)
	seedPending(t, orders, buy, sell)

	if err := coord.ExecuteTrade(ctx, buy, sell); err != nil {
		t.Fatalf("execute: %v", err)
	}

	stored, _ := orders.FindByID(ctx, "buy1")
	if stored.Status != OrderFilled {
		t.Errorf("buy status = %s, want filled despite larger quantity", stored.Status)
	}
	if !stored.Quantity.Equal(dec("5")) {
		t.Errorf("buy quantity rewritten to %s; record must keep its original quantity", stored.Quantity)
	}
	pending, _ := orders.FindPending(ctx)
	if len(pending) != 0 {
		t.Errorf("expected no residual pending orders, got %d", len(pending))
	}
}

func TestExecuteTradeRecordsLedgerFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.settleErr = errors.New("execution reverted")
	clock := newFakeClock()
	coord, orders, _ := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "2", clock)
	sell := testOrder("sell1", ClassB, "90", "2", clock)
	seedPending(t, orders, buy, sell)

	err := coord.ExecuteTrade(ctx, buy, sell)
	var sErr *SettlementError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected *SettlementError, got %v", err)
	}
	if sErr.TradeID != "buy1-sell1" {
		t.Errorf("trade id = %s, want buy1-sell1", sErr.TradeID)
	}

	for _, id := range []string{"buy1", "sell1"} {
		o, _ := orders.FindByID(ctx, id)
		if o.Status != OrderFilled {
			t.Errorf("%s status = %s, want filled (never reverted)", id, o.Status)
		}
		if o.SettlementStatus != SettlementFailed {
			t.Errorf("%s settlement = %s, want failed", id, o.SettlementStatus)
		}
		if o.SettlementError == "" {
			t.Errorf("%s has empty settlement error text", id)
		}
		if o.TxRef != "" {
			t.Errorf("%s has tx ref %q on a failed settlement", id, o.TxRef)
		}
	}
}

func TestExecuteTradeConflictOnBuyLeg(t *testing.T) {
	ledger := newFakeLedger()
	clock := newFakeClock()
	coord, orders, _ := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "2", clock)
	sell := testOrder("sell1", ClassB, "90", "2", clock)
	seedPending(t, orders, buy, sell)

	// Someone canceled the buy order between load and fill.
	if _, err := orders.Update(ctx, "buy1", func(o *Order) error {
		o.Status = OrderCanceled
		return nil
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := coord.ExecuteTrade(ctx, buy, sell)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if ledger.settleCalls != 0 {
		t.Error("contract must not be called when the fill conflicts")
	}
	o, _ := orders.FindByID(ctx, "sell1")
	if o.Status != OrderPending {
		t.Errorf("sell status = %s, want pending (untouched)", o.Status)
	}
}

func TestExecuteTradeConflictOnSellLegTerminatesBuy(t *testing.T) {
	ledger := newFakeLedger()
	clock := newFakeClock()
	coord, orders, _ := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "2", clock)
	sell := testOrder("sell1", ClassB, "90", "2", clock)
	seedPending(t, orders, buy, sell)

	if _, err := orders.Update(ctx, "sell1", func(o *Order) error {
		o.Status = OrderCanceled
		return nil
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := coord.ExecuteTrade(ctx, buy, sell)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if ledger.settleCalls != 0 {
		t.Error("contract must not be called when the fill conflicts")
	}

	// The buy leg was already Filled/Settling; it must terminate as a
	// failed settlement rather than stay stuck in Settling.
	o, _ := orders.FindByID(ctx, "buy1")
	if o.Status != OrderFilled {
		t.Errorf("buy status = %s, want filled", o.Status)
	}
	if o.SettlementStatus != SettlementFailed {
		t.Errorf("buy settlement = %s, want failed", o.SettlementStatus)
	}
	if o.SettlementError == "" {
		t.Error("buy settlement error text is empty")
	}
}

func TestExecuteTradeTogglesPendingFlag(t *testing.T) {
	ledger := newFakeLedger()
	clock := newFakeClock()
	coord, orders, balances := newTestCoordinator(ledger, clock)
	ctx := context.Background()

	buy := testOrder("buy1", ClassA, "100", "2", clock)
	sell := testOrder("sell1", ClassB, "90", "2", clock)
	seedPending(t, orders, buy, sell)
	seedBalances := []*Balance{NewBalance(buy.Wallet, clock.Now()), NewBalance(sell.Wallet, clock.Now())}
	for _, b := range seedBalances {
		if err := balances.Save(ctx, b); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}

	var pendingDuringSettle bool
	ledger.onSettle = func() {
		b, _ := balances.FindByWallet(ctx, buy.Wallet)
		pendingDuringSettle = b.PendingTransactions
	}

	if err := coord.ExecuteTrade(ctx, buy, sell); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !pendingDuringSettle {
		t.Error("pending flag not set while the settlement was in flight")
	}
	for _, w := range []*Order{buy, sell} {
		b, _ := balances.FindByWallet(ctx, w.Wallet)
		if b.PendingTransactions {
			t.Errorf("pending flag for %s still set after settlement", w.Wallet.Hex())
		}
	}
}
