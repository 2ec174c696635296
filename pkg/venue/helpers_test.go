package venue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memOrders is an in-memory OrderStore preserving insertion order.
type memOrders struct {
	mu  sync.Mutex
	seq []string
	m   map[string]*Order
}

func newMemOrders() *memOrders {
	return &memOrders{m: make(map[string]*Order)}
}

func cloneOrder(o *Order) *Order {
	c := *o
	return &c
}

func (s *memOrders) Save(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[o.ID]; !ok {
		s.seq = append(s.seq, o.ID)
	}
	s.m[o.ID] = cloneOrder(o)
	return nil
}

func (s *memOrders) FindByID(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *memOrders) FindPending(_ context.Context) ([]*Order, error) {
	return s.filter(func(o *Order) bool { return o.Status == OrderPending }), nil
}

func (s *memOrders) FindByClass(_ context.Context, class CustomerClass) ([]*Order, error) {
	return s.filter(func(o *Order) bool { return o.Class == class }), nil
}

func (s *memOrders) FindByWallet(_ context.Context, wallet common.Address) ([]*Order, error) {
	return s.filter(func(o *Order) bool { return o.Wallet == wallet }), nil
}

func (s *memOrders) Update(_ context.Context, id string, mutate func(*Order) error) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	c := cloneOrder(o)
	if err := mutate(c); err != nil {
		return nil, err
	}
	s.m[id] = c
	return cloneOrder(c), nil
}

func (s *memOrders) filter(keep func(*Order) bool) []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, id := range s.seq {
		if o := s.m[id]; keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

// memBalances is an in-memory BalanceStore.
type memBalances struct {
	mu sync.Mutex
	m  map[common.Address]*Balance
}

func newMemBalances() *memBalances {
	return &memBalances{m: make(map[common.Address]*Balance)}
}

func cloneBalance(b *Balance) *Balance {
	c := *b
	return &c
}

func (s *memBalances) FindByWallet(_ context.Context, wallet common.Address) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[wallet]
	if !ok {
		return nil, nil
	}
	return cloneBalance(b), nil
}

func (s *memBalances) All(_ context.Context) ([]*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Balance
	for _, b := range s.m {
		out = append(out, cloneBalance(b))
	}
	return out, nil
}

func (s *memBalances) Save(_ context.Context, b *Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[b.Wallet] = cloneBalance(b)
	return nil
}

// fakeLedger is a scriptable Ledger.
type fakeLedger struct {
	mu sync.Mutex

	base  decimal.Decimal
	quote decimal.Decimal

	balErr    error
	settleErr error
	txRef     string

	getCalls    int
	settleCalls int

	lastTradeID string
	lastBase    decimal.Decimal
	lastQuote   decimal.Decimal
	lastBuyer   common.Address
	lastSeller  common.Address

	// onSettle, when set, runs inside SettleTrade before returning.
	onSettle func()
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		base:  dec("100"),
		quote: dec("100000"),
		txRef: "0xdeadbeef",
	}
}

func (l *fakeLedger) GetBalances(_ context.Context, _ common.Address) (decimal.Decimal, decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getCalls++
	if l.balErr != nil {
		return decimal.Zero, decimal.Zero, l.balErr
	}
	return l.base, l.quote, nil
}

func (l *fakeLedger) SettleTrade(_ context.Context, buyer, seller common.Address, baseAmount, quoteAmount decimal.Decimal, tradeID string) (string, error) {
	l.mu.Lock()
	l.settleCalls++
	l.lastTradeID = tradeID
	l.lastBase = baseAmount
	l.lastQuote = quoteAmount
	l.lastBuyer = buyer
	l.lastSeller = seller
	hook := l.onSettle
	err := l.settleErr
	ref := l.txRef
	l.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}

// stubSource pins the matching gate: math/rand derives Float64 from
// Int63, so a value one float64 ulp below 2^63 yields a draw near 1.0
// and zero yields 0.0. (Float64 resamples forever if the quotient
// rounds to exactly 1.0, which MaxInt64 does.)
type stubSource struct{ v int64 }

func (s stubSource) Int63() int64 { return s.v }
func (s stubSource) Seed(int64)   {}

func alwaysMatch() *rand.Rand { return rand.New(stubSource{v: 1<<63 - 1024}) }
func neverMatch() *rand.Rand  { return rand.New(stubSource{v: 0}) }

func testOrder(id string, class CustomerClass, price, qty string, clock *fakeClock) *Order {
	p := dec(price)
	q := dec(qty)
	kind := Buy
	if class == ClassB {
		kind = Sell
	}
	wallet := alice
	if class == ClassB {
		wallet = bob
	}
	return &Order{
		ID:               id,
		Symbol:           "ETH/USDT",
		Price:            p,
		Quantity:         q,
		Total:            p.Mul(q),
		Kind:             kind,
		Status:           OrderPending,
		Wallet:           wallet,
		Class:            class,
		Created:          clock.Now(),
		SettlementStatus: NotSettled,
	}
}
