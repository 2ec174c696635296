package venue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/util"
)

// Service is the order admission surface: it validates candidates,
// checks balances, and persists admitted orders. Cancellation and
// per-wallet queries live here too.
type Service struct {
	orders   OrderStore
	balances *BalanceCache
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewService(orders OrderStore, balances *BalanceCache, clock util.Clock, log *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Service{
		orders:   orders,
		balances: balances,
		clock:    clock,
		log:      log,
	}
}

// AdmitOrder validates a candidate order, verifies the wallet can
// cover it against the cached balance view, and persists it as
// Pending/NotSettled. Admission fails closed: if the balance cannot be
// verified because the contract is unreachable, the order is rejected
// rather than assumed covered.
func (s *Service) AdmitOrder(ctx context.Context, cand CandidateOrder) (*Order, error) {
	if err := ValidateOrder(cand); err != nil {
		return nil, err
	}

	ok, err := s.balances.ValidateSufficient(ctx, cand.Class, cand.Wallet, cand.Total, cand.Quantity)
	if err != nil {
		if errors.Is(err, ErrLedgerUnavailable) {
			return nil, fmt.Errorf("unable to verify balance: %w", err)
		}
		return nil, err
	}
	if !ok {
		if cand.Class == ClassA {
			return nil, &InsufficientBalanceError{Asset: QuoteAsset, Required: cand.Total}
		}
		return nil, &InsufficientBalanceError{Asset: BaseAsset, Required: cand.Quantity}
	}

	o := &Order{
		ID:               uuid.NewString(),
		Symbol:           cand.Symbol,
		Price:            cand.Price,
		Quantity:         cand.Quantity,
		Total:            cand.Total,
		Kind:             cand.Kind,
		Status:           OrderPending,
		Wallet:           cand.Wallet,
		Class:            cand.Class,
		Created:          s.clock.Now(),
		SettlementStatus: NotSettled,
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}

	s.log.Infow("order_admitted", "order", o.ID, "class", o.Class,
		"kind", o.Kind.String(), "price", o.Price.String(), "qty", o.Quantity.String())
	return o, nil
}

// CancelOrder cancels a Pending order. If the order has already been
// filled (or canceled), the request fails with ErrNotPending and the
// order is left untouched.
func (s *Service) CancelOrder(ctx context.Context, id string) error {
	_, err := s.orders.Update(ctx, id, func(cur *Order) error {
		if cur.Status != OrderPending {
			return ErrNotPending
		}
		cur.Status = OrderCanceled
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Infow("order_canceled", "order", id)
	return nil
}

// ListOrders returns the wallet's order history, oldest first.
func (s *Service) ListOrders(ctx context.Context, wallet common.Address) ([]*Order, error) {
	return s.orders.FindByWallet(ctx, wallet)
}

// GetOrder returns a single order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.FindByID(ctx, id)
}
