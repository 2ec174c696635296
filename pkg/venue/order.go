package venue

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Asset pair traded on the venue. Class A customers spend the quote
// asset to buy, class B customers spend the base asset to sell.
const (
	BaseAsset  = "ETH"
	QuoteAsset = "USDT"
)

// CustomerClass identifies which side of the venue a wallet belongs to.
// A is buyer-only, B is seller-only.
type CustomerClass string

const (
	ClassA CustomerClass = "A"
	ClassB CustomerClass = "B"
)

// OrderKind is the requested execution style of an order.
type OrderKind int8

const (
	BuyLimit OrderKind = iota
	SellLimit
	BuyMarket
	SellMarket
	Buy
	Sell
)

func (k OrderKind) String() string {
	switch k {
	case BuyLimit:
		return "buy-limit"
	case SellLimit:
		return "sell-limit"
	case BuyMarket:
		return "buy-market"
	case SellMarket:
		return "sell-market"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// IsBuy reports whether the kind spends quote asset.
func (k OrderKind) IsBuy() bool {
	return k == Buy || k == BuyLimit || k == BuyMarket
}

// IsSell reports whether the kind spends base asset.
func (k OrderKind) IsSell() bool {
	return k == Sell || k == SellLimit || k == SellMarket
}

// OrderStatus is the trade-status of an order. It transitions out of
// Pending at most once: to Filled by the matching engine or to
// Canceled by an explicit cancellation.
type OrderStatus int8

const (
	OrderPending OrderStatus = iota
	OrderFilled
	OrderCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderFilled:
		return "filled"
	case OrderCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SettlementStatus tracks the on-chain settlement of a filled order,
// independently of its trade-status. It advances monotonically
// NotSettled -> Settling -> Settled, or Settling -> Failed. Both
// Settled and Failed are terminal; a Filled order whose settlement
// failed stays Filled.
type SettlementStatus int8

const (
	NotSettled SettlementStatus = iota
	Settling
	Settled
	SettlementFailed
)

func (s SettlementStatus) String() string {
	switch s {
	case NotSettled:
		return "not-settled"
	case Settling:
		return "settling"
	case Settled:
		return "settled"
	case SettlementFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Order is a request to trade a fixed quantity of the base asset at a
// fixed unit price. Total is supplied by the caller and is not
// re-derived from Price and Quantity.
type Order struct {
	ID       string
	Symbol   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
	Kind     OrderKind
	Status   OrderStatus
	Wallet   common.Address
	Class    CustomerClass

	Created   time.Time
	Completed *time.Time

	SettlementStatus SettlementStatus
	TxRef            string
	SettledAt        *time.Time
	SettlementError  string
}
