package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Types
// ==============================

// CreateOrderRequest is the order admission payload.
type CreateOrderRequest struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	Type          string          `json:"type"` // "buy-limit", "sell-limit", "buy-market", "sell-market", "buy", "sell"
	WalletAddress string          `json:"walletAddress"`
	CustomerType  string          `json:"customerType"` // "A" or "B"
}

// OrderResponse mirrors an order record.
type OrderResponse struct {
	ID               string     `json:"id"`
	Symbol           string     `json:"symbol"`
	Price            string     `json:"price"`
	Quantity         string     `json:"quantity"`
	Total            string     `json:"total"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	WalletAddress    string     `json:"walletAddress"`
	CustomerType     string     `json:"customerType"`
	Created          time.Time  `json:"created"`
	Completed        *time.Time `json:"completed,omitempty"`
	TransactionHash  string     `json:"transactionHash,omitempty"`
	SettlementStatus string     `json:"settlementStatus"`
	SettlementDate   *time.Time `json:"settlementDate,omitempty"`
	SettlementError  string     `json:"settlementError,omitempty"`
}

func toOrderResponse(o *venue.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		Symbol:           o.Symbol,
		Price:            o.Price.String(),
		Quantity:         o.Quantity.String(),
		Total:            o.Total.String(),
		Type:             o.Kind.String(),
		Status:           o.Status.String(),
		WalletAddress:    o.Wallet.Hex(),
		CustomerType:     string(o.Class),
		Created:          o.Created,
		Completed:        o.Completed,
		TransactionHash:  o.TxRef,
		SettlementStatus: o.SettlementStatus.String(),
		SettlementDate:   o.SettledAt,
		SettlementError:  o.SettlementError,
	}
}

// CancelOrderResponse reports a cancellation outcome.
type CancelOrderResponse struct {
	Canceled bool   `json:"canceled"`
	OrderID  string `json:"orderId"`
}

// BalanceResponse mirrors a cached balance record.
type BalanceResponse struct {
	WalletAddress         string     `json:"walletAddress"`
	EthBalance            string     `json:"ethBalance"`
	UsdtBalance           string     `json:"usdtBalance"`
	LastUpdated           time.Time  `json:"lastUpdated"`
	LastSyncWithContract  *time.Time `json:"lastSyncWithContract,omitempty"`
	HasPendingTransaction bool       `json:"hasPendingTransactions"`
}

func toBalanceResponse(b *venue.Balance) BalanceResponse {
	return BalanceResponse{
		WalletAddress:         b.Wallet.Hex(),
		EthBalance:            b.BaseAmount.String(),
		UsdtBalance:           b.QuoteAmount.String(),
		LastUpdated:           b.LastUpdated,
		LastSyncWithContract:  b.LastSync,
		HasPendingTransaction: b.PendingTransactions,
	}
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest is a client subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// FilledOrdersEvent is pushed to subscribers of the "orders" channel
// after every sweep that filled at least one pair.
type FilledOrdersEvent struct {
	Type      string          `json:"type"` // "orders_filled"
	Orders    []OrderResponse `json:"orders"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
}
