package venue

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound is returned by order lookups for unknown ids.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotPending is returned when an operation requires a Pending
	// order but the order has already been filled or canceled.
	ErrNotPending = errors.New("only pending orders can be canceled")

	// ErrStatusConflict is returned by conditional updates when the
	// order's current status no longer matches the expected one.
	ErrStatusConflict = errors.New("order status conflict")

	// ErrLedgerUnavailable is returned when the settlement contract
	// cannot be reached for a balance read. Callers fail closed rather
	// than serving stale amounts silently.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrSweepInFlight is returned when a sweep is requested while a
	// previous sweep is still running.
	ErrSweepInFlight = errors.New("sweep already in flight")
)

// ValidationError rejects a malformed or inadmissible order before any
// state change. The message is surfaced to the caller verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError rejects an order whose wallet cannot cover
// it. The message names the required asset and amount.
type InsufficientBalanceError struct {
	Asset    string
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: required %s %s", e.Asset, e.Required.String(), e.Asset)
}

// SettlementError records a failed external settlement call. The trade
// was already marked Filled when the failure occurred; the error text
// is persisted on both orders and the trade-status is not reverted.
type SettlementError struct {
	TradeID string
	Err     error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement failed for trade %s: %v", e.TradeID, e.Err)
}

func (e *SettlementError) Unwrap() error { return e.Err }
