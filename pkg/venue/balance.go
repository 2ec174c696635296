package venue

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Balance is the locally cached view of a wallet's two asset holdings
// on the settlement contract. Exactly one record exists per wallet;
// records are created zeroed on first reference and never deleted.
type Balance struct {
	Wallet      common.Address
	BaseAmount  decimal.Decimal
	QuoteAmount decimal.Decimal

	LastUpdated time.Time
	// LastSync is when the amounts were last read from the settlement
	// contract. Nil means the record has never been synced.
	LastSync *time.Time

	// PendingTransactions is set while a settlement involving this
	// wallet is in flight on-chain.
	PendingTransactions bool
}

// NewBalance creates a zeroed balance record for a wallet.
func NewBalance(wallet common.Address, now time.Time) *Balance {
	return &Balance{
		Wallet:      wallet,
		BaseAmount:  decimal.Zero,
		QuoteAmount: decimal.Zero,
		LastUpdated: now,
	}
}
