package venue

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CandidateOrder is a prospective order as submitted by a customer,
// before admission.
type CandidateOrder struct {
	Symbol   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
	Kind     OrderKind
	Wallet   common.Address
	Class    CustomerClass
}

// ValidateOrder checks the structural and business rules an order must
// satisfy before admission. It is a pure predicate: no side effects on
// success, a *ValidationError on the first violated rule.
func ValidateOrder(c CandidateOrder) error {
	if !c.Price.IsPositive() {
		return validationf("price must be greater than 0")
	}
	if !c.Quantity.IsPositive() {
		return validationf("quantity must be greater than 0")
	}
	if !c.Total.IsPositive() {
		return validationf("total must be greater than 0")
	}
	if c.Class != ClassA && c.Class != ClassB {
		return validationf("customer class must be either A or B")
	}
	if c.Class == ClassA && !c.Kind.IsBuy() {
		return validationf("class A customers can only place buy orders")
	}
	if c.Class == ClassB && !c.Kind.IsSell() {
		return validationf("class B customers can only place sell orders")
	}
	return nil
}
