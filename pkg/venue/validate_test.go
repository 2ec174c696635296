package venue

import (
	"errors"
	"testing"
)

func TestValidateOrder(t *testing.T) {
	base := CandidateOrder{
		Symbol:   "ETH/USDT",
		Price:    dec("100"),
		Quantity: dec("2"),
		Total:    dec("200"),
		Kind:     BuyLimit,
		Wallet:   alice,
		Class:    ClassA,
	}

	tests := []struct {
		name   string
		mutate func(*CandidateOrder)
		wantOK bool
	}{
		{name: "valid buy limit from A", mutate: func(c *CandidateOrder) {}, wantOK: true},
		{name: "valid sell market from B", mutate: func(c *CandidateOrder) {
			c.Class = ClassB
			c.Kind = SellMarket
		}, wantOK: true},
		{name: "valid plain sell from B", mutate: func(c *CandidateOrder) {
			c.Class = ClassB
			c.Kind = Sell
		}, wantOK: true},
		{name: "zero price", mutate: func(c *CandidateOrder) { c.Price = dec("0") }},
		{name: "negative price", mutate: func(c *CandidateOrder) { c.Price = dec("-1") }},
		{name: "zero quantity", mutate: func(c *CandidateOrder) { c.Quantity = dec("0") }},
		{name: "zero total", mutate: func(c *CandidateOrder) { c.Total = dec("0") }},
		{name: "unknown class", mutate: func(c *CandidateOrder) { c.Class = "C" }},
		{name: "class A with sell kind", mutate: func(c *CandidateOrder) { c.Kind = SellLimit }},
		{name: "class B with buy kind", mutate: func(c *CandidateOrder) {
			c.Class = ClassB
			c.Kind = BuyMarket
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := base
			tt.mutate(&cand)
			err := ValidateOrder(cand)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}
