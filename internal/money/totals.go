// Package money computes document totals with decimal arithmetic.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a malformed line item by its index in the input
// slice (before empty-description filtering).
type ValidationError struct {
	Row    int // -1 when the error is not row-specific
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s at row %d: %s", e.Field, e.Row, e.Reason)
}

// Item is the arithmetic view of a line item.
type Item struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Totals holds exact (unrounded) amounts in the document currency.
// Rounding to 2 places happens only in the Display helpers.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal

	// ExchangeRate converts to the presentation currency on display only.
	ExchangeRate decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals filters out rows with an empty description, validates the
// remainder and computes subtotal -> discount -> tax -> grand total.
// taxPercent and discountPercent are percentages (e.g. 14 for 14%).
func ComputeTotals(items []Item, taxPercent, discountPercent, exchangeRate decimal.Decimal) (Totals, error) {
	if exchangeRate.Sign() <= 0 {
		return Totals{}, &ValidationError{Row: -1, Field: "exchange_rate", Reason: "must be positive"}
	}
	if taxPercent.Sign() < 0 {
		return Totals{}, &ValidationError{Row: -1, Field: "tax_percent", Reason: "must not be negative"}
	}
	if discountPercent.Sign() < 0 {
		return Totals{}, &ValidationError{Row: -1, Field: "discount_percent", Reason: "must not be negative"}
	}

	subtotal := decimal.Zero
	valid := 0
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			continue // blank rows are dropped, not errors
		}
		if it.Quantity <= 0 {
			return Totals{}, &ValidationError{Row: i, Field: "quantity", Reason: "must be positive"}
		}
		if it.UnitPrice.Sign() < 0 {
			return Totals{}, &ValidationError{Row: i, Field: "unit_price", Reason: "must not be negative"}
		}
		subtotal = subtotal.Add(LineTotal(it))
		valid++
	}
	if valid == 0 {
		return Totals{}, &ValidationError{Row: -1, Field: "items", Reason: "no valid rows"}
	}

	discount := subtotal.Mul(discountPercent).Div(hundred)
	taxBase := subtotal.Sub(discount)
	tax := taxBase.Mul(taxPercent).Div(hundred)
	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		Tax:          tax,
		GrandTotal:   taxBase.Add(tax),
		ExchangeRate: exchangeRate,
	}, nil
}

// LineTotal returns quantity x unit price, exact.
func LineTotal(it Item) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Display rounds an exact amount to 2 places for presentation.
func Display(d decimal.Decimal) string { return d.StringFixed(2) }

// DisplayConverted applies the exchange rate before rounding; the stored
// amounts always stay in the document's declared currency.
func (t Totals) DisplayConverted(d decimal.Decimal) string {
	return d.Mul(t.ExchangeRate).StringFixed(2)
}
