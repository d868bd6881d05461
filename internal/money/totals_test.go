package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotalsWorkedExample(t *testing.T) {
	items := []Item{
		{Description: "Product A", Quantity: 2, UnitPrice: dec("50.00")},
		{Description: "Product B", Quantity: 1, UnitPrice: dec("75.00")},
	}
	tot, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if Display(tot.Subtotal) != "175.00" {
		t.Fatalf("subtotal = %s, want 175.00", Display(tot.Subtotal))
	}
	if Display(tot.GrandTotal) != "175.00" {
		t.Fatalf("grand total = %s, want 175.00", Display(tot.GrandTotal))
	}
}

func TestComputeTotalsDiscountThenTax(t *testing.T) {
	items := []Item{{Description: "Service", Quantity: 1, UnitPrice: dec("100.00")}}
	tot, err := ComputeTotals(items, dec("14"), dec("10"), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 100 - 10% = 90, + 14% of 90 = 102.60
	if Display(tot.Discount) != "10.00" {
		t.Fatalf("discount = %s", Display(tot.Discount))
	}
	if Display(tot.Tax) != "12.60" {
		t.Fatalf("tax = %s", Display(tot.Tax))
	}
	if Display(tot.GrandTotal) != "102.60" {
		t.Fatalf("grand total = %s", Display(tot.GrandTotal))
	}
	// invariant: grand total == subtotal - discount + tax
	want := tot.Subtotal.Sub(tot.Discount).Add(tot.Tax)
	if !tot.GrandTotal.Equal(want) {
		t.Fatalf("grand total %s != subtotal-discount+tax %s", tot.GrandTotal, want)
	}
}

func TestComputeTotalsNoFloatDrift(t *testing.T) {
	// 0.1 * 3 must be exactly 0.3
	items := []Item{{Description: "x", Quantity: 3, UnitPrice: dec("0.1")}}
	tot, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !tot.Subtotal.Equal(dec("0.3")) {
		t.Fatalf("subtotal = %s, want exactly 0.3", tot.Subtotal)
	}
}

func TestComputeTotalsDropsBlankRows(t *testing.T) {
	items := []Item{
		{Description: "  ", Quantity: 0, UnitPrice: dec("-5")}, // dropped before validation
		{Description: "Kept", Quantity: 2, UnitPrice: dec("3.50")},
	}
	tot, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if Display(tot.Subtotal) != "7.00" {
		t.Fatalf("subtotal = %s, want 7.00", Display(tot.Subtotal))
	}
}

func TestComputeTotalsAllRowsBlank(t *testing.T) {
	items := []Item{{Description: ""}, {Description: "   "}}
	_, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestComputeTotalsBadRowIndex(t *testing.T) {
	items := []Item{
		{Description: "ok", Quantity: 1, UnitPrice: dec("1")},
		{Description: "bad", Quantity: -2, UnitPrice: dec("1")},
	}
	_, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Row != 1 || verr.Field != "quantity" {
		t.Fatalf("wrong row report: %+v", verr)
	}

	items[1] = Item{Description: "bad", Quantity: 2, UnitPrice: dec("-1")}
	_, err = ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.NewFromInt(1))
	if !errors.As(err, &verr) || verr.Row != 1 || verr.Field != "unit_price" {
		t.Fatalf("wrong price row report: %v", err)
	}
}

func TestComputeTotalsExchangeRate(t *testing.T) {
	items := []Item{{Description: "x", Quantity: 1, UnitPrice: dec("100")}}
	_, err := ComputeTotals(items, decimal.Zero, decimal.Zero, decimal.Zero)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for zero rate, got %v", err)
	}

	tot, err := ComputeTotals(items, decimal.Zero, decimal.Zero, dec("30.85"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// stored amount stays in the document currency
	if Display(tot.GrandTotal) != "100.00" {
		t.Fatalf("stored grand total changed: %s", Display(tot.GrandTotal))
	}
	if tot.DisplayConverted(tot.GrandTotal) != "3085.00" {
		t.Fatalf("converted display = %s", tot.DisplayConverted(tot.GrandTotal))
	}
}
