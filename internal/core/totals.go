package core

import "github.com/shopspring/decimal"

// DocumentTotals are the header-level amounts of a purchase order.
type DocumentTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_amt"`
	TaxTotal      decimal.Decimal `json:"tax_amt"`
	GrandTotal    decimal.Decimal `json:"total_amt"`
}

// ComputeTotals sums the derived line amounts into document totals.
//
// Subtotal is back-derived as grand − tax + discount instead of being summed
// from qty × price, so it always agrees with the line totals it was built from.
func ComputeTotals(lines []LineAmounts) DocumentTotals {
	discount := decimal.Zero
	tax := decimal.Zero
	grand := decimal.Zero
	for _, l := range lines {
		discount = discount.Add(l.DiscountAmt)
		tax = tax.Add(l.TaxAmt)
		grand = grand.Add(l.LineTotal)
	}
	return DocumentTotals{
		Subtotal:      grand.Sub(tax).Add(discount),
		DiscountTotal: discount,
		TaxTotal:      tax,
		GrandTotal:    grand,
	}
}

// Rounded returns the totals rounded to 2 places for display or serialization.
func (t DocumentTotals) Rounded() DocumentTotals {
	return DocumentTotals{
		Subtotal:      t.Subtotal.Round(2),
		DiscountTotal: t.DiscountTotal.Round(2),
		TaxTotal:      t.TaxTotal.Round(2),
		GrandTotal:    t.GrandTotal.Round(2),
	}
}
