package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineAmounts holds the derived amounts of a single line.
// Values are unrounded; round only when rendering or serializing.
type LineAmounts struct {
	Gross         decimal.Decimal `json:"gross"`
	DiscountAmt   decimal.Decimal `json:"discount_amt"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmt        decimal.Decimal `json:"tax_amt"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// ComputeLine derives discount, tax and line total for one line.
//
// The order is fixed: gross, discount, taxable base, tax, total. No step rounds,
// so the document totals built from these values stay consistent with each other.
func ComputeLine(qty, unitPrice, discountPercent, taxRate decimal.Decimal) LineAmounts {
	gross := qty.Mul(unitPrice)
	discountAmt := ComputeDiscountAmount(gross, discountPercent)
	taxable := gross.Sub(discountAmt)
	taxAmt := taxable.Mul(taxRate.Div(hundred))
	return LineAmounts{
		Gross:         gross,
		DiscountAmt:   discountAmt,
		TaxableAmount: taxable,
		TaxAmt:        taxAmt,
		LineTotal:     taxable.Add(taxAmt),
	}
}

// ParseAmount converts free-form numeric input to a decimal.
// Empty or non-numeric input yields zero rather than an error.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Rounded returns a copy with every amount rounded to 2 places.
func (a LineAmounts) Rounded() LineAmounts {
	return LineAmounts{
		Gross:         a.Gross.Round(2),
		DiscountAmt:   a.DiscountAmt.Round(2),
		TaxableAmount: a.TaxableAmount.Round(2),
		TaxAmt:        a.TaxAmt.Round(2),
		LineTotal:     a.LineTotal.Round(2),
	}
}
