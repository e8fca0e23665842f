package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxCode is one entry of the tax code catalog.
type TaxCode struct {
	ID   int             `json:"tax_id"`
	Code string          `json:"tax_code"`
	Name string          `json:"tax_name"`
	Rate decimal.Decimal `json:"tax_rate"`
}

// ResolveTaxRate returns the rate of the catalog entry whose code matches taxCode.
// ok is false when taxCode is empty or not present in the catalog; callers treat
// that as a 0% rate.
func ResolveTaxRate(taxCode string, catalog []TaxCode) (rate decimal.Decimal, ok bool) {
	code := strings.TrimSpace(taxCode)
	if code == "" {
		return decimal.Zero, false
	}
	for _, tc := range catalog {
		if tc.Code == code {
			return tc.Rate, true
		}
	}
	return decimal.Zero, false
}

// ComputeDiscountAmount returns gross × pct/100.
// pct outside [0,100] is not rejected here; range checks belong to the caller.
func ComputeDiscountAmount(gross, discountPercent decimal.Decimal) decimal.Decimal {
	return gross.Mul(discountPercent.Div(hundred))
}
