package core_test

import (
	"testing"

	"procurement-desk/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var gstCatalog = []core.TaxCode{
	{ID: 1, Code: "GST0", Name: "GST 0%", Rate: d("0")},
	{ID: 2, Code: "GST5", Name: "GST 5%", Rate: d("5")},
	{ID: 3, Code: "GST18", Name: "GST 18%", Rate: d("18")},
}

func TestResolveTaxRate(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		want   string
		wantOK bool
	}{
		{"known code", "GST18", "18", true},
		{"zero rate code", "GST0", "0", true},
		{"surrounding spaces", " GST5 ", "5", true},
		{"unknown code", "VAT20", "0", false},
		{"empty code", "", "0", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rate, ok := core.ResolveTaxRate(tc.code, gstCatalog)
			assert.Equal(t, tc.wantOK, ok)
			assert.True(t, rate.Equal(d(tc.want)), "rate = %s", rate)
		})
	}
}

func TestComputeDiscountAmount(t *testing.T) {
	assert.True(t, core.ComputeDiscountAmount(d("1000"), d("10")).Equal(d("100")))
	assert.True(t, core.ComputeDiscountAmount(d("1000"), d("0")).IsZero())
	// out-of-range percentages are the caller's concern
	assert.True(t, core.ComputeDiscountAmount(d("1000"), d("150")).Equal(d("1500")))
}

func TestComputeLine_WorkedExample(t *testing.T) {
	a := core.ComputeLine(d("10"), d("100"), d("10"), d("18"))

	assert.True(t, a.Gross.Equal(d("1000")), "gross = %s", a.Gross)
	assert.True(t, a.DiscountAmt.Equal(d("100")), "discount = %s", a.DiscountAmt)
	assert.True(t, a.TaxableAmount.Equal(d("900")), "taxable = %s", a.TaxableAmount)
	assert.True(t, a.TaxAmt.Equal(d("162")), "tax = %s", a.TaxAmt)
	assert.True(t, a.LineTotal.Equal(d("1062")), "total = %s", a.LineTotal)
}

func TestComputeLine_UnknownTaxCodeMeansNoTax(t *testing.T) {
	rate, ok := core.ResolveTaxRate("NOPE", gstCatalog)
	require.False(t, ok)

	a := core.ComputeLine(d("10"), d("100"), d("10"), rate)
	assert.True(t, a.TaxAmt.IsZero())
	assert.True(t, a.LineTotal.Equal(a.TaxableAmount))
	assert.True(t, a.LineTotal.Equal(d("900")))
}

func TestComputeLine_MatchesClosedForm(t *testing.T) {
	tolerance := d("0.000000001")
	cases := [][4]string{
		{"3", "33.33", "7.5", "18"},
		{"0.001", "12345.67", "0", "5"},
		{"7", "19.99", "12.5", "28"},
		{"1", "0.01", "100", "18"},
		{"250", "4.2", "3", "0"},
	}
	for _, c := range cases {
		qty, price, disc, rate := d(c[0]), d(c[1]), d(c[2]), d(c[3])
		got := core.ComputeLine(qty, price, disc, rate).LineTotal

		one := decimal.NewFromInt(1)
		pct := decimal.NewFromInt(100)
		want := qty.Mul(price).Mul(one.Sub(disc.Div(pct))).Mul(one.Add(rate.Div(pct)))
		assert.True(t, got.Sub(want).Abs().LessThanOrEqual(tolerance), "%v: got %s want %s", c, got, want)
	}
}

func TestComputeLine_Idempotent(t *testing.T) {
	first := core.ComputeLine(d("3"), d("33.33"), d("7.5"), d("18"))
	second := core.ComputeLine(d("3"), d("33.33"), d("7.5"), d("18"))
	assert.Equal(t, first, second)
}

func TestParseAmount(t *testing.T) {
	assert.True(t, core.ParseAmount("12.50").Equal(d("12.5")))
	assert.True(t, core.ParseAmount(" 3 ").Equal(d("3")))
	assert.True(t, core.ParseAmount("").IsZero())
	assert.True(t, core.ParseAmount("abc").IsZero())
	assert.True(t, core.ParseAmount("null").IsZero())
}

func TestComputeTotals(t *testing.T) {
	line := core.ComputeLine(d("10"), d("100"), d("10"), d("18"))

	t.Run("two identical lines", func(t *testing.T) {
		totals := core.ComputeTotals([]core.LineAmounts{line, line})
		assert.True(t, totals.GrandTotal.Equal(d("2124")), "grand = %s", totals.GrandTotal)
		assert.True(t, totals.DiscountTotal.Equal(d("200")))
		assert.True(t, totals.TaxTotal.Equal(d("324")))
		assert.True(t, totals.Subtotal.Equal(d("2000")), "subtotal = %s", totals.Subtotal)
	})

	t.Run("no lines", func(t *testing.T) {
		totals := core.ComputeTotals(nil)
		assert.True(t, totals.GrandTotal.IsZero())
		assert.True(t, totals.Subtotal.IsZero())
	})

	t.Run("grand total is the exact sum of line totals", func(t *testing.T) {
		lines := []core.LineAmounts{
			core.ComputeLine(d("3"), d("33.33"), d("7.5"), d("18")),
			core.ComputeLine(d("7"), d("19.99"), d("12.5"), d("28")),
			core.ComputeLine(d("0.001"), d("12345.67"), d("0"), d("5")),
		}
		sum := decimal.Zero
		for _, l := range lines {
			sum = sum.Add(l.LineTotal)
		}
		totals := core.ComputeTotals(lines)
		assert.True(t, totals.GrandTotal.Equal(sum))
		assert.True(t, totals.Subtotal.Sub(totals.DiscountTotal).Add(totals.TaxTotal).Equal(totals.GrandTotal))
	})

	t.Run("rounding happens only on request", func(t *testing.T) {
		l := core.ComputeLine(d("3"), d("33.33"), d("7.5"), d("18"))
		totals := core.ComputeTotals([]core.LineAmounts{l}).Rounded()
		assert.Equal(t, "109.14", totals.GrandTotal.StringFixed(2))
		assert.Equal(t, l.Rounded().LineTotal.String(), totals.GrandTotal.String())
	})
}

func TestCheckDuplicate(t *testing.T) {
	assert.True(t, core.CheckDuplicate(7, []int{3, 7}))
	assert.False(t, core.CheckDuplicate(7, []int{3, 8}))
	assert.False(t, core.CheckDuplicate(0, []int{0, 3}))
	assert.False(t, core.CheckDuplicate(7, nil))
}
