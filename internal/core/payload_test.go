package core_test

import (
	"encoding/json"
	"errors"
	"testing"

	"procurement-desk/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPR() core.PurchaseRequestInput {
	return core.PurchaseRequestInput{
		EmpCode:  "E001",
		PostDate: "2025-05-01",
		DocDate:  "2025-05-01",
		Priority: core.PriorityHigh,
		Rows: []core.PurchaseRequestLineInput{
			{LineNo: 1, ItemID: 11, Quantity: d("4")},
			{LineNo: 2, ItemID: 12, Quantity: d("2.5")},
		},
	}
}

func violations(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "expected *core.ValidationError, got %v", err)
	return verr.Violations
}

func TestPurchaseRequestInput_Validate(t *testing.T) {
	require.NoError(t, validPR().Validate())

	tests := []struct {
		name   string
		mutate func(*core.PurchaseRequestInput)
		field  string
	}{
		{"missing employee", func(in *core.PurchaseRequestInput) { in.EmpCode = "" }, "emp_code"},
		{"bad post date", func(in *core.PurchaseRequestInput) { in.PostDate = "01/05/2025" }, "post_dt"},
		{"unknown priority", func(in *core.PurchaseRequestInput) { in.Priority = "Whenever" }, "priority"},
		{"no rows", func(in *core.PurchaseRequestInput) { in.Rows = nil }, "rows"},
		{"missing item", func(in *core.PurchaseRequestInput) { in.Rows[1].ItemID = 0 }, "rows[1].it_id"},
		{"zero quantity", func(in *core.PurchaseRequestInput) { in.Rows[0].Quantity = d("0") }, "rows[0].req_qty"},
		{"gap in line numbers", func(in *core.PurchaseRequestInput) { in.Rows[1].LineNo = 3 }, "rows[1].line_no"},
		{"duplicate item", func(in *core.PurchaseRequestInput) { in.Rows[1].ItemID = 11 }, "rows[1].it_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validPR()
			in.Rows = append([]core.PurchaseRequestLineInput(nil), in.Rows...)
			tc.mutate(&in)
			err := in.Validate()
			require.Error(t, err)
			assert.Contains(t, violations(t, err), tc.field)
		})
	}
}

func TestPurchaseOrderInput_Validate(t *testing.T) {
	in := core.PurchaseOrderInput{
		VendorCode: "V001",
		PostDate:   "2025-05-01",
		DocDate:    "2025-05-01",
		Rows: []core.PurchaseOrderLineInput{
			{LineNo: 1, ItemID: 11, Quantity: d("10"), UnitPrice: d("100"), DiscountPercent: d("10"), TaxCode: "GST18"},
		},
	}
	require.NoError(t, in.Validate())

	in.VendorCode = ""
	in.Status = "Pending"
	v := violations(t, in.Validate())
	assert.Contains(t, v, "bpcode")
	assert.Contains(t, v, "po_status")
}

func TestConversionInput_Validate(t *testing.T) {
	in := core.ConversionInput{RequestIDs: []int{1, 2}, VendorCode: "V001", PostDate: "2025-05-01", DocDate: "2025-05-01"}
	require.NoError(t, in.Validate())

	in.RequestIDs = []int{1, 1}
	assert.Contains(t, violations(t, in.Validate()), "req_ids[1]")

	in.RequestIDs = nil
	assert.Contains(t, violations(t, in.Validate()), "req_ids")
}

func TestPurchaseOrderInput_DecodesWireFormat(t *testing.T) {
	body := `{"bpcode":"V001","post_dt":"2025-05-01","doc_dt":"2025-05-01",
		"rows":[{"line_no":1,"it_id":11,"req_qty":"10","unit_price":100,"discount_percent":"10","tax_code":"GST18","whs_id":2}]}`

	var in core.PurchaseOrderInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	require.NoError(t, in.Validate())
	assert.True(t, in.Rows[0].UnitPrice.Equal(d("100")))
	require.NotNil(t, in.Rows[0].WarehouseID)
	assert.Equal(t, 2, *in.Rows[0].WarehouseID)
}

func TestValidationError_Message(t *testing.T) {
	err := &core.ValidationError{Violations: map[string]string{"rows": "min", "bpcode": "required"}}
	assert.Equal(t, "validation failed: bpcode: required; rows: min", err.Error())
}
