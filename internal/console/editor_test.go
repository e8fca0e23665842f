package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalogs = app.CatalogResult{
	Items: []core.Item{
		{ID: 11, Code: "BLT-01", Name: "Hex bolt M8", HSNCode: "7318"},
		{ID: 12, Code: "WSH-01", Name: "Flat washer M8", HSNCode: "7318"},
		{ID: 13, Code: "GLV-01", Name: "Nitrile gloves"},
	},
	TaxCodes: []core.TaxCode{
		{ID: 1, Code: "GST18", Name: "GST 18%", Rate: decimal.NewFromInt(18)},
		{ID: 2, Code: "GST5", Name: "GST 5%", Rate: decimal.NewFromInt(5)},
	},
	Warehouses: []core.Warehouse{{ID: 1, Name: "Main"}},
	UOMs:       []core.UOM{{ID: 1, Code: "NOS", Name: "Numbers"}},
	Vendors:    []core.Vendor{{Code: "V001", Name: "Acme Fasteners"}},
	Employees:  []core.Employee{{Code: "E001", Name: "Asha Rao"}},
}

type fakeAPI struct {
	mux       *http.ServeMux
	calls     atomic.Int32
	lastPO    core.PurchaseOrderInput
	lastPR    core.PurchaseRequestInput
	prStatus  core.PRStatus
	statusErr int
	catalogs  app.CatalogResult
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux(), prStatus: core.PRStatusPending, catalogs: testCatalogs}

	f.mux.HandleFunc("GET /api/catalogs", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, f.catalogs)
	})
	f.mux.HandleFunc("POST /api/purchase-orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPO))
		writeTestJSON(w, http.StatusCreated, persistedPO(f.lastPO))
	})
	f.mux.HandleFunc("POST /api/purchase-requests", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPR))
		writeTestJSON(w, http.StatusCreated, f.persistedPR())
	})
	f.mux.HandleFunc("PUT /api/purchase-requests/1/status", func(w http.ResponseWriter, r *http.Request) {
		if f.statusErr != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.statusErr)
			_, _ = w.Write([]byte(`{"error":"invalid status transition","code":"INVALID_TRANSITION"}`))
			return
		}
		var in core.StatusInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		f.prStatus = core.PRStatus(in.Status)
		writeTestJSON(w, http.StatusOK, f.persistedPR())
	})
	f.mux.HandleFunc("GET /api/purchase-requests/1", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, f.persistedPR())
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL, "", zerolog.Nop())
}

func (f *fakeAPI) persistedPR() core.PurchaseRequest {
	pr := core.PurchaseRequest{
		ID: 1, ReqNo: "PR-2025-00001", Status: f.prStatus,
		EmpCode: f.lastPR.EmpCode, PostDate: f.lastPR.PostDate, DocDate: f.lastPR.DocDate,
		Priority: core.PriorityMedium,
	}
	for _, row := range f.lastPR.Rows {
		need := row.NeedDate
		pr.Rows = append(pr.Rows, core.PurchaseRequestLine{
			LineNo: row.LineNo, ItemID: row.ItemID, Quantity: row.Quantity,
			NeedDate: &need, CurrentStock: decimal.NewFromInt(25),
		})
	}
	return pr
}

func persistedPO(in core.PurchaseOrderInput) core.PurchaseOrder {
	po := core.PurchaseOrder{ID: 7, PONo: "PO-2025-00001", Status: core.POStatusOpen, VendorCode: in.VendorCode,
		PostDate: in.PostDate, DocDate: in.DocDate}
	var amounts []core.LineAmounts
	for _, row := range in.Rows {
		rate, _ := core.ResolveTaxRate(row.TaxCode, testCatalogs.TaxCodes)
		a := core.ComputeLine(row.Quantity, row.UnitPrice, row.DiscountPercent, rate)
		amounts = append(amounts, a)
		code := row.TaxCode
		po.Rows = append(po.Rows, core.PurchaseOrderLine{
			LineNo: row.LineNo, ItemID: row.ItemID, Quantity: row.Quantity, UnitPrice: row.UnitPrice,
			DiscountPercent: row.DiscountPercent, DiscountAmt: a.DiscountAmt, TaxCode: &code,
			TaxRate: rate, TaxAmt: a.TaxAmt, LineTotal: a.LineTotal,
		})
	}
	t := core.ComputeTotals(amounts)
	po.Subtotal, po.DiscountAmt, po.TaxAmt, po.TotalAmt = t.Subtotal, t.DiscountTotal, t.TaxTotal, t.GrandTotal
	return po
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestEditor_PurchaseOrderWorkedExample(t *testing.T) {
	api, client := newFakeAPI(t)
	ctx := context.Background()

	e, err := NewEditor(ctx, client, core.KindPurchaseOrder, "buyer", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, e.SetVendor("V001"))

	row := e.RowIDs()[0]
	require.NoError(t, e.SelectItem(row, 11))
	require.NoError(t, e.SetQuantity(row, "10"))
	require.NoError(t, e.SetUnitPrice(row, "100"))
	require.NoError(t, e.SetDiscountPercent(row, "10"))
	require.NoError(t, e.SetTaxCode(row, "GST18"))

	totals := e.Totals()
	assert.Equal(t, "1062.00", totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "162.00", totals.TaxTotal.StringFixed(2))
	assert.Equal(t, "100.00", totals.DiscountTotal.StringFixed(2))

	// blank line is left out of the payload
	e.AddLine()

	require.NoError(t, e.Save(ctx))
	require.Len(t, api.lastPO.Rows, 1)
	assert.Equal(t, 1, api.lastPO.Rows[0].LineNo)
	assert.Equal(t, "buyer", api.lastPO.CreatedBy)

	assert.Equal(t, 7, e.ID())
	assert.Equal(t, "PO-2025-00001", e.Number())
	assert.Equal(t, string(core.POStatusOpen), e.Status())
	assert.Len(t, e.Lines(), 1)
	assert.Equal(t, "1062.00", e.Totals().GrandTotal.StringFixed(2))
}

func TestEditor_DuplicateItemRejected(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseOrder, "buyer", zerolog.Nop())
	require.NoError(t, err)

	first := e.RowIDs()[0]
	require.NoError(t, e.SelectItem(first, 11))
	second := e.AddLine()
	err = e.SelectItem(second, 11)
	assert.ErrorIs(t, err, core.ErrDuplicateItem)

	line, _ := findLine(e, second)
	assert.False(t, line.HasItem())

	require.NoError(t, e.RemoveLine(first))
	assert.NoError(t, e.SelectItem(second, 11))
	assert.Equal(t, 1, e.Lines()[0].LineNo)
}

func TestEditor_UnknownItem(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, e.SelectItem(e.RowIDs()[0], 99), core.ErrInvalidReference)
}

func TestEditor_DocDateResetsNeedDates(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)

	e.AddLine()
	require.NoError(t, e.SetNeedDate(e.RowIDs()[0], "2025-12-31"))
	e.SetDocDate("2025-05-10")

	for _, l := range e.Lines() {
		assert.Equal(t, "2025-06-09", l.NeedDate)
	}
	assert.Equal(t, "2025-06-09", lineByID(t, e, e.AddLine()).NeedDate)
}

func TestEditor_SaveRejectsInvalidFormWithoutCallingAPI(t *testing.T) {
	api, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)
	before := api.calls.Load()

	require.NoError(t, e.SetEmployee("E001"))
	require.NoError(t, e.SelectItem(e.RowIDs()[0], 11))
	// quantity left blank

	err = e.Save(context.Background())
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "rows[0].req_qty")
	assert.Equal(t, before, api.calls.Load())
	assert.Zero(t, e.ID())
}

func TestEditor_RequestStatusRefetches(t *testing.T) {
	api, client := newFakeAPI(t)
	ctx := context.Background()
	e, err := NewEditor(ctx, client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)

	assert.ErrorIs(t, e.RequestStatus(ctx, "Approved"), ErrUnsaved)

	require.NoError(t, e.SetEmployee("E001"))
	row := e.RowIDs()[0]
	require.NoError(t, e.SelectItem(row, 12))
	require.NoError(t, e.SetQuantity(row, "40"))
	require.NoError(t, e.Save(ctx))
	assert.Equal(t, "PR-2025-00001", e.Number())
	assert.Equal(t, "Pending", e.Status())
	assert.Equal(t, "40", e.TotalQuantity().String())

	require.NoError(t, e.RequestStatus(ctx, "Approved"))
	assert.Equal(t, "Approved", e.Status())

	api.statusErr = http.StatusConflict
	err = e.RequestStatus(ctx, "Rejected")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.JSONEq(t, `{"error":"invalid status transition","code":"INVALID_TRANSITION"}`, apiErr.Body)
	assert.Equal(t, "Approved", e.Status())
}

func TestEditor_ApplyDraftSkipsExistingItems(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, e.SelectItem(e.RowIDs()[0], 11))

	added := e.ApplyDraft(&app.DraftLinesResult{Lines: []app.DraftedLine{
		{ItemID: 11, Quantity: decimal.NewFromInt(5)},
		{ItemID: 13, Quantity: decimal.NewFromInt(20)},
	}})
	assert.Equal(t, 1, added)

	lines := e.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 13, lines[1].ItemID)
	assert.Equal(t, 2, lines[1].LineNo)
	assert.Equal(t, "20", lines[1].Quantity.String())
}

func TestEditor_ApplyDraftDropsLineAppendedForSkippedItem(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseRequest, "clerk", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, e.SelectItem(e.RowIDs()[0], 11))

	added := e.ApplyDraft(&app.DraftLinesResult{Lines: []app.DraftedLine{
		{ItemID: 12, Quantity: decimal.NewFromInt(4)},
		{ItemID: 11, Quantity: decimal.NewFromInt(5)},
		{ItemID: 99, Quantity: decimal.NewFromInt(1)},
	}})
	assert.Equal(t, 1, added)

	lines := e.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, []int{11, 12}, []int{lines[0].ItemID, lines[1].ItemID})
	assert.Equal(t, "4", e.TotalQuantity().String())
	for _, l := range lines {
		assert.True(t, l.HasItem(), "line %d left empty", l.LineNo)
	}
}

func TestEditor_ClearItem(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseOrder, "buyer", zerolog.Nop())
	require.NoError(t, err)
	row := e.RowIDs()[0]
	require.NoError(t, e.SelectItem(row, 11))
	require.NoError(t, e.SetQuantity(row, "10"))
	require.NoError(t, e.SetUnitPrice(row, "100"))
	require.Equal(t, "1000", e.Totals().GrandTotal.String())

	require.NoError(t, e.ClearItem(row))
	assert.False(t, e.Lines()[0].HasItem())
	assert.True(t, e.Totals().GrandTotal.IsZero())

	require.NoError(t, e.SelectItem(row, 11))
	assert.ErrorIs(t, e.ClearItem("missing"), core.ErrLineNotFound)
}

func TestEditor_ReloadCatalogsRecomputesTax(t *testing.T) {
	api, client := newFakeAPI(t)
	ctx := context.Background()
	e, err := NewEditor(ctx, client, core.KindPurchaseOrder, "buyer", zerolog.Nop())
	require.NoError(t, err)
	row := e.RowIDs()[0]
	require.NoError(t, e.SelectItem(row, 11))
	require.NoError(t, e.SetQuantity(row, "10"))
	require.NoError(t, e.SetUnitPrice(row, "100"))
	require.NoError(t, e.SetDiscountPercent(row, "10"))
	require.NoError(t, e.SetTaxCode(row, "GST18"))
	require.Equal(t, "1062", e.Totals().GrandTotal.String())

	api.catalogs.TaxCodes = []core.TaxCode{{ID: 1, Code: "GST18", Rate: decimal.NewFromInt(12)}}
	require.NoError(t, e.ReloadCatalogs(ctx))

	assert.Equal(t, "1008", e.Totals().GrandTotal.String())
	assert.Equal(t, "12", e.Lines()[0].TaxRate.String())
}

func TestEditor_Discard(t *testing.T) {
	_, client := newFakeAPI(t)
	e, err := NewEditor(context.Background(), client, core.KindPurchaseOrder, "buyer", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, e.SetVendor("V001"))
	e.AddLine()

	e.Discard()
	assert.Empty(t, e.Header().VendorCode)
	assert.Len(t, e.Lines(), 1)
	assert.Zero(t, e.ID())
}

func findLine(e *Editor, rowID string) (core.LineItem, bool) {
	for _, l := range e.Lines() {
		if l.RowID == rowID {
			return l, true
		}
	}
	return core.LineItem{}, false
}

func lineByID(t *testing.T, e *Editor, rowID string) core.LineItem {
	t.Helper()
	l, ok := findLine(e, rowID)
	require.True(t, ok)
	return l
}
