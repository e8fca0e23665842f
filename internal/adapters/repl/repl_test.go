package repl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"procurement-desk/internal/app"
	"procurement-desk/internal/console"
	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, saved *core.PurchaseOrderInput) *console.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalogs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(app.CatalogResult{
			Items: []core.Item{
				{ID: 11, Code: "BLT-01", Name: "Hex bolt M8"},
				{ID: 12, Code: "WSH-01", Name: "Flat washer M8"},
			},
			TaxCodes: []core.TaxCode{{ID: 1, Code: "GST18", Rate: decimal.NewFromInt(18)}},
			Vendors:  []core.Vendor{{Code: "V001", Name: "Acme Fasteners"}},
		})
	})
	mux.HandleFunc("POST /api/purchase-orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(saved))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(core.PurchaseOrder{ID: 3, PONo: "PO-2025-00003", Status: core.POStatusOpen})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return console.NewClient(srv.URL, "", zerolog.Nop())
}

func TestRunPurchaseOrderSession(t *testing.T) {
	var saved core.PurchaseOrderInput
	client := newTestClient(t, &saved)

	script := strings.Join([]string{
		"/new-po",
		"/vendor v001",
		"/lines",
		"BLT-01 10 100 10 GST18",
		"BLT-01 5",
		"WSH-01 10 100 10 GST18",
		"done",
		"/save",
		"/exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	Run(context.Background(), client, bufio.NewReader(strings.NewReader(script)), &out, "buyer", zerolog.Nop())

	text := out.String()
	assert.Contains(t, text, "item is already added to the document")
	assert.Contains(t, text, "2124.00")
	assert.Contains(t, text, "Saved PO-2025-00003")
	assert.Contains(t, text, "Goodbye!")

	require.Len(t, saved.Rows, 2)
	assert.Equal(t, "V001", saved.VendorCode)
	assert.Equal(t, 12, saved.Rows[1].ItemID)
	assert.Equal(t, 2, saved.Rows[1].LineNo)
}

func TestRunRequiresOpenForm(t *testing.T) {
	var saved core.PurchaseOrderInput
	client := newTestClient(t, &saved)

	var out bytes.Buffer
	Run(context.Background(), client, bufio.NewReader(strings.NewReader("/save\nneed 10 bolts\n")), &out, "buyer", zerolog.Nop())

	assert.Contains(t, out.String(), "No form is open")
	assert.Contains(t, out.String(), "Open one with /new-pr first")
}

func TestRunClearLine(t *testing.T) {
	var saved core.PurchaseOrderInput
	client := newTestClient(t, &saved)

	script := strings.Join([]string{
		"/new-po",
		"/vendor V001",
		"/item 1 BLT-01",
		"/qty 1 10",
		"/price 1 100",
		"/clear 1",
		"/item 1 WSH-01",
		"/qty 1 2",
		"/price 1 50",
		"/clear 9",
		"/save",
		"/exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	Run(context.Background(), client, bufio.NewReader(strings.NewReader(script)), &out, "buyer", zerolog.Nop())

	assert.Contains(t, out.String(), "no line 9 (form has 1 lines)")
	require.Len(t, saved.Rows, 1)
	assert.Equal(t, 12, saved.Rows[0].ItemID)
	assert.Equal(t, "2", saved.Rows[0].Quantity.String())
}
