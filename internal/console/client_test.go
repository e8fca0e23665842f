package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_APIErrorKeepsBodyVerbatim(t *testing.T) {
	const body = `{"error":"Cannot delete a closed purchase order","code":"PO_CLOSED","request_id":"r-1"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/purchase-orders/3", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", zerolog.Nop()).DeletePurchaseOrder(context.Background(), 3)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, body, apiErr.Body)
}

func TestClient_SendsBearerTokenAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Converted to PO", r.URL.Query().Get("status"))
		assert.Equal(t, "E001", r.URL.Query().Get("emp_code"))
		writeTestJSON(w, http.StatusOK, []core.PurchaseRequest{{ID: 4, ReqNo: "PR-2025-00004"}})
	}))
	defer srv.Close()

	prs, err := NewClient(srv.URL, "secret-token", zerolog.Nop()).ListPurchaseRequests(context.Background(),
		core.PurchaseRequestFilter{Status: core.PRStatusConverted, EmpCode: "E001"})
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, "PR-2025-00004", prs[0].ReqNo)
}

func TestClient_HonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "", zerolog.Nop()).GetPurchaseOrder(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
