package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"
	"procurement-desk/internal/obs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	app.ApplicationService

	taxCodes   []core.TaxCode
	createdPR  core.PurchaseRequestInput
	createErr  error
	statusTo   core.PRStatus
	statusBy   string
	statusErr  error
	deleteErr  error
	updateErr  error
	draftErr   error
	convertIn  core.ConversionInput
	panicOnGet bool
}

func (f *fakeApp) ListTaxCodes(context.Context) ([]core.TaxCode, error) { return f.taxCodes, nil }

func (f *fakeApp) ListVendors(context.Context) ([]core.Vendor, error) { return nil, nil }

func (f *fakeApp) CreatePurchaseRequest(_ context.Context, in core.PurchaseRequestInput) (*core.PurchaseRequest, error) {
	f.createdPR = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &core.PurchaseRequest{ID: 1, ReqNo: "PR-2025-00001", Status: core.PRStatusPending}, nil
}

func (f *fakeApp) GetPurchaseRequest(_ context.Context, id int) (*core.PurchaseRequest, error) {
	if f.panicOnGet {
		panic("boom")
	}
	if id != 1 {
		return nil, fmt.Errorf("get purchase request %d: %w", id, core.ErrNotFound)
	}
	return &core.PurchaseRequest{ID: 1, ReqNo: "PR-2025-00001"}, nil
}

func (f *fakeApp) SetPurchaseRequestStatus(_ context.Context, id int, status core.PRStatus, by string) (*core.PurchaseRequest, error) {
	f.statusTo, f.statusBy = status, by
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &core.PurchaseRequest{ID: id, Status: status}, nil
}

func (f *fakeApp) DeletePurchaseOrder(context.Context, int) error { return f.deleteErr }

func (f *fakeApp) UpdatePurchaseOrder(_ context.Context, id int, _ core.PurchaseOrderInput, _ string) (*core.PurchaseOrder, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &core.PurchaseOrder{ID: id, Status: core.POStatusOpen}, nil
}

func (f *fakeApp) ConvertPurchaseRequests(_ context.Context, in core.ConversionInput) (*core.PurchaseOrder, error) {
	f.convertIn = in
	return &core.PurchaseOrder{ID: 9, PONo: "PO-2025-00001", Status: core.POStatusOpen}, nil
}

func (f *fakeApp) DraftRequestLines(context.Context, app.DraftLinesRequest) (*app.DraftLinesResult, error) {
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	return &app.DraftLinesResult{}, nil
}

func newTestHandler(svc app.ApplicationService, secret string) http.Handler {
	return NewHandler(svc, Options{
		AllowedOrigins: []string{"http://localhost:5173"},
		JWTSecret:      secret,
		Logger:         zerolog.Nop(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&fakeApp{}, ""), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCatalogListEncodesEmptyAsArray(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")

	rec := do(t, h, http.MethodGet, "/api/vendors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListTaxCodes(t *testing.T) {
	h := newTestHandler(&fakeApp{taxCodes: []core.TaxCode{
		{ID: 1, Code: "GST18", Name: "GST 18%", Rate: decimal.NewFromInt(18)},
	}}, "")

	rec := do(t, h, http.MethodGet, "/api/tax-codes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []core.TaxCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "GST18", got[0].Code)
	assert.True(t, got[0].Rate.Equal(decimal.NewFromInt(18)))
}

func TestCreatePurchaseRequest(t *testing.T) {
	svc := &fakeApp{}
	h := newTestHandler(svc, "")

	rec := do(t, h, http.MethodPost, "/api/purchase-requests",
		`{"emp_code":"E001","post_dt":"2025-05-10","doc_dt":"2025-05-10","created_by":"asha","rows":[{"line_no":1,"it_id":11,"req_qty":"5"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "E001", svc.createdPR.EmpCode)
	assert.Equal(t, "asha", svc.createdPR.CreatedBy)
	require.Len(t, svc.createdPR.Rows, 1)
	assert.True(t, svc.createdPR.Rows[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Contains(t, rec.Body.String(), `"req_no":"PR-2025-00001"`)
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &core.ValidationError{Violations: map[string]string{"rows": "min"}}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"no period", fmt.Errorf("resolve: %w", core.ErrNoOpenPostingPeriod), http.StatusBadRequest, "NO_OPEN_PERIOD"},
		{"reference", fmt.Errorf("employee E9: %w", core.ErrInvalidReference), http.StatusBadRequest, "INVALID_REFERENCE"},
		{"duplicate", core.ErrDuplicateItem, http.StatusBadRequest, "DUPLICATE_ITEM"},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeApp{createErr: tt.err}, "")
			rec := do(t, h, http.MethodPost, "/api/purchase-requests", `{"emp_code":"E001"}`)
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", resp.Error)
			}
		})
	}
}

func TestValidationErrorCarriesViolations(t *testing.T) {
	verr := &core.ValidationError{Violations: map[string]string{"rows[0].req_qty": "gt"}}
	h := newTestHandler(&fakeApp{createErr: verr}, "")

	rec := do(t, h, http.MethodPost, "/api/purchase-requests", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"rows[0].req_qty": "gt"}, decodeError(t, rec).Violations)
}

func TestGetPurchaseRequest(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")

	rec := do(t, h, http.MethodGet, "/api/purchase-requests/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/purchase-requests/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/purchase-requests/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetPurchaseRequestStatus(t *testing.T) {
	svc := &fakeApp{}
	h := newTestHandler(svc, "")

	rec := do(t, h, http.MethodPut, "/api/purchase-requests/1/status", `{"status":"Approved","updated_by":"lead"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.PRStatusApproved, svc.statusTo)
	assert.Equal(t, "lead", svc.statusBy)

	rec = do(t, h, http.MethodPut, "/api/purchase-requests/1/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.statusErr = fmt.Errorf("Approved -> Pending: %w", core.ErrInvalidTransition)
	rec = do(t, h, http.MethodPut, "/api/purchase-requests/1/status", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")
	rec := do(t, h, http.MethodGet, "/api/purchase-requests?status=Lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteClosedPurchaseOrder(t *testing.T) {
	h := newTestHandler(&fakeApp{deleteErr: fmt.Errorf("delete PO 3: %w", core.ErrClosedPurchaseOrder)}, "")

	rec := do(t, h, http.MethodDelete, "/api/purchase-orders/3", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete a closed purchase order", decodeError(t, rec).Error)

	h = newTestHandler(&fakeApp{}, "")
	rec = do(t, h, http.MethodDelete, "/api/purchase-orders/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateClosedPurchaseOrder(t *testing.T) {
	h := newTestHandler(&fakeApp{updateErr: fmt.Errorf("update purchase order 3: %w", core.ErrClosedPurchaseOrder)}, "")

	rec := do(t, h, http.MethodPut, "/api/purchase-orders/3", `{"bpcode":"V001"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "PO_CLOSED", resp.Code)
	assert.Equal(t, "Cannot edit a closed purchase order", resp.Error)
}

func TestConvertFromPurchaseRequests(t *testing.T) {
	svc := &fakeApp{}
	h := newTestHandler(svc, "")

	rec := do(t, h, http.MethodPost, "/api/purchase-orders/convert-from-pr",
		`{"req_ids":[4,5],"bpcode":"V001","post_dt":"2025-05-10","doc_dt":"2025-05-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int{4, 5}, svc.convertIn.RequestIDs)
	assert.Contains(t, rec.Body.String(), `"po_no":"PO-2025-00001"`)
}

func TestDraftLinesUnavailable(t *testing.T) {
	h := newTestHandler(&fakeApp{draftErr: app.ErrAssistantUnavailable}, "")

	rec := do(t, h, http.MethodPost, "/api/purchase-requests/draft-lines", `{"text":"bolts"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/purchase-requests/draft-lines", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")
	rec := do(t, h, http.MethodPost, "/api/purchase-requests", `{"emp_code":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestRequestBodyTooLarge(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")
	body := `{"remarks":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := do(t, h, http.MethodPost, "/api/purchase-requests", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRecovererReturns500(t *testing.T) {
	h := newTestHandler(&fakeApp{panicOnGet: true}, "")
	rec := do(t, h, http.MethodGet, "/api/purchase-requests/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id with spaces", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(&fakeApp{}, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/purchase-requests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/purchase-requests", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func signToken(t *testing.T, secret, username string, expiresIn time.Duration) string {
	t.Helper()
	claims := &jwtClaims{
		Username: username,
		Role:     "buyer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth(t *testing.T) {
	const secret = "test-secret"
	svc := &fakeApp{}
	h := newTestHandler(svc, secret)

	rec := do(t, h, http.MethodGet, "/api/tax-codes", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// health stays public
	rec = do(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tax-codes", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "asha", time.Hour))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tax-codes", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "asha", -time.Minute))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tax-codes", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: signToken(t, secret, "asha", time.Hour)})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatedUserBecomesActor(t *testing.T) {
	const secret = "test-secret"
	svc := &fakeApp{}
	h := newTestHandler(svc, secret)

	req := httptest.NewRequest(http.MethodPut, "/api/purchase-requests/1/status", strings.NewReader(`{"status":"Rejected"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "asha", time.Hour))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asha", svc.statusBy)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics("procurement", reg)
	h := NewHandler(&fakeApp{}, Options{Logger: zerolog.Nop(), Metrics: metrics, Gatherer: reg})

	do(t, h, http.MethodGet, "/api/health", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "procurement_http_requests_total")
}
