package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"
)

// ── Catalogs ──────────────────────────────────────────────────────────────────

// apiCatalogs handles GET /api/catalogs.
func (h *Handler) apiCatalogs(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetCatalogs(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listHandler adapts a catalog lister to an HTTP handler. Empty results encode as [].
func listHandler[T any](h *Handler, list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := list(r.Context())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		writeJSON(w, rows)
	}
}

// apiCurrentPostingPeriod handles GET /api/current-posting-period?date=YYYY-MM-DD.
// The date defaults to today.
func (h *Handler) apiCurrentPostingPeriod(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse(core.DateLayout, raw)
		if err != nil {
			writeError(w, r, "date must be YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	period, err := h.svc.GetCurrentPostingPeriod(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, period)
}

// ── Purchase requests ─────────────────────────────────────────────────────────

// apiListPurchaseRequests handles GET /api/purchase-requests?status=&emp_code=.
func (h *Handler) apiListPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.PurchaseRequestFilter{
		Status:  core.PRStatus(q.Get("status")),
		EmpCode: q.Get("emp_code"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, "unknown status: "+string(filter.Status), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	prs, err := h.svc.ListPurchaseRequests(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if prs == nil {
		prs = []core.PurchaseRequest{}
	}
	writeJSON(w, prs)
}

// apiCreatePurchaseRequest handles POST /api/purchase-requests.
func (h *Handler) apiCreatePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var in core.PurchaseRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.CreatedBy = actor(r, in.CreatedBy)
	pr, err := h.svc.CreatePurchaseRequest(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, pr)
}

// apiGetPurchaseRequest handles GET /api/purchase-requests/{id}.
func (h *Handler) apiGetPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pr, err := h.svc.GetPurchaseRequest(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

// apiUpdatePurchaseRequest handles PUT /api/purchase-requests/{id}.
// The rows in the body replace the stored rows.
func (h *Handler) apiUpdatePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in core.PurchaseRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	pr, err := h.svc.UpdatePurchaseRequest(r.Context(), id, in, actor(r, in.CreatedBy))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

// apiDeletePurchaseRequest handles DELETE /api/purchase-requests/{id}.
func (h *Handler) apiDeletePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePurchaseRequest(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiSetPurchaseRequestStatus handles PUT /api/purchase-requests/{id}/status.
func (h *Handler) apiSetPurchaseRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in core.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	pr, err := h.svc.SetPurchaseRequestStatus(r.Context(), id, core.PRStatus(in.Status), actor(r, in.UpdatedBy))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, pr)
}

// apiDraftRequestLines handles POST /api/purchase-requests/draft-lines.
func (h *Handler) apiDraftRequestLines(w http.ResponseWriter, r *http.Request) {
	var req app.DraftLinesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, "text is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.DraftRequestLines(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Purchase orders ───────────────────────────────────────────────────────────

// apiListPurchaseOrders handles GET /api/purchase-orders?status=&bpcode=.
func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.PurchaseOrderFilter{
		Status:     core.POStatus(q.Get("status")),
		VendorCode: q.Get("bpcode"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, "unknown status: "+string(filter.Status), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	pos, err := h.svc.ListPurchaseOrders(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if pos == nil {
		pos = []core.PurchaseOrder{}
	}
	writeJSON(w, pos)
}

// apiCreatePurchaseOrder handles POST /api/purchase-orders.
func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var in core.PurchaseOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.CreatedBy = actor(r, in.CreatedBy)
	po, err := h.svc.CreatePurchaseOrder(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, po)
}

// apiGetPurchaseOrder handles GET /api/purchase-orders/{id}.
func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiUpdatePurchaseOrder handles PUT /api/purchase-orders/{id}.
func (h *Handler) apiUpdatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in core.PurchaseOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	po, err := h.svc.UpdatePurchaseOrder(r.Context(), id, in, actor(r, in.CreatedBy))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiDeletePurchaseOrder handles DELETE /api/purchase-orders/{id}.
func (h *Handler) apiDeletePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePurchaseOrder(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiSetPurchaseOrderStatus handles PUT /api/purchase-orders/{id}/status.
func (h *Handler) apiSetPurchaseOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in core.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	po, err := h.svc.SetPurchaseOrderStatus(r.Context(), id, core.POStatus(in.Status), actor(r, in.UpdatedBy))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiConvertPurchaseRequests handles POST /api/purchase-orders/convert-from-pr.
func (h *Handler) apiConvertPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	var in core.ConversionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.CreatedBy = actor(r, in.CreatedBy)
	po, err := h.svc.ConvertPurchaseRequests(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, po)
}
