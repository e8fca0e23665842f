package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"
)

type errorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	RequestID  string            `json:"request_id,omitempty"`
	Violations map[string]string `json:"violations,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus writes a JSON response with the given status.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors onto HTTP responses.
// Unrecognised errors are logged and reported as 500 without leaking their text.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error:      verr.Error(),
			Code:       "VALIDATION_FAILED",
			RequestID:  requestIDFromContext(r.Context()),
			Violations: verr.Violations,
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.Is(err, core.ErrClosedPurchaseOrder):
		msg := "Cannot edit a closed purchase order"
		if r.Method == http.MethodDelete {
			msg = "Cannot delete a closed purchase order"
		}
		writeError(w, r, msg, "PO_CLOSED", http.StatusBadRequest)
	case errors.Is(err, core.ErrNoOpenPostingPeriod):
		writeError(w, r, err.Error(), "NO_OPEN_PERIOD", http.StatusBadRequest)
	case errors.Is(err, core.ErrDuplicateItem):
		writeError(w, r, err.Error(), "DUPLICATE_ITEM", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidReference):
		writeError(w, r, err.Error(), "INVALID_REFERENCE", http.StatusBadRequest)
	case errors.Is(err, app.ErrAssistantUnavailable):
		writeError(w, r, err.Error(), "ASSISTANT_UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		h.logError(r, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

func (h *Handler) logError(r *http.Request, err error) {
	h.log.Error().
		Err(err).
		Str("request_id", requestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
}
