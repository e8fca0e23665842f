package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"procurement-desk/internal/app"
	"procurement-desk/internal/obs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options configures the HTTP handler.
type Options struct {
	AllowedOrigins []string
	// JWTSecret enables authentication on /api routes when non-empty.
	JWTSecret string
	Logger    zerolog.Logger
	Metrics   *obs.Metrics
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	log       zerolog.Logger
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{
		svc:       svc,
		log:       opts.Logger,
		jwtSecret: opts.JWTSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(obs.RequestLogger{Logger: opts.Logger, RequestID: func(r *http.Request) string {
		return requestIDFromContext(r.Context())
	}}.Middleware)
	r.Use(Recoverer(opts.Logger))
	r.Use(opts.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// ── Health and metrics (public) ───────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if h.jwtSecret != "" {
			r.Use(h.RequireAuth)
		}
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Catalogs ──────────────────────────────────────────────────────────
		r.Get("/api/catalogs", h.apiCatalogs)
		r.Get("/api/items", listHandler(h, svc.ListItems))
		r.Get("/api/tax-codes", listHandler(h, svc.ListTaxCodes))
		r.Get("/api/warehouses", listHandler(h, svc.ListWarehouses))
		r.Get("/api/uoms", listHandler(h, svc.ListUOMs))
		r.Get("/api/vendors", listHandler(h, svc.ListVendors))
		r.Get("/api/employees", listHandler(h, svc.ListEmployees))
		r.Get("/api/current-posting-period", h.apiCurrentPostingPeriod)

		// ── Purchase requests ─────────────────────────────────────────────────
		r.Route("/api/purchase-requests", func(r chi.Router) {
			r.Get("/", h.apiListPurchaseRequests)
			r.Post("/", h.apiCreatePurchaseRequest)
			r.Post("/draft-lines", h.apiDraftRequestLines)
			r.Get("/{id}", h.apiGetPurchaseRequest)
			r.Put("/{id}", h.apiUpdatePurchaseRequest)
			r.Delete("/{id}", h.apiDeletePurchaseRequest)
			r.Put("/{id}/status", h.apiSetPurchaseRequestStatus)
		})

		// ── Purchase orders ───────────────────────────────────────────────────
		r.Route("/api/purchase-orders", func(r chi.Router) {
			r.Get("/", h.apiListPurchaseOrders)
			r.Post("/", h.apiCreatePurchaseOrder)
			r.Post("/convert-from-pr", h.apiConvertPurchaseRequests)
			r.Get("/{id}", h.apiGetPurchaseOrder)
			r.Put("/{id}", h.apiUpdatePurchaseOrder)
			r.Delete("/{id}", h.apiDeletePurchaseOrder)
			r.Put("/{id}/status", h.apiSetPurchaseOrderStatus)
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// pathID extracts the numeric {id} URL parameter, writing a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
