package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement-desk/internal/ai"
	"procurement-desk/internal/core"
	"procurement-desk/internal/obs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrAssistantUnavailable is returned by DraftRequestLines when no AI drafter is configured.
var ErrAssistantUnavailable = errors.New("line drafting assistant is not configured")

type appService struct {
	catalog  core.CatalogService
	requests core.PurchaseRequestService
	orders   core.PurchaseOrderService
	drafter  ai.LineDrafter
	metrics  *obs.Metrics
	log      zerolog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// drafter and metrics may be nil.
func NewAppService(
	catalog core.CatalogService,
	requests core.PurchaseRequestService,
	orders core.PurchaseOrderService,
	drafter ai.LineDrafter,
	metrics *obs.Metrics,
	log zerolog.Logger,
) ApplicationService {
	return &appService{
		catalog:  catalog,
		requests: requests,
		orders:   orders,
		drafter:  drafter,
		metrics:  metrics,
		log:      log,
	}
}

// NewFromPool wires the PostgreSQL-backed services around pool.
func NewFromPool(pool *pgxpool.Pool, drafter ai.LineDrafter, metrics *obs.Metrics, log zerolog.Logger) ApplicationService {
	docs := core.NewDocumentService(pool)
	return NewAppService(
		core.NewCatalogService(pool),
		core.NewPurchaseRequestService(pool, docs),
		core.NewPurchaseOrderService(pool, docs),
		drafter,
		metrics,
		log,
	)
}

func (s *appService) GetCatalogs(ctx context.Context) (*CatalogResult, error) {
	var res CatalogResult
	var err error
	if res.Items, err = s.catalog.GetItems(ctx); err != nil {
		return nil, err
	}
	if res.TaxCodes, err = s.catalog.GetTaxCodes(ctx); err != nil {
		return nil, err
	}
	if res.Warehouses, err = s.catalog.GetWarehouses(ctx); err != nil {
		return nil, err
	}
	if res.UOMs, err = s.catalog.GetUOMs(ctx); err != nil {
		return nil, err
	}
	if res.Vendors, err = s.catalog.GetVendors(ctx); err != nil {
		return nil, err
	}
	if res.Employees, err = s.catalog.GetEmployees(ctx); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *appService) ListItems(ctx context.Context) ([]core.Item, error) {
	return s.catalog.GetItems(ctx)
}

func (s *appService) ListTaxCodes(ctx context.Context) ([]core.TaxCode, error) {
	return s.catalog.GetTaxCodes(ctx)
}

func (s *appService) ListWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	return s.catalog.GetWarehouses(ctx)
}

func (s *appService) ListUOMs(ctx context.Context) ([]core.UOM, error) {
	return s.catalog.GetUOMs(ctx)
}

func (s *appService) ListVendors(ctx context.Context) ([]core.Vendor, error) {
	return s.catalog.GetVendors(ctx)
}

func (s *appService) ListEmployees(ctx context.Context) ([]core.Employee, error) {
	return s.catalog.GetEmployees(ctx)
}

func (s *appService) GetCurrentPostingPeriod(ctx context.Context, date time.Time) (*core.PostingPeriod, error) {
	return s.catalog.GetCurrentPostingPeriod(ctx, date)
}

// observe records the outcome of a document operation in metrics and logs.
func (s *appService) observe(kind, op string, id int, err error) {
	s.metrics.ObserveDocument(kind, op, err)
	evt := s.log.Info()
	if err != nil {
		evt = s.log.Warn().Err(err)
	}
	evt.Str("kind", kind).Str("operation", op).Int("id", id).Msg("document operation")
}

func (s *appService) CreatePurchaseRequest(ctx context.Context, in core.PurchaseRequestInput) (*core.PurchaseRequest, error) {
	pr, err := s.requests.CreatePR(ctx, in)
	s.observe(core.DocTypePurchaseRequest, "create", prID(pr), err)
	return pr, err
}

func (s *appService) UpdatePurchaseRequest(ctx context.Context, reqID int, in core.PurchaseRequestInput, updatedBy string) (*core.PurchaseRequest, error) {
	pr, err := s.requests.UpdatePR(ctx, reqID, in, updatedBy)
	s.observe(core.DocTypePurchaseRequest, "update", reqID, err)
	return pr, err
}

func (s *appService) SetPurchaseRequestStatus(ctx context.Context, reqID int, status core.PRStatus, updatedBy string) (*core.PurchaseRequest, error) {
	pr, err := s.requests.SetPRStatus(ctx, reqID, status, updatedBy)
	s.observe(core.DocTypePurchaseRequest, "status", reqID, err)
	return pr, err
}

func (s *appService) DeletePurchaseRequest(ctx context.Context, reqID int) error {
	err := s.requests.DeletePR(ctx, reqID)
	s.observe(core.DocTypePurchaseRequest, "delete", reqID, err)
	return err
}

func (s *appService) GetPurchaseRequest(ctx context.Context, reqID int) (*core.PurchaseRequest, error) {
	return s.requests.GetPR(ctx, reqID)
}

func (s *appService) ListPurchaseRequests(ctx context.Context, filter core.PurchaseRequestFilter) ([]core.PurchaseRequest, error) {
	return s.requests.ListPRs(ctx, filter)
}

func (s *appService) CreatePurchaseOrder(ctx context.Context, in core.PurchaseOrderInput) (*core.PurchaseOrder, error) {
	po, err := s.orders.CreatePO(ctx, in)
	s.observe(core.DocTypePurchaseOrder, "create", poID(po), err)
	s.observeValue(po)
	return po, err
}

func (s *appService) UpdatePurchaseOrder(ctx context.Context, poID int, in core.PurchaseOrderInput, updatedBy string) (*core.PurchaseOrder, error) {
	po, err := s.orders.UpdatePO(ctx, poID, in, updatedBy)
	s.observe(core.DocTypePurchaseOrder, "update", poID, err)
	s.observeValue(po)
	return po, err
}

func (s *appService) SetPurchaseOrderStatus(ctx context.Context, poID int, status core.POStatus, updatedBy string) (*core.PurchaseOrder, error) {
	po, err := s.orders.SetPOStatus(ctx, poID, status, updatedBy)
	s.observe(core.DocTypePurchaseOrder, "status", poID, err)
	return po, err
}

func (s *appService) DeletePurchaseOrder(ctx context.Context, poID int) error {
	err := s.orders.DeletePO(ctx, poID)
	s.observe(core.DocTypePurchaseOrder, "delete", poID, err)
	return err
}

func (s *appService) GetPurchaseOrder(ctx context.Context, poID int) (*core.PurchaseOrder, error) {
	return s.orders.GetPO(ctx, poID)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	return s.orders.ListPOs(ctx, filter)
}

func (s *appService) ConvertPurchaseRequests(ctx context.Context, in core.ConversionInput) (*core.PurchaseOrder, error) {
	po, err := s.orders.ConvertFromPRs(ctx, in)
	s.observe(core.DocTypePurchaseOrder, "convert", poID(po), err)
	return po, err
}

func (s *appService) DraftRequestLines(ctx context.Context, req DraftLinesRequest) (*DraftLinesResult, error) {
	if s.drafter == nil {
		return nil, ErrAssistantUnavailable
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &core.ValidationError{Violations: map[string]string{"text": "required"}}
	}

	items, err := s.catalog.GetItems(ctx)
	if err != nil {
		return nil, err
	}
	draft, err := s.drafter.DraftLines(ctx, text, items)
	if err != nil {
		return nil, fmt.Errorf("draft lines: %w", err)
	}

	res := ai.Resolve(draft, items, req.ExistingItemIDs)
	out := &DraftLinesResult{
		Lines:         make([]DraftedLine, 0, len(res.Lines)),
		Skipped:       res.Skipped,
		Clarification: res.Clarification,
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, DraftedLine{
			ItemID:   l.Item.ID,
			ItemCode: l.Item.Code,
			ItemName: l.Item.Name,
			Quantity: l.Quantity,
			Details:  l.Details,
		})
	}
	s.log.Info().Int("drafted", len(out.Lines)).Int("skipped", len(out.Skipped)).Msg("request lines drafted")
	return out, nil
}

func (s *appService) observeValue(po *core.PurchaseOrder) {
	if s.metrics == nil || po == nil {
		return
	}
	s.metrics.DocumentValue.Observe(po.TotalAmt.InexactFloat64())
}

func prID(pr *core.PurchaseRequest) int {
	if pr == nil {
		return 0
	}
	return pr.ID
}

func poID(po *core.PurchaseOrder) int {
	if po == nil {
		return 0
	}
	return po.ID
}
