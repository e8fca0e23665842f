package app

import (
	"context"
	"time"

	"procurement-desk/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// GetCatalogs returns every catalog a purchasing form needs, in one call.
	GetCatalogs(ctx context.Context) (*CatalogResult, error)

	ListItems(ctx context.Context) ([]core.Item, error)
	ListTaxCodes(ctx context.Context) ([]core.TaxCode, error)
	ListWarehouses(ctx context.Context) ([]core.Warehouse, error)
	ListUOMs(ctx context.Context) ([]core.UOM, error)
	ListVendors(ctx context.Context) ([]core.Vendor, error)
	ListEmployees(ctx context.Context) ([]core.Employee, error)

	// GetCurrentPostingPeriod returns the open posting period covering date.
	GetCurrentPostingPeriod(ctx context.Context, date time.Time) (*core.PostingPeriod, error)

	CreatePurchaseRequest(ctx context.Context, in core.PurchaseRequestInput) (*core.PurchaseRequest, error)
	UpdatePurchaseRequest(ctx context.Context, reqID int, in core.PurchaseRequestInput, updatedBy string) (*core.PurchaseRequest, error)
	SetPurchaseRequestStatus(ctx context.Context, reqID int, status core.PRStatus, updatedBy string) (*core.PurchaseRequest, error)
	DeletePurchaseRequest(ctx context.Context, reqID int) error
	GetPurchaseRequest(ctx context.Context, reqID int) (*core.PurchaseRequest, error)
	ListPurchaseRequests(ctx context.Context, filter core.PurchaseRequestFilter) ([]core.PurchaseRequest, error)

	CreatePurchaseOrder(ctx context.Context, in core.PurchaseOrderInput) (*core.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, poID int, in core.PurchaseOrderInput, updatedBy string) (*core.PurchaseOrder, error)
	SetPurchaseOrderStatus(ctx context.Context, poID int, status core.POStatus, updatedBy string) (*core.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, poID int) error
	GetPurchaseOrder(ctx context.Context, poID int) (*core.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) ([]core.PurchaseOrder, error)

	// ConvertPurchaseRequests creates one purchase order from approved purchase requests.
	ConvertPurchaseRequests(ctx context.Context, in core.ConversionInput) (*core.PurchaseOrder, error)

	// DraftRequestLines asks the AI assistant for purchase request lines matching a
	// free-text requisition. Drafts are suggestions; nothing is saved.
	DraftRequestLines(ctx context.Context, req DraftLinesRequest) (*DraftLinesResult, error)
}
