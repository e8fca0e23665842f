package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder represents a purchase order header with its lines.
type PurchaseOrder struct {
	ID           int                 `json:"po_id"`
	PONo         string              `json:"po_no"`
	PostPeriodID int                 `json:"post_per"`
	PostDate     string              `json:"post_dt"` // YYYY-MM-DD
	DocDate      string              `json:"doc_dt"`  // YYYY-MM-DD
	VendorCode   string              `json:"bpcode"`
	VendorName   string              `json:"bpname"`
	EmpCode      *string             `json:"emp_code,omitempty"`
	EmpName      *string             `json:"emp_name,omitempty"`
	DeptID       *int                `json:"dept_id,omitempty"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	DiscountAmt  decimal.Decimal     `json:"discount_amt"`
	TaxAmt       decimal.Decimal     `json:"tax_amt"`
	TotalAmt     decimal.Decimal     `json:"total_amt"`
	Status       POStatus            `json:"po_status"`
	CreatedBy    string              `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedBy    *string             `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time          `json:"updated_at,omitempty"`
	Rows         []PurchaseOrderLine `json:"rows"`
}

// PurchaseOrderLine is a stored purchase order row. Derived amounts are
// recomputed server-side before they are stored.
type PurchaseOrderLine struct {
	LineNo          int             `json:"line_no"`
	ItemID          int             `json:"it_id"`
	ItemCode        string          `json:"it_code"`
	ItemName        string          `json:"it_name"`
	ItemDetails     string          `json:"it_details"`
	HSNCode         string          `json:"hsn_code"`
	UOMID           *int            `json:"uom_id,omitempty"`
	Quantity        decimal.Decimal `json:"req_qty"`
	NeedDate        *string         `json:"need_date,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmt     decimal.Decimal `json:"discount_amt"`
	TaxCode         *string         `json:"tax_code,omitempty"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmt          decimal.Decimal `json:"tax_amt"`
	LineTotal       decimal.Decimal `json:"line_total"`
	WarehouseID     *int            `json:"whs_id,omitempty"`
	PRReqID         *int            `json:"pr_req_id,omitempty"`
	PRLineNo        *int            `json:"pr_line_no,omitempty"`
	PRNo            *string         `json:"pr_no,omitempty"`
}

// LineItem converts the stored row into an editable form line.
func (l PurchaseOrderLine) LineItem() LineItem {
	li := LineItem{
		LineNo:          l.LineNo,
		ItemID:          l.ItemID,
		ItemCode:        l.ItemCode,
		ItemName:        l.ItemName,
		HSNCode:         l.HSNCode,
		ItemDetails:     l.ItemDetails,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxRate:         l.TaxRate,
		WarehouseID:     l.WarehouseID,
		UOMID:           l.UOMID,
		PRReqID:         l.PRReqID,
		PRLineNo:        l.PRLineNo,
		PRNo:            l.PRNo,
	}
	if l.NeedDate != nil {
		li.NeedDate = *l.NeedDate
	}
	if l.TaxCode != nil {
		li.TaxCode = *l.TaxCode
	}
	return li
}

// PurchaseOrderFilter narrows ListPOs. Zero values match everything.
type PurchaseOrderFilter struct {
	Status     POStatus
	VendorCode string
}

// PurchaseOrderService provides purchase order lifecycle operations.
type PurchaseOrderService interface {
	// CreatePO validates the payload, recomputes every line and the document
	// totals, assigns a gapless PO number and stores the order as Open.
	CreatePO(ctx context.Context, in PurchaseOrderInput) (*PurchaseOrder, error)

	// UpdatePO replaces header fields and rows of an existing order.
	// Closed orders cannot be edited.
	UpdatePO(ctx context.Context, poID int, in PurchaseOrderInput, updatedBy string) (*PurchaseOrder, error)

	// SetPOStatus toggles an order between Open and Closed.
	// Setting the current status again is a no-op.
	SetPOStatus(ctx context.Context, poID int, status POStatus, updatedBy string) (*PurchaseOrder, error)

	// DeletePO removes an order and its rows. Closed orders are refused with ErrClosedPurchaseOrder.
	DeletePO(ctx context.Context, poID int) error

	// ConvertFromPRs creates one Open purchase order from approved purchase requests
	// and marks those requests Converted to PO, in a single transaction.
	ConvertFromPRs(ctx context.Context, in ConversionInput) (*PurchaseOrder, error)

	// GetPO returns a purchase order including all rows.
	GetPO(ctx context.Context, poID int) (*PurchaseOrder, error)

	// ListPOs returns order headers, newest first.
	ListPOs(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error)
}
