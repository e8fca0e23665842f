package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ValidDays is how long a purchase request stays valid after its posting date.
const ValidDays = 30

// PurchaseRequest represents a purchase request header with its lines.
type PurchaseRequest struct {
	ID           int                   `json:"req_id"`
	ReqNo        string                `json:"req_no"`
	PostPeriodID int                   `json:"post_per"`
	EmpCode      string                `json:"emp_code"`
	EmpName      string                `json:"emp_name"`
	DeptID       *int                  `json:"emp_dept,omitempty"`
	PostDate     string                `json:"post_dt"`
	ValidDate    string                `json:"valid_dt"`
	DocDate      string                `json:"doc_dt"`
	Priority     Priority              `json:"priority"`
	Status       PRStatus              `json:"req_status"`
	Remarks      *string               `json:"remarks,omitempty"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedBy    *string               `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time            `json:"updated_at,omitempty"`
	ItemCount    int                   `json:"item_count"`
	TotalQty     decimal.Decimal       `json:"total_qty"`
	Rows         []PurchaseRequestLine `json:"rows,omitempty"`
}

// PurchaseRequestLine is a stored purchase request row.
type PurchaseRequestLine struct {
	LineNo       int             `json:"line_no"`
	ItemID       int             `json:"it_id"`
	ItemCode     string          `json:"it_code"`
	ItemName     string          `json:"it_name"`
	ItemDetails  string          `json:"it_details"`
	HSNCode      string          `json:"it_hsn"`
	NeedDate     *string         `json:"need_date,omitempty"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Quantity     decimal.Decimal `json:"req_qty"`
}

// LineItem converts the stored row into an editable form line.
func (l PurchaseRequestLine) LineItem() LineItem {
	li := LineItem{
		LineNo:       l.LineNo,
		ItemID:       l.ItemID,
		ItemCode:     l.ItemCode,
		ItemName:     l.ItemName,
		HSNCode:      l.HSNCode,
		ItemDetails:  l.ItemDetails,
		Quantity:     l.Quantity,
		CurrentStock: l.CurrentStock,
	}
	if l.NeedDate != nil {
		li.NeedDate = *l.NeedDate
	}
	return li
}

// PurchaseRequestFilter narrows ListPRs. Zero values match everything.
type PurchaseRequestFilter struct {
	Status  PRStatus
	EmpCode string
}

// PurchaseRequestService provides purchase request lifecycle operations.
type PurchaseRequestService interface {
	// CreatePR validates the payload, snapshots item details and current stock,
	// assigns a gapless request number and stores the request as Pending.
	CreatePR(ctx context.Context, in PurchaseRequestInput) (*PurchaseRequest, error)

	// UpdatePR replaces header fields and rows of a Pending request.
	UpdatePR(ctx context.Context, reqID int, in PurchaseRequestInput, updatedBy string) (*PurchaseRequest, error)

	// SetPRStatus moves a request along its workflow. Only Pending→Approved and
	// Pending→Rejected are accepted here; conversion is done by ConvertFromPRs.
	// Setting the current status again is a no-op.
	SetPRStatus(ctx context.Context, reqID int, status PRStatus, updatedBy string) (*PurchaseRequest, error)

	// DeletePR removes a request that has not been converted.
	DeletePR(ctx context.Context, reqID int) error

	// GetPR returns a purchase request including all rows.
	GetPR(ctx context.Context, reqID int) (*PurchaseRequest, error)

	// ListPRs returns request headers with item count and total quantity, newest first.
	ListPRs(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequest, error)
}
