package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// PurchaseRequestInput is the create/update payload of a purchase request.
type PurchaseRequestInput struct {
	EmpCode   string                     `json:"emp_code" validate:"required"`
	EmpName   string                     `json:"emp_name,omitempty"`
	PostDate  string                     `json:"post_dt" validate:"required,datetime=2006-01-02"`
	DocDate   string                     `json:"doc_dt" validate:"required,datetime=2006-01-02"`
	Priority  Priority                   `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High Urgent"`
	Remarks   string                     `json:"remarks,omitempty"`
	CreatedBy string                     `json:"created_by,omitempty"`
	Rows      []PurchaseRequestLineInput `json:"rows" validate:"required,min=1,dive"`
}

type PurchaseRequestLineInput struct {
	LineNo      int             `json:"line_no" validate:"gt=0"`
	ItemID      int             `json:"it_id" validate:"required"`
	ItemDetails string          `json:"it_details,omitempty"`
	NeedDate    string          `json:"need_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity    decimal.Decimal `json:"req_qty"`
}

// PurchaseOrderInput is the create/update payload of a purchase order.
type PurchaseOrderInput struct {
	VendorCode string                   `json:"bpcode" validate:"required"`
	VendorName string                   `json:"bpname,omitempty"`
	EmpCode    string                   `json:"emp_code,omitempty"`
	EmpName    string                   `json:"emp_name,omitempty"`
	DeptID     *int                     `json:"dept_id,omitempty"`
	PostDate   string                   `json:"post_dt" validate:"required,datetime=2006-01-02"`
	DocDate    string                   `json:"doc_dt" validate:"required,datetime=2006-01-02"`
	Status     POStatus                 `json:"po_status,omitempty" validate:"omitempty,oneof=Open Closed"`
	CreatedBy  string                   `json:"created_by,omitempty"`
	Rows       []PurchaseOrderLineInput `json:"rows" validate:"required,min=1,dive"`
}

type PurchaseOrderLineInput struct {
	LineNo          int             `json:"line_no" validate:"gt=0"`
	ItemID          int             `json:"it_id" validate:"required"`
	ItemDetails     string          `json:"it_details,omitempty"`
	UOMID           *int            `json:"uom_id,omitempty"`
	NeedDate        string          `json:"need_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity        decimal.Decimal `json:"req_qty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxCode         string          `json:"tax_code,omitempty"`
	WarehouseID     *int            `json:"whs_id,omitempty"`
	PRReqID         *int            `json:"pr_req_id,omitempty"`
	PRLineNo        *int            `json:"pr_line_no,omitempty"`
	PRNo            *string         `json:"pr_no,omitempty"`
}

// ConversionInput turns one or more approved purchase requests into a purchase order.
type ConversionInput struct {
	RequestIDs []int  `json:"req_ids" validate:"required,min=1,dive,gt=0"`
	VendorCode string `json:"bpcode" validate:"required"`
	VendorName string `json:"bpname,omitempty"`
	PostDate   string `json:"post_dt" validate:"required,datetime=2006-01-02"`
	DocDate    string `json:"doc_dt" validate:"required,datetime=2006-01-02"`
	CreatedBy  string `json:"created_by,omitempty"`
}

// StatusInput is the body of a status update.
type StatusInput struct {
	Status    string `json:"status" validate:"required"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// Validate checks required fields, quantities, line numbering and item uniqueness.
func (in PurchaseRequestInput) Validate() error {
	verr := structViolations(in)
	lines := make([]lineRef, len(in.Rows))
	for i, r := range in.Rows {
		lines[i] = lineRef{lineNo: r.LineNo, itemID: r.ItemID, qty: r.Quantity}
	}
	checkLines(verr, lines)
	if verr.empty() {
		return nil
	}
	return verr
}

func (in PurchaseOrderInput) Validate() error {
	verr := structViolations(in)
	lines := make([]lineRef, len(in.Rows))
	for i, r := range in.Rows {
		lines[i] = lineRef{lineNo: r.LineNo, itemID: r.ItemID, qty: r.Quantity}
	}
	checkLines(verr, lines)
	if verr.empty() {
		return nil
	}
	return verr
}

func (in ConversionInput) Validate() error {
	verr := structViolations(in)
	seen := make(map[int]bool, len(in.RequestIDs))
	for i, id := range in.RequestIDs {
		if seen[id] {
			verr.add(fmt.Sprintf("req_ids[%d]", i), "duplicate")
		}
		seen[id] = true
	}
	if verr.empty() {
		return nil
	}
	return verr
}

func (in StatusInput) Validate() error {
	verr := structViolations(in)
	if verr.empty() {
		return nil
	}
	return verr
}

type lineRef struct {
	lineNo int
	itemID int
	qty    decimal.Decimal
}

// checkLines enforces positive quantities, line numbers sequential from 1 and
// no item appearing on two lines.
func checkLines(verr *ValidationError, lines []lineRef) {
	seenItems := make(map[int]bool, len(lines))
	for i, l := range lines {
		if !l.qty.IsPositive() {
			verr.add(fmt.Sprintf("rows[%d].req_qty", i), "gt")
		}
		if l.lineNo != i+1 {
			verr.add(fmt.Sprintf("rows[%d].line_no", i), "sequence")
		}
		if l.itemID != 0 {
			if seenItems[l.itemID] {
				verr.add(fmt.Sprintf("rows[%d].it_id", i), "duplicate")
			}
			seenItems[l.itemID] = true
		}
	}
}

func structViolations(v any) *ValidationError {
	verr := &ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add("_", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		verr.add(field, fe.Tag())
	}
	return verr
}
