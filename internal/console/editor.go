package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnsaved is returned by operations that need a persisted document.
var ErrUnsaved = errors.New("document has not been saved yet")

// Header holds the editable header fields of a purchase request or purchase order.
// Fields that do not apply to the form's kind are ignored when saving.
type Header struct {
	EmpCode    string
	EmpName    string
	DeptID     *int
	VendorCode string
	VendorName string
	PostDate   string
	DocDate    string
	Priority   core.Priority
	Remarks    string
}

// Editor is one open purchase request or purchase order form. It owns the
// header, the line set and the catalogs loaded when the form was opened.
// An Editor is not safe for concurrent use.
type Editor struct {
	client    *Client
	catalogs  *Catalogs
	kind      core.DocumentKind
	createdBy string
	log       zerolog.Logger

	id     int
	number string
	status string
	header Header
	lines  *core.LineSet
}

// NewEditor loads the catalogs and opens a blank form of the given kind with
// one empty line, dated today.
func NewEditor(ctx context.Context, client *Client, kind core.DocumentKind, createdBy string, log zerolog.Logger) (*Editor, error) {
	cat, err := LoadCatalogs(ctx, client)
	if err != nil {
		return nil, err
	}
	e := newEditor(client, cat, kind, createdBy, log)
	e.reset(time.Now().Format(core.DateLayout))
	return e, nil
}

// OpenPurchaseRequest loads the catalogs and an existing purchase request.
func OpenPurchaseRequest(ctx context.Context, client *Client, id int, createdBy string, log zerolog.Logger) (*Editor, error) {
	cat, err := LoadCatalogs(ctx, client)
	if err != nil {
		return nil, err
	}
	e := newEditor(client, cat, core.KindPurchaseRequest, createdBy, log)
	pr, err := client.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.loadPurchaseRequest(pr); err != nil {
		return nil, err
	}
	return e, nil
}

// OpenPurchaseOrder loads the catalogs and an existing purchase order.
func OpenPurchaseOrder(ctx context.Context, client *Client, id int, createdBy string, log zerolog.Logger) (*Editor, error) {
	cat, err := LoadCatalogs(ctx, client)
	if err != nil {
		return nil, err
	}
	e := newEditor(client, cat, core.KindPurchaseOrder, createdBy, log)
	po, err := client.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.loadPurchaseOrder(po); err != nil {
		return nil, err
	}
	return e, nil
}

func newEditor(client *Client, cat *Catalogs, kind core.DocumentKind, createdBy string, log zerolog.Logger) *Editor {
	return &Editor{
		client:    client,
		catalogs:  cat,
		kind:      kind,
		createdBy: createdBy,
		log:       log.With().Str("form", string(kind)).Logger(),
	}
}

func (e *Editor) reset(today string) {
	e.id, e.number, e.status = 0, "", ""
	e.header = Header{PostDate: today, DocDate: today}
	if e.kind == core.KindPurchaseRequest {
		e.header.Priority = core.PriorityMedium
	}
	e.lines = core.NewLineSet(e.kind, e.catalogs.TaxCodes)
	e.lines.Add(core.DefaultNeedDate(today))
}

func (e *Editor) Kind() core.DocumentKind { return e.kind }

// ID is the persisted document id, 0 for a new form.
func (e *Editor) ID() int { return e.id }

// Number is the persisted document number, such as PR-2025-00001.
func (e *Editor) Number() string { return e.number }

// Status is the persisted workflow status, empty for a new form.
func (e *Editor) Status() string { return e.status }

func (e *Editor) Catalogs() *Catalogs { return e.catalogs }

func (e *Editor) Header() Header { return e.header }

// SetHeader replaces the header. A changed document date resets every line's need date.
func (e *Editor) SetHeader(h Header) {
	docChanged := h.DocDate != e.header.DocDate
	e.header = h
	if docChanged {
		e.lines.ResetNeedDates(core.DefaultNeedDate(h.DocDate))
	}
}

// SetDocDate sets the document date and resets every line's need date to date + 30 days.
func (e *Editor) SetDocDate(date string) {
	h := e.header
	h.DocDate = date
	e.SetHeader(h)
}

// SetEmployee sets the requesting employee from the catalog.
func (e *Editor) SetEmployee(code string) error {
	emp, ok := e.catalogs.Employee(code)
	if !ok {
		return fmt.Errorf("employee %s: %w", code, core.ErrInvalidReference)
	}
	e.header.EmpCode, e.header.EmpName, e.header.DeptID = emp.Code, emp.Name, emp.DeptID
	return nil
}

// SetVendor sets the purchase order vendor from the catalog.
func (e *Editor) SetVendor(code string) error {
	v, ok := e.catalogs.Vendor(code)
	if !ok {
		return fmt.Errorf("vendor %s: %w", code, core.ErrInvalidReference)
	}
	e.header.VendorCode, e.header.VendorName = v.Code, v.Name
	return nil
}

func (e *Editor) Lines() []core.LineItem { return e.lines.Lines() }

func (e *Editor) RowIDs() []string { return e.lines.RowIDs() }

// Totals returns the live document totals, unrounded.
func (e *Editor) Totals() core.DocumentTotals { return e.lines.Totals() }

func (e *Editor) TotalQuantity() decimal.Decimal { return e.lines.TotalQuantity() }

// AddLine appends an empty line whose need date defaults to doc date + 30 days.
func (e *Editor) AddLine() string {
	return e.lines.Add(core.DefaultNeedDate(e.header.DocDate))
}

func (e *Editor) RemoveLine(rowID string) error { return e.lines.Remove(rowID) }

// ClearItem removes the item from a line, leaving the line empty.
func (e *Editor) ClearItem(rowID string) error { return e.lines.ClearItem(rowID) }

// ReloadCatalogs fetches the catalogs again and recomputes every line against
// the current tax codes.
func (e *Editor) ReloadCatalogs(ctx context.Context) error {
	cat, err := LoadCatalogs(ctx, e.client)
	if err != nil {
		return err
	}
	e.catalogs = cat
	e.lines.SetTaxCodes(cat.TaxCodes)
	return nil
}

// SelectItem puts a catalog item on a line. Selecting an item already on
// another line clears the line and returns core.ErrDuplicateItem.
func (e *Editor) SelectItem(rowID string, itemID int) error {
	item, ok := e.catalogs.Item(itemID)
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, core.ErrInvalidReference)
	}
	if err := e.lines.SelectItem(rowID, item); err != nil {
		e.log.Warn().Err(err).Int("it_id", itemID).Msg("item rejected")
		return err
	}
	return nil
}

// SetQuantity sets a line quantity from form input. Blank or non-numeric input counts as 0.
func (e *Editor) SetQuantity(rowID, raw string) error {
	return e.lines.SetQuantity(rowID, core.ParseAmount(raw))
}

// SetUnitPrice sets a line unit price from form input. Blank or non-numeric input counts as 0.
func (e *Editor) SetUnitPrice(rowID, raw string) error {
	return e.lines.SetUnitPrice(rowID, core.ParseAmount(raw))
}

// SetDiscountPercent sets a line discount from form input. Blank or non-numeric input counts as 0.
func (e *Editor) SetDiscountPercent(rowID, raw string) error {
	return e.lines.SetDiscountPercent(rowID, core.ParseAmount(raw))
}

// SetTaxCode sets a line tax code. Codes missing from the catalog resolve to 0%.
func (e *Editor) SetTaxCode(rowID, code string) error {
	return e.lines.SetTaxCode(rowID, strings.TrimSpace(code))
}

// SetWarehouse sets a line warehouse; 0 clears it.
func (e *Editor) SetWarehouse(rowID string, whsID int) error {
	return e.lines.SetWarehouse(rowID, optionalID(whsID))
}

// SetUOM sets a line unit of measure; 0 clears it.
func (e *Editor) SetUOM(rowID string, uomID int) error {
	return e.lines.SetUOM(rowID, optionalID(uomID))
}

func (e *Editor) SetNeedDate(rowID, date string) error {
	return e.lines.SetNeedDate(rowID, date)
}

// ApplyDraft fills lines from assistant drafts. Items already on the form are
// skipped; the first empty line is reused before new lines are appended, and a
// line appended for a skipped draft is removed again.
// It returns the number of lines added.
func (e *Editor) ApplyDraft(draft *app.DraftLinesResult) int {
	added := 0
	for _, d := range draft.Lines {
		rowID, appended := e.emptyRow(), false
		if rowID == "" {
			rowID, appended = e.AddLine(), true
		}
		err := e.SelectItem(rowID, d.ItemID)
		if err == nil {
			err = e.lines.SetQuantity(rowID, d.Quantity)
		}
		if err != nil {
			if appended {
				if rmErr := e.lines.Remove(rowID); rmErr != nil {
					e.log.Warn().Err(rmErr).Msg("drop draft line")
				}
			}
			continue
		}
		added++
	}
	return added
}

// DraftLines asks the assistant for lines matching text and applies them.
func (e *Editor) DraftLines(ctx context.Context, text string) (*app.DraftLinesResult, error) {
	res, err := e.client.DraftRequestLines(ctx, app.DraftLinesRequest{
		Text:            text,
		ExistingItemIDs: e.lines.ItemIDs(""),
	})
	if err != nil {
		return nil, err
	}
	e.ApplyDraft(res)
	return res, nil
}

func (e *Editor) emptyRow() string {
	for _, l := range e.lines.Lines() {
		if !l.HasItem() {
			return l.RowID
		}
	}
	return ""
}

// Validate checks the payload that Save would send.
func (e *Editor) Validate() error {
	if e.kind == core.KindPurchaseRequest {
		return e.PurchaseRequestInput().Validate()
	}
	return e.PurchaseOrderInput().Validate()
}

// PurchaseRequestInput builds the save payload. Lines without an item are left out
// and the remaining lines are numbered from 1.
func (e *Editor) PurchaseRequestInput() core.PurchaseRequestInput {
	in := core.PurchaseRequestInput{
		EmpCode:   e.header.EmpCode,
		EmpName:   e.header.EmpName,
		PostDate:  e.header.PostDate,
		DocDate:   e.header.DocDate,
		Priority:  e.header.Priority,
		Remarks:   e.header.Remarks,
		CreatedBy: e.createdBy,
	}
	for _, l := range e.selectedLines() {
		in.Rows = append(in.Rows, core.PurchaseRequestLineInput{
			LineNo:      len(in.Rows) + 1,
			ItemID:      l.ItemID,
			ItemDetails: l.ItemDetails,
			NeedDate:    l.NeedDate,
			Quantity:    l.Quantity,
		})
	}
	return in
}

// PurchaseOrderInput builds the save payload. Lines without an item are left out
// and the remaining lines are numbered from 1.
func (e *Editor) PurchaseOrderInput() core.PurchaseOrderInput {
	in := core.PurchaseOrderInput{
		VendorCode: e.header.VendorCode,
		VendorName: e.header.VendorName,
		EmpCode:    e.header.EmpCode,
		EmpName:    e.header.EmpName,
		DeptID:     e.header.DeptID,
		PostDate:   e.header.PostDate,
		DocDate:    e.header.DocDate,
		CreatedBy:  e.createdBy,
	}
	if e.status != "" {
		in.Status = core.POStatus(e.status)
	}
	for _, l := range e.selectedLines() {
		in.Rows = append(in.Rows, core.PurchaseOrderLineInput{
			LineNo:          len(in.Rows) + 1,
			ItemID:          l.ItemID,
			ItemDetails:     l.ItemDetails,
			UOMID:           l.UOMID,
			NeedDate:        l.NeedDate,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			TaxCode:         l.TaxCode,
			WarehouseID:     l.WarehouseID,
			PRReqID:         l.PRReqID,
			PRLineNo:        l.PRLineNo,
			PRNo:            l.PRNo,
		})
	}
	return in
}

func (e *Editor) selectedLines() []core.LineItem {
	all := e.lines.Lines()
	out := make([]core.LineItem, 0, len(all))
	for _, l := range all {
		if l.HasItem() {
			out = append(out, l)
		}
	}
	return out
}

// Save validates the form, then creates or updates the document and replaces
// the form state with what the server persisted. On failure the form is left
// untouched.
func (e *Editor) Save(ctx context.Context) error {
	if err := e.Validate(); err != nil {
		return err
	}

	switch e.kind {
	case core.KindPurchaseRequest:
		in := e.PurchaseRequestInput()
		var (
			pr  *core.PurchaseRequest
			err error
		)
		if e.id == 0 {
			pr, err = e.client.CreatePurchaseRequest(ctx, in)
		} else {
			pr, err = e.client.UpdatePurchaseRequest(ctx, e.id, in)
		}
		if err != nil {
			return err
		}
		e.log.Info().Str("req_no", pr.ReqNo).Int("req_id", pr.ID).Msg("purchase request saved")
		return e.loadPurchaseRequest(pr)
	default:
		in := e.PurchaseOrderInput()
		var (
			po  *core.PurchaseOrder
			err error
		)
		if e.id == 0 {
			po, err = e.client.CreatePurchaseOrder(ctx, in)
		} else {
			po, err = e.client.UpdatePurchaseOrder(ctx, e.id, in)
		}
		if err != nil {
			return err
		}
		e.log.Info().
			Str("po_no", po.PONo).
			Int("po_id", po.ID).
			Str("total_amt", po.TotalAmt.StringFixed(2)).
			Msg("purchase order saved")
		return e.loadPurchaseOrder(po)
	}
}

// RequestStatus asks the server for a status change and then re-fetches the
// document; the form reflects only what the server reports.
func (e *Editor) RequestStatus(ctx context.Context, status string) error {
	if e.id == 0 {
		return ErrUnsaved
	}
	in := core.StatusInput{Status: status, UpdatedBy: e.createdBy}
	if err := in.Validate(); err != nil {
		return err
	}

	if e.kind == core.KindPurchaseRequest {
		if err := e.client.SetPurchaseRequestStatus(ctx, e.id, in); err != nil {
			return err
		}
		pr, err := e.client.GetPurchaseRequest(ctx, e.id)
		if err != nil {
			return err
		}
		return e.loadPurchaseRequest(pr)
	}
	if err := e.client.SetPurchaseOrderStatus(ctx, e.id, in); err != nil {
		return err
	}
	po, err := e.client.GetPurchaseOrder(ctx, e.id)
	if err != nil {
		return err
	}
	return e.loadPurchaseOrder(po)
}

// Delete removes the persisted document and resets the form.
func (e *Editor) Delete(ctx context.Context) error {
	if e.id == 0 {
		return ErrUnsaved
	}
	var err error
	if e.kind == core.KindPurchaseRequest {
		err = e.client.DeletePurchaseRequest(ctx, e.id)
	} else {
		err = e.client.DeletePurchaseOrder(ctx, e.id)
	}
	if err != nil {
		return err
	}
	e.Discard()
	return nil
}

// Discard drops all in-memory state and leaves a blank form dated today.
func (e *Editor) Discard() {
	e.reset(time.Now().Format(core.DateLayout))
}

func (e *Editor) loadPurchaseRequest(pr *core.PurchaseRequest) error {
	items := make([]core.LineItem, 0, len(pr.Rows))
	for _, row := range pr.Rows {
		items = append(items, row.LineItem())
	}
	lines := core.NewLineSet(core.KindPurchaseRequest, e.catalogs.TaxCodes)
	if err := lines.Load(items); err != nil {
		return fmt.Errorf("load purchase request %s: %w", pr.ReqNo, err)
	}
	remarks := ""
	if pr.Remarks != nil {
		remarks = *pr.Remarks
	}
	e.id, e.number, e.status = pr.ID, pr.ReqNo, string(pr.Status)
	e.header = Header{
		EmpCode:  pr.EmpCode,
		EmpName:  pr.EmpName,
		DeptID:   pr.DeptID,
		PostDate: pr.PostDate,
		DocDate:  pr.DocDate,
		Priority: pr.Priority,
		Remarks:  remarks,
	}
	e.lines = lines
	return nil
}

func (e *Editor) loadPurchaseOrder(po *core.PurchaseOrder) error {
	items := make([]core.LineItem, 0, len(po.Rows))
	for _, row := range po.Rows {
		items = append(items, row.LineItem())
	}
	lines := core.NewLineSet(core.KindPurchaseOrder, e.catalogs.TaxCodes)
	if err := lines.Load(items); err != nil {
		return fmt.Errorf("load purchase order %s: %w", po.PONo, err)
	}
	e.id, e.number, e.status = po.ID, po.PONo, string(po.Status)
	e.header = Header{
		VendorCode: po.VendorCode,
		VendorName: po.VendorName,
		DeptID:     po.DeptID,
		PostDate:   po.PostDate,
		DocDate:    po.DocDate,
	}
	if po.EmpCode != nil {
		e.header.EmpCode = *po.EmpCode
	}
	if po.EmpName != nil {
		e.header.EmpName = *po.EmpName
	}
	e.lines = lines
	return nil
}

func optionalID(id int) *int {
	if id <= 0 {
		return nil
	}
	return &id
}
