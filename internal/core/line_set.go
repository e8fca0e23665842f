package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes purchase request lines from purchase order lines.
type DocumentKind string

const (
	KindPurchaseRequest DocumentKind = "PR"
	KindPurchaseOrder   DocumentKind = "PO"
)

// DateLayout is the wire format of every document date.
const DateLayout = "2006-01-02"

// NeedDateLeadDays is how far after the document date a line's need date defaults to.
const NeedDateLeadDays = 30

// DefaultNeedDate returns docDate + NeedDateLeadDays, or "" when docDate is not a valid date.
func DefaultNeedDate(docDate string) string {
	d, err := time.Parse(DateLayout, docDate)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, NeedDateLeadDays).Format(DateLayout)
}

// LineItem is one row of a purchase request or purchase order form.
type LineItem struct {
	RowID           string          `json:"row_id"`
	LineNo          int             `json:"line_no"`
	ItemID          int             `json:"it_id"`
	ItemCode        string          `json:"it_code"`
	ItemName        string          `json:"it_name"`
	HSNCode         string          `json:"hsn_code"`
	ItemDetails     string          `json:"it_details"`
	Quantity        decimal.Decimal `json:"req_qty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxCode         string          `json:"tax_code"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	NeedDate        string          `json:"need_date"`
	WarehouseID     *int            `json:"whs_id,omitempty"`
	UOMID           *int            `json:"uom_id,omitempty"`
	CurrentStock    decimal.Decimal `json:"current_stock"`
	PRReqID         *int            `json:"pr_req_id,omitempty"`
	PRLineNo        *int            `json:"pr_line_no,omitempty"`
	PRNo            *string         `json:"pr_no,omitempty"`
	Amounts         LineAmounts     `json:"amounts"`
}

// HasItem reports whether an item has been selected on the line.
func (l LineItem) HasItem() bool { return l.ItemID != 0 }

// LineSet is the ordered, row-id keyed collection of lines owned by one open form.
// Every mutation re-runs the duplicate guard and the line calculator and
// refreshes the document totals before returning. A LineSet is not safe for
// concurrent use.
type LineSet struct {
	kind     DocumentKind
	taxCodes []TaxCode
	rows     map[string]*LineItem
	order    []string
	totals   DocumentTotals
}

// NewLineSet returns an empty line set that resolves tax codes against taxCodes.
func NewLineSet(kind DocumentKind, taxCodes []TaxCode) *LineSet {
	return &LineSet{
		kind:     kind,
		taxCodes: taxCodes,
		rows:     make(map[string]*LineItem),
	}
}

func (s *LineSet) Kind() DocumentKind { return s.kind }

// Add appends an empty line and returns its row id.
func (s *LineSet) Add(needDate string) string {
	id := uuid.NewString()
	s.rows[id] = &LineItem{
		RowID:    id,
		LineNo:   len(s.order) + 1,
		NeedDate: needDate,
	}
	s.order = append(s.order, id)
	s.recalc()
	return id
}

// Load replaces the content of the set with items, in order. Row ids are
// reassigned and line numbers renumbered from 1. Duplicate items are rejected.
func (s *LineSet) Load(items []LineItem) error {
	seen := make(map[int]bool, len(items))
	for i, it := range items {
		if it.ItemID == 0 {
			continue
		}
		if seen[it.ItemID] {
			return fmt.Errorf("line %d: %w", i+1, ErrDuplicateItem)
		}
		seen[it.ItemID] = true
	}

	s.rows = make(map[string]*LineItem, len(items))
	s.order = s.order[:0]
	for _, it := range items {
		line := it
		line.RowID = uuid.NewString()
		s.rows[line.RowID] = &line
		s.order = append(s.order, line.RowID)
	}
	s.renumber()
	for _, id := range s.order {
		s.computeLine(s.rows[id])
	}
	s.recalc()
	return nil
}

// Remove deletes the line and renumbers the remaining lines contiguously from 1.
// The last remaining line cannot be removed.
func (s *LineSet) Remove(rowID string) error {
	if _, ok := s.rows[rowID]; !ok {
		return ErrLineNotFound
	}
	if len(s.order) <= 1 {
		return ErrLastLine
	}
	delete(s.rows, rowID)
	for i, id := range s.order {
		if id == rowID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.renumber()
	s.recalc()
	return nil
}

// SelectItem sets the item of a line. If another line already holds the item,
// the line is reset to an empty selection and ErrDuplicateItem is returned.
// On purchase orders a new selection clears unit price and discount.
func (s *LineSet) SelectItem(rowID string, item Item) error {
	line, ok := s.rows[rowID]
	if !ok {
		return ErrLineNotFound
	}
	if CheckDuplicate(item.ID, s.ItemIDs(rowID)) {
		clearItem(line)
		s.computeLine(line)
		s.recalc()
		return fmt.Errorf("%s (%s): %w", item.Code, item.Name, ErrDuplicateItem)
	}

	line.ItemID = item.ID
	line.ItemCode = item.Code
	line.ItemName = item.Name
	line.HSNCode = item.HSNCode
	line.ItemDetails = item.Details
	if s.kind == KindPurchaseOrder {
		line.UnitPrice = decimal.Zero
		line.DiscountPercent = decimal.Zero
	}
	s.computeLine(line)
	s.recalc()
	return nil
}

// ClearItem resets the item selection of a line.
func (s *LineSet) ClearItem(rowID string) error {
	return s.edit(rowID, clearItem)
}

func (s *LineSet) SetQuantity(rowID string, qty decimal.Decimal) error {
	return s.edit(rowID, func(l *LineItem) { l.Quantity = qty })
}

func (s *LineSet) SetUnitPrice(rowID string, price decimal.Decimal) error {
	return s.edit(rowID, func(l *LineItem) { l.UnitPrice = price })
}

func (s *LineSet) SetDiscountPercent(rowID string, pct decimal.Decimal) error {
	return s.edit(rowID, func(l *LineItem) { l.DiscountPercent = pct })
}

// SetTaxCode sets the tax code of a line. Unknown or empty codes resolve to 0%.
func (s *LineSet) SetTaxCode(rowID, code string) error {
	return s.edit(rowID, func(l *LineItem) { l.TaxCode = code })
}

func (s *LineSet) SetNeedDate(rowID, date string) error {
	return s.edit(rowID, func(l *LineItem) { l.NeedDate = date })
}

func (s *LineSet) SetWarehouse(rowID string, whsID *int) error {
	return s.edit(rowID, func(l *LineItem) { l.WarehouseID = whsID })
}

func (s *LineSet) SetUOM(rowID string, uomID *int) error {
	return s.edit(rowID, func(l *LineItem) { l.UOMID = uomID })
}

// ResetNeedDates sets every line's need date to date.
func (s *LineSet) ResetNeedDates(date string) {
	for _, id := range s.order {
		s.rows[id].NeedDate = date
	}
}

// SetTaxCodes replaces the tax catalog and recomputes every line.
func (s *LineSet) SetTaxCodes(taxCodes []TaxCode) {
	s.taxCodes = taxCodes
	for _, id := range s.order {
		s.computeLine(s.rows[id])
	}
	s.recalc()
}

// Line returns a copy of the line with the given row id.
func (s *LineSet) Line(rowID string) (LineItem, bool) {
	l, ok := s.rows[rowID]
	if !ok {
		return LineItem{}, false
	}
	return *l, true
}

// Lines returns copies of all lines in display order.
func (s *LineSet) Lines() []LineItem {
	out := make([]LineItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rows[id])
	}
	return out
}

// RowIDs returns the row ids in display order.
func (s *LineSet) RowIDs() []string {
	return append([]string(nil), s.order...)
}

// ItemIDs returns the selected item ids of every line except excludeRowID.
func (s *LineSet) ItemIDs(excludeRowID string) []int {
	ids := make([]int, 0, len(s.order))
	for _, id := range s.order {
		if id == excludeRowID {
			continue
		}
		if l := s.rows[id]; l.HasItem() {
			ids = append(ids, l.ItemID)
		}
	}
	return ids
}

func (s *LineSet) Len() int { return len(s.order) }

// Totals returns the current document totals. Lines without an item contribute nothing.
func (s *LineSet) Totals() DocumentTotals { return s.totals }

// TotalQuantity is the sum of quantities over lines with an item selected.
func (s *LineSet) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, id := range s.order {
		if l := s.rows[id]; l.HasItem() {
			total = total.Add(l.Quantity)
		}
	}
	return total
}

func (s *LineSet) edit(rowID string, fn func(*LineItem)) error {
	line, ok := s.rows[rowID]
	if !ok {
		return ErrLineNotFound
	}
	fn(line)
	s.computeLine(line)
	s.recalc()
	return nil
}

func (s *LineSet) computeLine(l *LineItem) {
	rate, _ := ResolveTaxRate(l.TaxCode, s.taxCodes)
	l.TaxRate = rate
	if s.kind == KindPurchaseRequest {
		l.Amounts = LineAmounts{}
		return
	}
	l.Amounts = ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPercent, rate)
}

func (s *LineSet) recalc() {
	amounts := make([]LineAmounts, 0, len(s.order))
	for _, id := range s.order {
		if l := s.rows[id]; l.HasItem() {
			amounts = append(amounts, l.Amounts)
		}
	}
	s.totals = ComputeTotals(amounts)
}

func (s *LineSet) renumber() {
	for i, id := range s.order {
		s.rows[id].LineNo = i + 1
	}
}

func clearItem(l *LineItem) {
	l.ItemID = 0
	l.ItemCode = ""
	l.ItemName = ""
	l.HSNCode = ""
	l.ItemDetails = ""
}
