package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
	docs DocumentService
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool, docs DocumentService) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, docs: docs}
}

// poHeader is the validated header of a create or update call.
type poHeader struct {
	periodID int
	vendor   Vendor
	empCode  *string
	empName  *string
	deptID   *int
	postDate string
	docDate  string
}

// resolvePO validates the payload against master data inside tx and recomputes
// every line. Client-supplied derived amounts are never trusted.
func resolvePO(ctx context.Context, tx pgx.Tx, in PurchaseOrderInput) (poHeader, []PurchaseOrderLine, DocumentTotals, error) {
	if err := in.Validate(); err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}
	postDate, err := parseDate("post_dt", in.PostDate)
	if err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}
	if _, err := parseDate("doc_dt", in.DocDate); err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}

	vendor, err := lookupVendor(ctx, tx, in.VendorCode)
	if err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}
	period, err := openPostingPeriod(ctx, tx, postDate)
	if err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}

	h := poHeader{
		periodID: period.ID,
		vendor:   vendor,
		deptID:   in.DeptID,
		postDate: in.PostDate,
		docDate:  in.DocDate,
	}
	if in.EmpCode != "" {
		emp, err := lookupEmployee(ctx, tx, in.EmpCode)
		if err != nil {
			return poHeader{}, nil, DocumentTotals{}, err
		}
		h.empCode = &emp.Code
		h.empName = &emp.Name
		if h.deptID == nil {
			h.deptID = emp.DeptID
		}
	}

	taxCodes, err := activeTaxCodes(ctx, tx)
	if err != nil {
		return poHeader{}, nil, DocumentTotals{}, err
	}

	defaultNeed := DefaultNeedDate(in.DocDate)
	lines := make([]PurchaseOrderLine, 0, len(in.Rows))
	amounts := make([]LineAmounts, 0, len(in.Rows))
	for i, row := range in.Rows {
		item, err := lookupItem(ctx, tx, row.ItemID)
		if err != nil {
			return poHeader{}, nil, DocumentTotals{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		rate, _ := ResolveTaxRate(row.TaxCode, taxCodes)
		a := ComputeLine(row.Quantity, row.UnitPrice, row.DiscountPercent, rate)

		need := row.NeedDate
		if need == "" {
			need = defaultNeed
		}
		details := row.ItemDetails
		if details == "" {
			details = item.Details
		}
		var taxCode *string
		if row.TaxCode != "" {
			tc := row.TaxCode
			taxCode = &tc
		}
		lines = append(lines, PurchaseOrderLine{
			LineNo:          row.LineNo,
			ItemID:          item.ID,
			ItemCode:        item.Code,
			ItemName:        item.Name,
			ItemDetails:     details,
			HSNCode:         item.HSNCode,
			UOMID:           row.UOMID,
			Quantity:        row.Quantity,
			NeedDate:        &need,
			UnitPrice:       row.UnitPrice,
			DiscountPercent: row.DiscountPercent,
			DiscountAmt:     a.DiscountAmt,
			TaxCode:         taxCode,
			TaxRate:         rate,
			TaxAmt:          a.TaxAmt,
			LineTotal:       a.LineTotal,
			WarehouseID:     row.WarehouseID,
			PRReqID:         row.PRReqID,
			PRLineNo:        row.PRLineNo,
			PRNo:            row.PRNo,
		})
		amounts = append(amounts, a)
	}
	return h, lines, ComputeTotals(amounts), nil
}

func insertPOLines(ctx context.Context, tx pgx.Tx, poID int, lines []PurchaseOrderLine, createdBy string) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_lines
			            (po_id, line_no, it_id, it_code, it_name, it_details, hsn_code, uom_id,
			             req_qty, need_date, unit_price, discount_percent, discount_amt,
			             tax_code, tax_rate, tax_amt, line_total, whs_id,
			             pr_req_id, pr_line_no, pr_no, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			        $19, $20, $21, $22)`,
			poID, l.LineNo, l.ItemID, l.ItemCode, l.ItemName, l.ItemDetails, l.HSNCode, l.UOMID,
			l.Quantity, l.NeedDate, l.UnitPrice, l.DiscountPercent, l.DiscountAmt,
			l.TaxCode, l.TaxRate, l.TaxAmt, l.LineTotal, l.WarehouseID,
			l.PRReqID, l.PRLineNo, l.PRNo, createdBy,
		); err != nil {
			return fmt.Errorf("insert PO line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

func insertPOHeader(ctx context.Context, tx pgx.Tx, poNo string, h poHeader, totals DocumentTotals, createdBy string) (int, error) {
	var poID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders
		            (po_no, post_per, post_dt, doc_dt, bpcode, bpname, emp_code, emp_name, dept_id,
		             subtotal, discount_amt, tax_amt, total_amt, po_status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING po_id`,
		poNo, h.periodID, h.postDate, h.docDate, h.vendor.Code, h.vendor.Name,
		h.empCode, h.empName, h.deptID,
		totals.Subtotal, totals.DiscountTotal, totals.TaxTotal, totals.GrandTotal,
		string(POStatusOpen), createdBy,
	).Scan(&poID); err != nil {
		return 0, fmt.Errorf("insert purchase order: %w", err)
	}
	return poID, nil
}

// CreatePO stores a new Open purchase order with server-computed amounts.
func (s *purchaseOrderService) CreatePO(ctx context.Context, in PurchaseOrderInput) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	h, lines, totals, err := resolvePO(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	postDate, _ := parseDate("post_dt", h.postDate)
	poNo, err := s.docs.NextNumberTx(ctx, tx, DocTypePurchaseOrder, postDate.Year())
	if err != nil {
		return nil, fmt.Errorf("assign PO number: %w", err)
	}

	poID, err := insertPOHeader(ctx, tx, poNo, h, totals, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := insertPOLines(ctx, tx, poID, lines, in.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// UpdatePO replaces header and rows of an Open order.
func (s *purchaseOrderService) UpdatePO(ctx context.Context, poID int, in PurchaseOrderInput, updatedBy string) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPOStatus(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	if status == POStatusClosed {
		return nil, fmt.Errorf("update purchase order %d: %w", poID, ErrClosedPurchaseOrder)
	}

	h, lines, totals, err := resolvePO(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET post_per = $1, post_dt = $2, doc_dt = $3, bpcode = $4, bpname = $5,
		    emp_code = $6, emp_name = $7, dept_id = $8,
		    subtotal = $9, discount_amt = $10, tax_amt = $11, total_amt = $12,
		    updated_by = $13, updated_at = NOW()
		WHERE po_id = $14`,
		h.periodID, h.postDate, h.docDate, h.vendor.Code, h.vendor.Name,
		h.empCode, h.empName, h.deptID,
		totals.Subtotal, totals.DiscountTotal, totals.TaxTotal, totals.GrandTotal,
		updatedBy, poID,
	); err != nil {
		return nil, fmt.Errorf("update purchase order %d: %w", poID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_order_lines WHERE po_id = $1", poID); err != nil {
		return nil, fmt.Errorf("clear PO lines for order %d: %w", poID, err)
	}
	if err := insertPOLines(ctx, tx, poID, lines, updatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// SetPOStatus toggles an order between Open and Closed.
func (s *purchaseOrderService) SetPOStatus(ctx context.Context, poID int, status POStatus, updatedBy string) (*PurchaseOrder, error) {
	if !status.Valid() {
		return nil, &ValidationError{Violations: map[string]string{"status": "oneof"}}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockPOStatus(ctx, tx, poID)
	if err != nil {
		return nil, err
	}

	// Idempotent: same status is a no-op
	if current == status {
		return s.GetPO(ctx, poID)
	}
	if !current.CanTransition(status) {
		return nil, fmt.Errorf("purchase order %d: %s -> %s: %w", poID, current, status, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET po_status = $1, updated_by = $2, updated_at = NOW() WHERE po_id = $3",
		string(status), updatedBy, poID,
	); err != nil {
		return nil, fmt.Errorf("update PO status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit PO status: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// DeletePO removes an Open order and its rows.
func (s *purchaseOrderService) DeletePO(ctx context.Context, poID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPOStatus(ctx, tx, poID)
	if err != nil {
		return err
	}
	if !status.Deletable() {
		return fmt.Errorf("purchase order %d: %w", poID, ErrClosedPurchaseOrder)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_orders WHERE po_id = $1", poID); err != nil {
		return fmt.Errorf("delete purchase order %d: %w", poID, err)
	}
	return tx.Commit(ctx)
}

// ConvertFromPRs builds one purchase order from approved purchase requests.
// Rows are copied in request order with zero prices, the first UOM and the
// first warehouse; the employee and department come from the first request.
func (s *purchaseOrderService) ConvertFromPRs(ctx context.Context, in ConversionInput) (*PurchaseOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	postDate, err := parseDate("post_dt", in.PostDate)
	if err != nil {
		return nil, err
	}
	if _, err := parseDate("doc_dt", in.DocDate); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	vendor, err := lookupVendor(ctx, tx, in.VendorCode)
	if err != nil {
		return nil, err
	}
	period, err := openPostingPeriod(ctx, tx, postDate)
	if err != nil {
		return nil, err
	}

	var defaultUOM, defaultWhs *int
	if err := tx.QueryRow(ctx, "SELECT MIN(uom_id) FROM uom_master").Scan(&defaultUOM); err != nil {
		return nil, fmt.Errorf("default uom: %w", err)
	}
	if err := tx.QueryRow(ctx, "SELECT MIN(whs_id) FROM warehouse_master WHERE is_active = true").Scan(&defaultWhs); err != nil {
		return nil, fmt.Errorf("default warehouse: %w", err)
	}

	h := poHeader{
		periodID: period.ID,
		vendor:   vendor,
		postDate: in.PostDate,
		docDate:  in.DocDate,
	}

	var lines []PurchaseOrderLine
	seenItems := make(map[int]string)
	for i, reqID := range in.RequestIDs {
		var reqNo, empCode, empName, status string
		var deptID *int
		if err := tx.QueryRow(ctx, `
			SELECT req_no, emp_code, emp_name, emp_dept, req_status
			FROM purchase_requests
			WHERE req_id = $1
			FOR UPDATE`,
			reqID,
		).Scan(&reqNo, &empCode, &empName, &deptID, &status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("purchase request %d: %w", reqID, ErrNotFound)
			}
			return nil, fmt.Errorf("fetch purchase request %d: %w", reqID, err)
		}
		if !PRStatus(status).CanTransition(PRStatusConverted) {
			return nil, fmt.Errorf("purchase request %s is %s, only approved requests can be converted: %w",
				reqNo, status, ErrInvalidTransition)
		}
		if i == 0 {
			h.empCode = &empCode
			h.empName = &empName
			h.deptID = deptID
		}

		prLines, err := copyPRLines(ctx, tx, reqID, reqNo, len(lines))
		if err != nil {
			return nil, err
		}
		for j := range prLines {
			if other, dup := seenItems[prLines[j].ItemID]; dup {
				return nil, fmt.Errorf("item %s appears on %s and %s: %w",
					prLines[j].ItemCode, other, reqNo, ErrDuplicateItem)
			}
			seenItems[prLines[j].ItemID] = reqNo
			prLines[j].UOMID = defaultUOM
			prLines[j].WarehouseID = defaultWhs
		}
		lines = append(lines, prLines...)
	}

	amounts := make([]LineAmounts, len(lines))
	for i, l := range lines {
		amounts[i] = ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPercent, l.TaxRate)
	}
	totals := ComputeTotals(amounts)

	poNo, err := s.docs.NextNumberTx(ctx, tx, DocTypePurchaseOrder, postDate.Year())
	if err != nil {
		return nil, fmt.Errorf("assign PO number: %w", err)
	}
	poID, err := insertPOHeader(ctx, tx, poNo, h, totals, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := insertPOLines(ctx, tx, poID, lines, in.CreatedBy); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET req_status = $1, updated_by = $2, updated_at = NOW()
		WHERE req_id = ANY($3)`,
		string(PRStatusConverted), in.CreatedBy, in.RequestIDs,
	); err != nil {
		return nil, fmt.Errorf("mark purchase requests converted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// copyPRLines reads the rows of one request as zero-priced PO lines numbered after offset.
func copyPRLines(ctx context.Context, tx pgx.Tx, reqID int, reqNo string, offset int) ([]PurchaseOrderLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT line_no, it_id, it_code, it_name, COALESCE(it_details, ''), COALESCE(it_hsn, ''),
		       need_date::text, req_qty
		FROM purchase_request_lines
		WHERE req_id = $1
		ORDER BY line_no`,
		reqID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch PR lines for request %d: %w", reqID, err)
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		var prLineNo int
		l := PurchaseOrderLine{
			UnitPrice:       decimal.Zero,
			DiscountPercent: decimal.Zero,
			DiscountAmt:     decimal.Zero,
			TaxRate:         decimal.Zero,
			TaxAmt:          decimal.Zero,
			LineTotal:       decimal.Zero,
		}
		if err := rows.Scan(
			&prLineNo, &l.ItemID, &l.ItemCode, &l.ItemName, &l.ItemDetails, &l.HSNCode,
			&l.NeedDate, &l.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan PR line: %w", err)
		}
		l.LineNo = offset + len(lines) + 1
		id, no, ln := reqID, reqNo, prLineNo
		l.PRReqID, l.PRNo, l.PRLineNo = &id, &no, &ln
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func lockPOStatus(ctx context.Context, tx pgx.Tx, poID int) (POStatus, error) {
	var status string
	if err := tx.QueryRow(ctx,
		"SELECT po_status FROM purchase_orders WHERE po_id = $1 FOR UPDATE",
		poID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return "", fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	return POStatus(status), nil
}

const poHeaderColumns = `
	po_id, po_no, post_per, post_dt::text, doc_dt::text, bpcode, bpname,
	emp_code, emp_name, dept_id, subtotal, discount_amt, tax_amt, total_amt,
	po_status, created_by, created_at, updated_by, updated_at`

func scanPOHeader(row pgx.Row, po *PurchaseOrder) error {
	var status string
	if err := row.Scan(
		&po.ID, &po.PONo, &po.PostPeriodID, &po.PostDate, &po.DocDate, &po.VendorCode, &po.VendorName,
		&po.EmpCode, &po.EmpName, &po.DeptID, &po.Subtotal, &po.DiscountAmt, &po.TaxAmt, &po.TotalAmt,
		&status, &po.CreatedBy, &po.CreatedAt, &po.UpdatedBy, &po.UpdatedAt,
	); err != nil {
		return err
	}
	po.Status = POStatus(status)
	return nil
}

// GetPO returns a purchase order by id, including all rows.
func (s *purchaseOrderService) GetPO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	row := s.pool.QueryRow(ctx, "SELECT "+poHeaderColumns+" FROM purchase_orders WHERE po_id = $1", poID)
	if err := scanPOHeader(row, po); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", poID, err)
	}

	lines, err := s.fetchLines(ctx, poID)
	if err != nil {
		return nil, err
	}
	po.Rows = lines
	return po, nil
}

// ListPOs returns order headers, newest number first.
func (s *purchaseOrderService) ListPOs(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error) {
	query := "SELECT " + poHeaderColumns + " FROM purchase_orders WHERE 1 = 1"
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND po_status = $%d", len(args))
	}
	if filter.VendorCode != "" {
		args = append(args, filter.VendorCode)
		query += fmt.Sprintf(" AND bpcode = $%d", len(args))
	}
	query += " ORDER BY po_no DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := scanPOHeader(rows, &po); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

func (s *purchaseOrderService) fetchLines(ctx context.Context, poID int) ([]PurchaseOrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT line_no, it_id, it_code, it_name, COALESCE(it_details, ''), COALESCE(hsn_code, ''),
		       uom_id, req_qty, need_date::text, unit_price, discount_percent, discount_amt,
		       tax_code, tax_rate, tax_amt, line_total, whs_id, pr_req_id, pr_line_no, pr_no
		FROM purchase_order_lines
		WHERE po_id = $1
		ORDER BY line_no`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch PO lines for order %d: %w", poID, err)
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(
			&l.LineNo, &l.ItemID, &l.ItemCode, &l.ItemName, &l.ItemDetails, &l.HSNCode,
			&l.UOMID, &l.Quantity, &l.NeedDate, &l.UnitPrice, &l.DiscountPercent, &l.DiscountAmt,
			&l.TaxCode, &l.TaxRate, &l.TaxAmt, &l.LineTotal, &l.WarehouseID, &l.PRReqID, &l.PRLineNo, &l.PRNo,
		); err != nil {
			return nil, fmt.Errorf("scan PO line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
