package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type purchaseRequestService struct {
	pool *pgxpool.Pool
	docs DocumentService
}

// NewPurchaseRequestService constructs a PurchaseRequestService backed by PostgreSQL.
func NewPurchaseRequestService(pool *pgxpool.Pool, docs DocumentService) PurchaseRequestService {
	return &purchaseRequestService{pool: pool, docs: docs}
}

// resolvedPRLine is a validated request row with item master details and stock attached.
type resolvedPRLine struct {
	lineNo   int
	item     Item
	details  string
	needDate *string
	stock    decimal.Decimal
	qty      decimal.Decimal
}

// prHeader is the validated header of a create or update call.
type prHeader struct {
	periodID  int
	employee  Employee
	postDate  string
	validDate string
	docDate   string
	priority  Priority
	remarks   *string
}

// resolvePR validates the payload against master data inside tx.
func resolvePR(ctx context.Context, tx pgx.Tx, in PurchaseRequestInput) (prHeader, []resolvedPRLine, error) {
	if err := in.Validate(); err != nil {
		return prHeader{}, nil, err
	}
	postDate, err := parseDate("post_dt", in.PostDate)
	if err != nil {
		return prHeader{}, nil, err
	}
	if _, err := parseDate("doc_dt", in.DocDate); err != nil {
		return prHeader{}, nil, err
	}

	emp, err := lookupEmployee(ctx, tx, in.EmpCode)
	if err != nil {
		return prHeader{}, nil, err
	}
	period, err := openPostingPeriod(ctx, tx, postDate)
	if err != nil {
		return prHeader{}, nil, err
	}

	h := prHeader{
		periodID:  period.ID,
		employee:  emp,
		postDate:  in.PostDate,
		validDate: postDate.AddDate(0, 0, ValidDays).Format(DateLayout),
		docDate:   in.DocDate,
		priority:  in.Priority,
	}
	if h.priority == "" {
		h.priority = PriorityMedium
	}
	if r := strings.TrimSpace(in.Remarks); r != "" {
		h.remarks = &r
	}

	defaultNeed := DefaultNeedDate(in.DocDate)
	lines := make([]resolvedPRLine, 0, len(in.Rows))
	for i, row := range in.Rows {
		item, err := lookupItem(ctx, tx, row.ItemID)
		if err != nil {
			return prHeader{}, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		stock, err := currentStock(ctx, tx, row.ItemID)
		if err != nil {
			return prHeader{}, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		need := row.NeedDate
		if need == "" {
			need = defaultNeed
		}
		details := row.ItemDetails
		if details == "" {
			details = item.Details
		}
		lines = append(lines, resolvedPRLine{
			lineNo:   row.LineNo,
			item:     item,
			details:  details,
			needDate: &need,
			stock:    stock,
			qty:      row.Quantity,
		})
	}
	return h, lines, nil
}

func insertPRLines(ctx context.Context, tx pgx.Tx, reqID int, lines []resolvedPRLine) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_request_lines
			            (req_id, line_no, it_id, it_code, it_name, it_details, it_hsn,
			             need_date, current_stock, req_qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			reqID, l.lineNo, l.item.ID, l.item.Code, l.item.Name, l.details, l.item.HSNCode,
			l.needDate, l.stock, l.qty,
		); err != nil {
			return fmt.Errorf("insert PR line %d: %w", l.lineNo, err)
		}
	}
	return nil
}

// CreatePR stores a new Pending purchase request with a gapless number.
func (s *purchaseRequestService) CreatePR(ctx context.Context, in PurchaseRequestInput) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	h, lines, err := resolvePR(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	postDate, _ := parseDate("post_dt", h.postDate)
	reqNo, err := s.docs.NextNumberTx(ctx, tx, DocTypePurchaseRequest, postDate.Year())
	if err != nil {
		return nil, fmt.Errorf("assign PR number: %w", err)
	}

	var reqID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_requests
		            (req_no, post_per, emp_code, emp_name, emp_dept, post_dt, valid_dt, doc_dt,
		             priority, req_status, remarks, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING req_id`,
		reqNo, h.periodID, h.employee.Code, h.employee.Name, h.employee.DeptID,
		h.postDate, h.validDate, h.docDate,
		string(h.priority), string(PRStatusPending), h.remarks, in.CreatedBy,
	).Scan(&reqID); err != nil {
		return nil, fmt.Errorf("insert purchase request: %w", err)
	}

	if err := insertPRLines(ctx, tx, reqID, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase request: %w", err)
	}
	return s.GetPR(ctx, reqID)
}

// UpdatePR replaces header and rows of a Pending request.
func (s *purchaseRequestService) UpdatePR(ctx context.Context, reqID int, in PurchaseRequestInput, updatedBy string) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPRStatus(ctx, tx, reqID)
	if err != nil {
		return nil, err
	}
	if status != PRStatusPending {
		return nil, fmt.Errorf("purchase request %d is %s and can no longer be edited: %w", reqID, status, ErrInvalidTransition)
	}

	h, lines, err := resolvePR(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET post_per = $1, emp_code = $2, emp_name = $3, emp_dept = $4,
		    post_dt = $5, valid_dt = $6, doc_dt = $7, priority = $8, remarks = $9,
		    updated_by = $10, updated_at = NOW()
		WHERE req_id = $11`,
		h.periodID, h.employee.Code, h.employee.Name, h.employee.DeptID,
		h.postDate, h.validDate, h.docDate, string(h.priority), h.remarks,
		updatedBy, reqID,
	); err != nil {
		return nil, fmt.Errorf("update purchase request %d: %w", reqID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_request_lines WHERE req_id = $1", reqID); err != nil {
		return nil, fmt.Errorf("clear PR lines for request %d: %w", reqID, err)
	}
	if err := insertPRLines(ctx, tx, reqID, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase request: %w", err)
	}
	return s.GetPR(ctx, reqID)
}

// SetPRStatus applies an approval decision to a Pending request.
func (s *purchaseRequestService) SetPRStatus(ctx context.Context, reqID int, status PRStatus, updatedBy string) (*PurchaseRequest, error) {
	if !status.Valid() {
		return nil, &ValidationError{Violations: map[string]string{"status": "oneof"}}
	}
	if status == PRStatusConverted {
		return nil, fmt.Errorf("purchase requests are converted through a purchase order: %w", ErrInvalidTransition)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockPRStatus(ctx, tx, reqID)
	if err != nil {
		return nil, err
	}

	// Idempotent: same status is a no-op
	if current == status {
		return s.GetPR(ctx, reqID)
	}
	if !current.CanTransition(status) {
		return nil, fmt.Errorf("purchase request %d: %s -> %s: %w", reqID, current, status, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_requests SET req_status = $1, updated_by = $2, updated_at = NOW() WHERE req_id = $3",
		string(status), updatedBy, reqID,
	); err != nil {
		return nil, fmt.Errorf("update PR status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit PR status: %w", err)
	}
	return s.GetPR(ctx, reqID)
}

// DeletePR removes a request and its rows. Converted requests are kept because
// purchase order rows reference them.
func (s *purchaseRequestService) DeletePR(ctx context.Context, reqID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPRStatus(ctx, tx, reqID)
	if err != nil {
		return err
	}
	if status == PRStatusConverted {
		return fmt.Errorf("purchase request %d was converted to a purchase order: %w", reqID, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_requests WHERE req_id = $1", reqID); err != nil {
		return fmt.Errorf("delete purchase request %d: %w", reqID, err)
	}
	return tx.Commit(ctx)
}

func lockPRStatus(ctx context.Context, tx pgx.Tx, reqID int) (PRStatus, error) {
	var status string
	if err := tx.QueryRow(ctx,
		"SELECT req_status FROM purchase_requests WHERE req_id = $1 FOR UPDATE",
		reqID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("purchase request %d: %w", reqID, ErrNotFound)
		}
		return "", fmt.Errorf("fetch purchase request %d: %w", reqID, err)
	}
	return PRStatus(status), nil
}

const prHeaderColumns = `
	h.req_id, h.req_no, h.post_per, h.emp_code, h.emp_name, h.emp_dept,
	h.post_dt::text, h.valid_dt::text, h.doc_dt::text, h.priority, h.req_status, h.remarks,
	h.created_by, h.created_at, h.updated_by, h.updated_at,
	COUNT(l.line_no)::int, COALESCE(SUM(l.req_qty), 0)`

func scanPRHeader(row pgx.Row, pr *PurchaseRequest) error {
	var priority, status string
	if err := row.Scan(
		&pr.ID, &pr.ReqNo, &pr.PostPeriodID, &pr.EmpCode, &pr.EmpName, &pr.DeptID,
		&pr.PostDate, &pr.ValidDate, &pr.DocDate, &priority, &status, &pr.Remarks,
		&pr.CreatedBy, &pr.CreatedAt, &pr.UpdatedBy, &pr.UpdatedAt,
		&pr.ItemCount, &pr.TotalQty,
	); err != nil {
		return err
	}
	pr.Priority = Priority(priority)
	pr.Status = PRStatus(status)
	return nil
}

// GetPR returns a purchase request by id, including all rows.
func (s *purchaseRequestService) GetPR(ctx context.Context, reqID int) (*PurchaseRequest, error) {
	pr := &PurchaseRequest{}
	row := s.pool.QueryRow(ctx, `
		SELECT `+prHeaderColumns+`
		FROM purchase_requests h
		LEFT JOIN purchase_request_lines l ON l.req_id = h.req_id
		WHERE h.req_id = $1
		GROUP BY h.req_id`,
		reqID,
	)
	if err := scanPRHeader(row, pr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase request %d: %w", reqID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase request %d: %w", reqID, err)
	}

	lines, err := s.fetchLines(ctx, reqID)
	if err != nil {
		return nil, err
	}
	pr.Rows = lines
	return pr, nil
}

// ListPRs returns request headers, newest number first.
func (s *purchaseRequestService) ListPRs(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequest, error) {
	query := `
		SELECT ` + prHeaderColumns + `
		FROM purchase_requests h
		LEFT JOIN purchase_request_lines l ON l.req_id = h.req_id
		WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND h.req_status = $%d", len(args))
	}
	if filter.EmpCode != "" {
		args = append(args, filter.EmpCode)
		query += fmt.Sprintf(" AND h.emp_code = $%d", len(args))
	}
	query += " GROUP BY h.req_id ORDER BY h.req_no DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	defer rows.Close()

	var prs []PurchaseRequest
	for rows.Next() {
		var pr PurchaseRequest
		if err := scanPRHeader(rows, &pr); err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

func (s *purchaseRequestService) fetchLines(ctx context.Context, reqID int) ([]PurchaseRequestLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT line_no, it_id, it_code, it_name, COALESCE(it_details, ''), COALESCE(it_hsn, ''),
		       need_date::text, current_stock, req_qty
		FROM purchase_request_lines
		WHERE req_id = $1
		ORDER BY line_no`,
		reqID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch PR lines for request %d: %w", reqID, err)
	}
	defer rows.Close()

	var lines []PurchaseRequestLine
	for rows.Next() {
		var l PurchaseRequestLine
		if err := rows.Scan(
			&l.LineNo, &l.ItemID, &l.ItemCode, &l.ItemName, &l.ItemDetails, &l.HSNCode,
			&l.NeedDate, &l.CurrentStock, &l.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan PR line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
