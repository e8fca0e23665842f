package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// vendorBPType is the business partner type of vendors in business_master.
const vendorBPType = 2

// CatalogService provides the read-only master data the purchasing forms use.
type CatalogService interface {
	GetItems(ctx context.Context) ([]Item, error)
	// GetTaxCodes returns active tax codes ordered by rate.
	GetTaxCodes(ctx context.Context) ([]TaxCode, error)
	GetWarehouses(ctx context.Context) ([]Warehouse, error)
	GetUOMs(ctx context.Context) ([]UOM, error)
	// GetVendors returns business partners of vendor type, ordered by name.
	GetVendors(ctx context.Context) ([]Vendor, error)
	GetEmployees(ctx context.Context) ([]Employee, error)
	// GetCurrentPostingPeriod returns the open period covering date.
	// Returns ErrNoOpenPostingPeriod when none does.
	GetCurrentPostingPeriod(ctx context.Context, date time.Time) (*PostingPeriod, error)
	// GetCurrentStock returns the on-hand quantity of an item.
	GetCurrentStock(ctx context.Context, itemID int) (decimal.Decimal, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func (s *catalogService) GetItems(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT it_id, it_code, it_name, COALESCE(it_hsn, ''), COALESCE(it_details, '')
		FROM item_master
		WHERE is_active = true
		ORDER BY it_name`)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.HSNCode, &it.Details); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *catalogService) GetTaxCodes(ctx context.Context) ([]TaxCode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tax_id, tax_code, tax_name, tax_rate
		FROM tax_master
		WHERE is_active = true
		ORDER BY tax_rate`)
	if err != nil {
		return nil, fmt.Errorf("get tax codes: %w", err)
	}
	defer rows.Close()

	var codes []TaxCode
	for rows.Next() {
		var tc TaxCode
		if err := rows.Scan(&tc.ID, &tc.Code, &tc.Name, &tc.Rate); err != nil {
			return nil, fmt.Errorf("scan tax code: %w", err)
		}
		codes = append(codes, tc)
	}
	return codes, rows.Err()
}

func (s *catalogService) GetWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT whs_id, whs_name
		FROM warehouse_master
		WHERE is_active = true
		ORDER BY whs_id`)
	if err != nil {
		return nil, fmt.Errorf("get warehouses: %w", err)
	}
	defer rows.Close()

	var whs []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		whs = append(whs, w)
	}
	return whs, rows.Err()
}

func (s *catalogService) GetUOMs(ctx context.Context) ([]UOM, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uom_id, uom_code, uom_name
		FROM uom_master
		ORDER BY uom_id`)
	if err != nil {
		return nil, fmt.Errorf("get uoms: %w", err)
	}
	defer rows.Close()

	var uoms []UOM
	for rows.Next() {
		var u UOM
		if err := rows.Scan(&u.ID, &u.Code, &u.Name); err != nil {
			return nil, fmt.Errorf("scan uom: %w", err)
		}
		uoms = append(uoms, u)
	}
	return uoms, rows.Err()
}

func (s *catalogService) GetVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bpcode, bpname, COALESCE(city, ''), COALESCE(state, '')
		FROM business_master
		WHERE bptype_id = $1
		ORDER BY bpname`,
		vendorBPType,
	)
	if err != nil {
		return nil, fmt.Errorf("get vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.Code, &v.Name, &v.City, &v.State); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (s *catalogService) GetEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.emp_code, e.emp_name, e.dept_id, COALESCE(d.dept_name, '')
		FROM employees e
		LEFT JOIN departments d ON d.dept_id = e.dept_id
		ORDER BY e.emp_name`)
	if err != nil {
		return nil, fmt.Errorf("get employees: %w", err)
	}
	defer rows.Close()

	var emps []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.Code, &e.Name, &e.DeptID, &e.DeptName); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		emps = append(emps, e)
	}
	return emps, rows.Err()
}

func (s *catalogService) GetCurrentPostingPeriod(ctx context.Context, date time.Time) (*PostingPeriod, error) {
	return openPostingPeriod(ctx, s.pool, date)
}

func (s *catalogService) GetCurrentStock(ctx context.Context, itemID int) (decimal.Decimal, error) {
	return currentStock(ctx, s.pool, itemID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func openPostingPeriod(ctx context.Context, q querier, date time.Time) (*PostingPeriod, error) {
	p := &PostingPeriod{}
	err := q.QueryRow(ctx, `
		SELECT period_id, period_code, start_date, end_date, period_status, allow_posting
		FROM posting_periods
		WHERE $1::date BETWEEN start_date AND end_date
		  AND period_status = 'Open' AND allow_posting = true
		ORDER BY start_date DESC
		LIMIT 1`,
		date.Format(DateLayout),
	).Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.AllowPosting)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", date.Format(DateLayout), ErrNoOpenPostingPeriod)
		}
		return nil, fmt.Errorf("get posting period: %w", err)
	}
	return p, nil
}

func currentStock(ctx context.Context, q querier, itemID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	if err := q.QueryRow(ctx,
		"SELECT COALESCE(SUM(stock_qty), 0) FROM stock_transactions WHERE it_id = $1",
		itemID,
	).Scan(&qty); err != nil {
		return decimal.Zero, fmt.Errorf("get current stock for item %d: %w", itemID, err)
	}
	return qty, nil
}

func lookupItem(ctx context.Context, q querier, itemID int) (Item, error) {
	var it Item
	err := q.QueryRow(ctx, `
		SELECT it_id, it_code, it_name, COALESCE(it_hsn, ''), COALESCE(it_details, '')
		FROM item_master
		WHERE it_id = $1`,
		itemID,
	).Scan(&it.ID, &it.Code, &it.Name, &it.HSNCode, &it.Details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("item %d: %w", itemID, ErrInvalidReference)
		}
		return Item{}, fmt.Errorf("lookup item %d: %w", itemID, err)
	}
	return it, nil
}

func lookupEmployee(ctx context.Context, q querier, empCode string) (Employee, error) {
	var e Employee
	err := q.QueryRow(ctx,
		"SELECT emp_code, emp_name, dept_id FROM employees WHERE emp_code = $1",
		empCode,
	).Scan(&e.Code, &e.Name, &e.DeptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, fmt.Errorf("employee %q: %w", empCode, ErrInvalidReference)
		}
		return Employee{}, fmt.Errorf("lookup employee %q: %w", empCode, err)
	}
	return e, nil
}

func lookupVendor(ctx context.Context, q querier, bpcode string) (Vendor, error) {
	var v Vendor
	err := q.QueryRow(ctx, `
		SELECT bpcode, bpname, COALESCE(city, ''), COALESCE(state, '')
		FROM business_master
		WHERE bpcode = $1 AND bptype_id = $2`,
		bpcode, vendorBPType,
	).Scan(&v.Code, &v.Name, &v.City, &v.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, fmt.Errorf("vendor %q: %w", bpcode, ErrInvalidReference)
		}
		return Vendor{}, fmt.Errorf("lookup vendor %q: %w", bpcode, err)
	}
	return v, nil
}

func activeTaxCodes(ctx context.Context, tx pgx.Tx) ([]TaxCode, error) {
	rows, err := tx.Query(ctx,
		"SELECT tax_id, tax_code, tax_name, tax_rate FROM tax_master WHERE is_active = true ORDER BY tax_rate")
	if err != nil {
		return nil, fmt.Errorf("load tax codes: %w", err)
	}
	defer rows.Close()

	var codes []TaxCode
	for rows.Next() {
		var tc TaxCode
		if err := rows.Scan(&tc.ID, &tc.Code, &tc.Name, &tc.Rate); err != nil {
			return nil, fmt.Errorf("scan tax code: %w", err)
		}
		codes = append(codes, tc)
	}
	return codes, rows.Err()
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{Violations: map[string]string{field: "datetime"}}
	}
	return d, nil
}
