package app

import (
	"procurement-desk/internal/core"

	"github.com/shopspring/decimal"
)

// CatalogResult is returned by GetCatalogs.
type CatalogResult struct {
	Items      []core.Item      `json:"items"`
	TaxCodes   []core.TaxCode   `json:"tax_codes"`
	Warehouses []core.Warehouse `json:"warehouses"`
	UOMs       []core.UOM       `json:"uoms"`
	Vendors    []core.Vendor    `json:"vendors"`
	Employees  []core.Employee  `json:"employees"`
}

// DraftedLine is one AI-suggested purchase request line.
type DraftedLine struct {
	ItemID   int             `json:"it_id"`
	ItemCode string          `json:"it_code"`
	ItemName string          `json:"it_name"`
	Quantity decimal.Decimal `json:"req_qty"`
	Details  string          `json:"it_details,omitempty"`
}

// DraftLinesResult is returned by DraftRequestLines.
type DraftLinesResult struct {
	Lines         []DraftedLine `json:"lines"`
	Skipped       []string      `json:"skipped,omitempty"`
	Clarification string        `json:"clarification,omitempty"`
}
