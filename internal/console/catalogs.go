package console

import (
	"context"
	"fmt"
	"strings"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"
)

// Catalogs is the read-only reference data loaded once when a form opens.
type Catalogs struct {
	app.CatalogResult

	itemsByID   map[int]core.Item
	itemsByCode map[string]core.Item
}

// LoadCatalogs fetches every catalog from the API.
func LoadCatalogs(ctx context.Context, c *Client) (*Catalogs, error) {
	res, err := c.Catalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	return NewCatalogs(*res), nil
}

// NewCatalogs indexes an already fetched catalog result.
func NewCatalogs(res app.CatalogResult) *Catalogs {
	cat := &Catalogs{
		CatalogResult: res,
		itemsByID:     make(map[int]core.Item, len(res.Items)),
		itemsByCode:   make(map[string]core.Item, len(res.Items)),
	}
	for _, it := range res.Items {
		cat.itemsByID[it.ID] = it
		cat.itemsByCode[strings.ToUpper(it.Code)] = it
	}
	return cat
}

// Item returns the catalog item with the given id.
func (c *Catalogs) Item(id int) (core.Item, bool) {
	it, ok := c.itemsByID[id]
	return it, ok
}

// ItemByCode looks an item up by code, case-insensitively.
func (c *Catalogs) ItemByCode(code string) (core.Item, bool) {
	it, ok := c.itemsByCode[strings.ToUpper(strings.TrimSpace(code))]
	return it, ok
}

// Vendor returns the vendor with the given business partner code.
func (c *Catalogs) Vendor(code string) (core.Vendor, bool) {
	for _, v := range c.Vendors {
		if v.Code == code {
			return v, true
		}
	}
	return core.Vendor{}, false
}

// Employee returns the employee with the given code.
func (c *Catalogs) Employee(code string) (core.Employee, bool) {
	for _, e := range c.Employees {
		if e.Code == code {
			return e, true
		}
	}
	return core.Employee{}, false
}
