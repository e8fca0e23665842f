package core

import "time"

// Item is an entry of the item master.
type Item struct {
	ID      int    `json:"it_id"`
	Code    string `json:"it_code"`
	Name    string `json:"it_name"`
	HSNCode string `json:"it_hsn"`
	Details string `json:"it_details"`
}

type Warehouse struct {
	ID   int    `json:"whs_id"`
	Name string `json:"whs_name"`
}

type UOM struct {
	ID   int    `json:"uom_id"`
	Code string `json:"uom_code"`
	Name string `json:"uom_name"`
}

// Vendor is a business partner of vendor type.
type Vendor struct {
	Code  string `json:"bpcode"`
	Name  string `json:"bpname"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

type Employee struct {
	Code     string `json:"emp_code"`
	Name     string `json:"emp_name"`
	DeptID   *int   `json:"dept_id,omitempty"`
	DeptName string `json:"dept_name,omitempty"`
}

// PostingPeriod is an accounting period documents are posted into.
type PostingPeriod struct {
	ID           int       `json:"period_id"`
	Code         string    `json:"period_code"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       string    `json:"status"`
	AllowPosting bool      `json:"allow_posting"`
}

// Covers reports whether d falls inside the period and posting is allowed.
func (p PostingPeriod) Covers(d time.Time) bool {
	if !p.AllowPosting || p.Status != "Open" {
		return false
	}
	day := d.Truncate(24 * time.Hour)
	return !day.Before(p.StartDate.Truncate(24*time.Hour)) && !day.After(p.EndDate.Truncate(24*time.Hour))
}
