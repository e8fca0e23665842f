package core

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateItem       = errors.New("item is already added to the document")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrClosedPurchaseOrder = errors.New("purchase order is closed")
	ErrNoOpenPostingPeriod = errors.New("no open posting period found for the given date")
	ErrInvalidReference    = errors.New("invalid reference")
	ErrLineNotFound        = errors.New("line not found")
	ErrLastLine            = errors.New("a document must keep at least one line")
)

// ValidationError carries per-field violations of a document payload.
// Keys are JSON field paths such as "rows[0].it_id".
type ValidationError struct {
	Violations map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Violations))
	for k := range e.Violations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Violations[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, rule string) {
	if e.Violations == nil {
		e.Violations = make(map[string]string)
	}
	if _, exists := e.Violations[field]; !exists {
		e.Violations[field] = rule
	}
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.Violations) == 0
}
