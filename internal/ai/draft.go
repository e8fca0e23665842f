package ai

import (
	"fmt"
	"strings"

	"procurement-desk/internal/core"

	"github.com/shopspring/decimal"
)

// ResolvedLine is a drafted line matched to the item catalog.
type ResolvedLine struct {
	Item     core.Item
	Quantity decimal.Decimal
	Details  string
}

// Resolution splits a draft into usable lines and the notes of what was dropped.
type Resolution struct {
	Lines         []ResolvedLine
	Skipped       []string
	Clarification string
}

// Resolve matches draft lines against catalog. Unknown codes, non-positive
// quantities and items already on the form (existingItemIDs) or repeated in
// the draft are skipped with a note.
func Resolve(draft *LineDraft, catalog []core.Item, existingItemIDs []int) Resolution {
	res := Resolution{}
	if draft == nil {
		return res
	}
	res.Clarification = strings.TrimSpace(draft.Clarification)

	byCode := make(map[string]core.Item, len(catalog))
	for _, it := range catalog {
		byCode[strings.ToUpper(it.Code)] = it
	}

	taken := append([]int(nil), existingItemIDs...)
	for _, dl := range draft.Lines {
		code := strings.ToUpper(strings.TrimSpace(dl.ItemCode))
		item, ok := byCode[code]
		if !ok {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: not in the item catalog", dl.ItemCode))
			continue
		}
		qty := core.ParseAmount(dl.Quantity)
		if !qty.IsPositive() {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: quantity %q is not positive", item.Code, dl.Quantity))
			continue
		}
		if core.CheckDuplicate(item.ID, taken) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", item.Code, core.ErrDuplicateItem))
			continue
		}
		taken = append(taken, item.ID)
		res.Lines = append(res.Lines, ResolvedLine{
			Item:     item,
			Quantity: qty,
			Details:  strings.TrimSpace(dl.Details),
		})
	}
	return res
}
