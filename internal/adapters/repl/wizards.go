package repl

import (
	"fmt"
	"strings"
	"time"

	"procurement-desk/internal/core"
)

// lineWizard runs an interactive line entry session on the open form.
func (s *session) lineWizard() error {
	f := s.form
	po := f.Kind() == core.KindPurchaseOrder
	fmt.Fprintln(s.out, "Enter lines. Type 'done' when finished.")
	if po {
		fmt.Fprintln(s.out, "Format per line: <item-code> <quantity> [unit-price] [discount-%] [tax-code]")
		fmt.Fprintln(s.out, "  Example: BLT-01 10 100 10 GST18")
	} else {
		fmt.Fprintln(s.out, "Format per line: <item-code> <quantity>")
		fmt.Fprintln(s.out, "  Example: BLT-01 10")
	}

	for {
		fmt.Fprintf(s.out, "  Line %d: ", len(f.Lines())+1)
		raw, err := s.reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "done") || (raw == "" && err != nil) {
			break
		}
		if raw == "" {
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 2 {
			fmt.Fprintln(s.out, "  Invalid format. Use: <item-code> <quantity> ...")
			continue
		}
		item, ok := f.Catalogs().ItemByCode(parts[0])
		if !ok {
			fmt.Fprintf(s.out, "  Unknown item %s.\n", parts[0])
			continue
		}

		row := s.emptyRow()
		if row == "" {
			row = f.AddLine()
		}
		if err := f.SelectItem(row, item.ID); err != nil {
			fmt.Fprintf(s.out, "  %v\n", err)
			continue
		}
		_ = f.SetQuantity(row, parts[1])
		if po {
			if len(parts) >= 3 {
				_ = f.SetUnitPrice(row, parts[2])
			}
			if len(parts) >= 4 {
				_ = f.SetDiscountPercent(row, parts[3])
			}
			if len(parts) >= 5 {
				_ = f.SetTaxCode(row, strings.ToUpper(parts[4]))
			}
		}
	}

	printForm(s.out, f)
	return nil
}

func (s *session) emptyRow() string {
	for _, l := range s.form.Lines() {
		if !l.HasItem() {
			return l.RowID
		}
	}
	return ""
}

func todayString() string {
	return time.Now().Format(core.DateLayout)
}
