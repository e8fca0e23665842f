package repl

import (
	"fmt"
	"io"
	"strings"

	"procurement-desk/internal/app"
	"procurement-desk/internal/console"
	"procurement-desk/internal/core"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Forms:
  /new-pr | /new-po            open a blank purchase request / order
  /open pr|po <id>             open a saved document
  /prs [status] | /pos [status] list documents
  /convert <bpcode> <req-id>...  create a PO from approved requests
Open form:
  /emp <code>  /vendor <code>  /doc-date <date>  /post-date <date>
  /priority <p>  /remarks <text>
  /add  /rm <line>  /lines     add, remove or enter lines
  /clear <line>                remove the item from a line
  /item|/qty|/price|/disc|/tax|/need|/whs|/uom <line> <value>
  /items  /reload  /show  /save  /status <status>  /delete  /discard
Free text on a purchase request drafts lines with the assistant.
  /exit`)
}

func printForm(out io.Writer, f *console.Editor) {
	h := f.Header()
	po := f.Kind() == core.KindPurchaseOrder
	width := 72
	if po {
		width = 110
	}

	title := "PURCHASE REQUEST"
	if po {
		title = "PURCHASE ORDER"
	}
	number := f.Number()
	if number == "" {
		number = "(unsaved)"
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", width))
	fmt.Fprintf(out, "  %s %s", title, number)
	if f.Status() != "" {
		fmt.Fprintf(out, "  [%s]", f.Status())
	}
	fmt.Fprintln(out)
	if po {
		fmt.Fprintf(out, "  Vendor   : %s %s\n", h.VendorCode, h.VendorName)
	} else {
		fmt.Fprintf(out, "  Employee : %s %s   Priority: %s\n", h.EmpCode, h.EmpName, h.Priority)
	}
	fmt.Fprintf(out, "  Post date: %s   Doc date: %s\n", h.PostDate, h.DocDate)
	fmt.Fprintln(out, strings.Repeat("=", width))

	if po {
		fmt.Fprintf(out, "  %-3s %-10s %-22s %9s %11s %6s %-6s %11s %11s %12s\n",
			"#", "ITEM", "NAME", "QTY", "PRICE", "DISC%", "TAX", "DISC AMT", "TAX AMT", "LINE TOTAL")
	} else {
		fmt.Fprintf(out, "  %-3s %-10s %-28s %10s %-12s\n", "#", "ITEM", "NAME", "QTY", "NEED BY")
	}
	fmt.Fprintln(out, strings.Repeat("-", width))
	for _, l := range f.Lines() {
		if po {
			a := l.Amounts.Rounded()
			fmt.Fprintf(out, "  %-3d %-10s %-22s %9s %11s %6s %-6s %11s %11s %12s\n",
				l.LineNo, l.ItemCode, truncate(l.ItemName, 22), l.Quantity.String(), l.UnitPrice.StringFixed(2),
				l.DiscountPercent.String(), l.TaxCode, a.DiscountAmt.StringFixed(2), a.TaxAmt.StringFixed(2),
				a.LineTotal.StringFixed(2))
			continue
		}
		fmt.Fprintf(out, "  %-3d %-10s %-28s %10s %-12s\n",
			l.LineNo, l.ItemCode, truncate(l.ItemName, 28), l.Quantity.String(), l.NeedDate)
	}
	fmt.Fprintln(out, strings.Repeat("-", width))

	if po {
		t := f.Totals().Rounded()
		fmt.Fprintf(out, "  %*s %12s\n", width-16, "Subtotal", t.Subtotal.StringFixed(2))
		fmt.Fprintf(out, "  %*s %12s\n", width-16, "Discount", t.DiscountTotal.StringFixed(2))
		fmt.Fprintf(out, "  %*s %12s\n", width-16, "Tax", t.TaxTotal.StringFixed(2))
		fmt.Fprintf(out, "  %*s %12s\n", width-16, "TOTAL", t.GrandTotal.StringFixed(2))
	} else {
		fmt.Fprintf(out, "  Total quantity: %s\n", f.TotalQuantity().String())
	}
	fmt.Fprintln(out, strings.Repeat("=", width))
}

func printDraft(out io.Writer, res *app.DraftLinesResult) {
	if res.Clarification != "" {
		fmt.Fprintf(out, "[AI]: %s\n", res.Clarification)
	}
	for _, d := range res.Lines {
		fmt.Fprintf(out, "  + %s %s x %s\n", d.ItemCode, d.ItemName, d.Quantity.String())
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  - skipped: %s\n", s)
	}
}

func printPurchaseRequests(out io.Writer, prs []core.PurchaseRequest) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "  %-5s %-15s %-10s %-20s %-16s %5s %10s\n", "ID", "NUMBER", "DATE", "EMPLOYEE", "STATUS", "ITEMS", "TOTAL QTY")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	if len(prs) == 0 {
		fmt.Fprintln(out, "  No purchase requests found.")
	}
	for _, pr := range prs {
		fmt.Fprintf(out, "  %-5d %-15s %-10s %-20s %-16s %5d %10s\n",
			pr.ID, pr.ReqNo, pr.DocDate, truncate(pr.EmpName, 20), pr.Status, pr.ItemCount, pr.TotalQty.String())
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
}

func printPurchaseOrders(out io.Writer, pos []core.PurchaseOrder) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "  %-5s %-15s %-10s %-25s %-8s %12s\n", "ID", "NUMBER", "DATE", "VENDOR", "STATUS", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	if len(pos) == 0 {
		fmt.Fprintln(out, "  No purchase orders found.")
	}
	for _, po := range pos {
		fmt.Fprintf(out, "  %-5d %-15s %-10s %-25s %-8s %12s\n",
			po.ID, po.PONo, po.DocDate, truncate(po.VendorName, 25), po.Status, po.TotalAmt.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
}

func printItems(out io.Writer, cat *console.Catalogs) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-10s %-30s %-10s\n", "CODE", "NAME", "HSN")
	fmt.Fprintln(out, strings.Repeat("-", 54))
	for _, it := range cat.Items {
		fmt.Fprintf(out, "  %-10s %-30s %-10s\n", it.Code, truncate(it.Name, 30), it.HSNCode)
	}
	if len(cat.TaxCodes) > 0 {
		codes := make([]string, 0, len(cat.TaxCodes))
		for _, tc := range cat.TaxCodes {
			codes = append(codes, fmt.Sprintf("%s (%s%%)", tc.Code, tc.Rate.String()))
		}
		fmt.Fprintf(out, "\n  Tax codes: %s\n", strings.Join(codes, ", "))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
