package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"procurement-desk/internal/app"
	"procurement-desk/internal/console"
	"procurement-desk/internal/core"
)

// ErrUsage is returned for unknown subcommands or missing arguments.
var ErrUsage = errors.New("usage")

const usage = `Available commands:
  totals  [PR|PO]                 compute line and document totals for rows read from stdin (offline)
  submit  pr|po                   validate a payload from stdin and create it
  status  pr|po <id> <status>     request a status change
  convert <bpcode> <req-id>...    create a purchase order from approved requests
  draft   "<requisition text>"    draft purchase request lines with the assistant
  list    pr|po [status]          list documents`

// totalsInput is the stdin document of the totals command.
type totalsInput struct {
	TaxCodes []core.TaxCode  `json:"tax_codes"`
	Rows     []core.LineItem `json:"rows"`
}

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, client *console.Client, args []string, in io.Reader, out io.Writer, createdBy string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w\n%s", ErrUsage, usage)
	}

	switch args[0] {
	case "totals", "tot":
		kind := core.KindPurchaseOrder
		if len(args) > 1 && strings.EqualFold(args[1], "PR") {
			kind = core.KindPurchaseRequest
		}
		var doc totalsInput
		if err := json.NewDecoder(in).Decode(&doc); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		lines := core.NewLineSet(kind, doc.TaxCodes)
		if err := lines.Load(doc.Rows); err != nil {
			return err
		}
		printTotals(out, lines)
		return nil

	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("%w: submit pr|po", ErrUsage)
		}
		return submit(ctx, client, strings.ToLower(args[1]), in, out, createdBy)

	case "status":
		if len(args) < 4 {
			return fmt.Errorf("%w: status pr|po <id> <status>", ErrUsage)
		}
		id, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[2])
		}
		st := core.StatusInput{Status: strings.Join(args[3:], " "), UpdatedBy: createdBy}
		if strings.EqualFold(args[1], "po") {
			if err := client.SetPurchaseOrderStatus(ctx, id, st); err != nil {
				return err
			}
			po, err := client.GetPurchaseOrder(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s is now %s.\n", po.PONo, po.Status)
			return nil
		}
		if err := client.SetPurchaseRequestStatus(ctx, id, st); err != nil {
			return err
		}
		pr, err := client.GetPurchaseRequest(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now %s.\n", pr.ReqNo, pr.Status)
		return nil

	case "convert":
		if len(args) < 3 {
			return fmt.Errorf("%w: convert <bpcode> <req-id>...", ErrUsage)
		}
		conv := core.ConversionInput{VendorCode: strings.ToUpper(args[1]), CreatedBy: createdBy}
		for _, raw := range args[2:] {
			id, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid request id %q", raw)
			}
			conv.RequestIDs = append(conv.RequestIDs, id)
		}
		conv.PostDate, conv.DocDate = today(), today()
		if err := conv.Validate(); err != nil {
			return err
		}
		po, err := client.ConvertPurchaseRequests(ctx, conv)
		if err != nil {
			return err
		}
		return encode(out, po)

	case "draft":
		if len(args) < 2 {
			return fmt.Errorf("%w: draft \"<requisition text>\"", ErrUsage)
		}
		res, err := client.DraftRequestLines(ctx, app.DraftLinesRequest{Text: strings.Join(args[1:], " ")})
		if err != nil {
			return err
		}
		return encode(out, res)

	case "list", "ls":
		if len(args) < 2 {
			return fmt.Errorf("%w: list pr|po [status]", ErrUsage)
		}
		status := strings.Join(args[2:], " ")
		if strings.EqualFold(args[1], "po") {
			pos, err := client.ListPurchaseOrders(ctx, core.PurchaseOrderFilter{Status: core.POStatus(status)})
			if err != nil {
				return err
			}
			return encode(out, pos)
		}
		prs, err := client.ListPurchaseRequests(ctx, core.PurchaseRequestFilter{Status: core.PRStatus(status)})
		if err != nil {
			return err
		}
		return encode(out, prs)
	}

	return fmt.Errorf("%w: unknown command %s\n%s", ErrUsage, args[0], usage)
}

func submit(ctx context.Context, client *console.Client, kind string, in io.Reader, out io.Writer, createdBy string) error {
	switch kind {
	case "pr":
		var payload core.PurchaseRequestInput
		if err := json.NewDecoder(in).Decode(&payload); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if payload.CreatedBy == "" {
			payload.CreatedBy = createdBy
		}
		if err := payload.Validate(); err != nil {
			return err
		}
		pr, err := client.CreatePurchaseRequest(ctx, payload)
		if err != nil {
			return err
		}
		return encode(out, pr)
	case "po":
		var payload core.PurchaseOrderInput
		if err := json.NewDecoder(in).Decode(&payload); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		if payload.CreatedBy == "" {
			payload.CreatedBy = createdBy
		}
		if err := payload.Validate(); err != nil {
			return err
		}
		po, err := client.CreatePurchaseOrder(ctx, payload)
		if err != nil {
			return err
		}
		return encode(out, po)
	}
	return fmt.Errorf("%w: submit pr|po", ErrUsage)
}

func printTotals(out io.Writer, lines *core.LineSet) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 76))
	fmt.Fprintf(out, "  %-3s %-8s %10s %11s %12s %11s %12s\n", "#", "ITEM", "QTY", "GROSS", "DISCOUNT", "TAX", "LINE TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 76))
	for _, l := range lines.Lines() {
		a := l.Amounts.Rounded()
		fmt.Fprintf(out, "  %-3d %-8d %10s %11s %12s %11s %12s\n",
			l.LineNo, l.ItemID, l.Quantity.String(), a.Gross.StringFixed(2), a.DiscountAmt.StringFixed(2),
			a.TaxAmt.StringFixed(2), a.LineTotal.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 76))
	t := lines.Totals().Rounded()
	fmt.Fprintf(out, "  %-48s %25s\n", "Subtotal", t.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %25s\n", "Discount", t.DiscountTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %25s\n", "Tax", t.TaxTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %25s\n", "Total", t.GrandTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-48s %25s\n", "Total quantity", lines.TotalQuantity().String())
	fmt.Fprintln(out, strings.Repeat("=", 76))
}

func today() string {
	return time.Now().Format(core.DateLayout)
}

func encode(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
