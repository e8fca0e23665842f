package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"procurement-desk/internal/console"
	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
)

var errExit = errors.New("exit")

// session is one interactive console run. At most one form is open at a time.
type session struct {
	client    *console.Client
	reader    *bufio.Reader
	out       io.Writer
	createdBy string
	log       zerolog.Logger

	form *console.Editor
}

// Run starts the interactive REPL loop.
// Slash commands edit the open form deterministically; free text on an open
// purchase request is sent to the line drafting assistant.
func Run(ctx context.Context, client *console.Client, reader *bufio.Reader, out io.Writer, createdBy string, log zerolog.Logger) {
	s := &session{client: client, reader: reader, out: out, createdBy: createdBy, log: log}

	fmt.Fprintln(out, "Procurement Desk")
	fmt.Fprintln(out, "Open a form with /new-pr, /new-po or /open, or use /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n"+s.prompt())
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		if strings.HasPrefix(input, "/") {
			if dispErr := s.dispatch(ctx, input); dispErr != nil {
				if dispErr == errExit {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				s.printError(dispErr)
			}
			continue
		}

		if s.form == nil || s.form.Kind() != core.KindPurchaseRequest {
			fmt.Fprintln(out, "Free text drafts purchase request lines. Open one with /new-pr first.")
			continue
		}
		fmt.Fprintln(out, "[AI] Drafting lines...")
		res, draftErr := s.form.DraftLines(ctx, input)
		if draftErr != nil {
			s.printError(draftErr)
			continue
		}
		printDraft(out, res)
		printForm(out, s.form)
	}
}

func (s *session) prompt() string {
	if s.form == nil {
		return "> "
	}
	label := s.form.Number()
	if label == "" {
		label = "new " + string(s.form.Kind())
	}
	return fmt.Sprintf("[%s] > ", label)
}

func (s *session) dispatch(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "help", "h":
		printHelp(s.out)
		return nil
	case "exit", "quit", "q":
		return errExit
	case "new-pr", "new-po":
		kind := core.KindPurchaseRequest
		if cmd == "new-po" {
			kind = core.KindPurchaseOrder
		}
		form, err := console.NewEditor(ctx, s.client, kind, s.createdBy, s.log)
		if err != nil {
			return err
		}
		s.form = form
		printForm(s.out, form)
		return nil
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /open pr|po <id>")
			return nil
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[1])
		}
		var form *console.Editor
		if strings.EqualFold(args[0], "po") {
			form, err = console.OpenPurchaseOrder(ctx, s.client, id, s.createdBy, s.log)
		} else {
			form, err = console.OpenPurchaseRequest(ctx, s.client, id, s.createdBy, s.log)
		}
		if err != nil {
			return err
		}
		s.form = form
		printForm(s.out, form)
		return nil
	case "prs":
		prs, err := s.client.ListPurchaseRequests(ctx, core.PurchaseRequestFilter{Status: core.PRStatus(strings.Join(args, " "))})
		if err != nil {
			return err
		}
		printPurchaseRequests(s.out, prs)
		return nil
	case "pos":
		pos, err := s.client.ListPurchaseOrders(ctx, core.PurchaseOrderFilter{Status: core.POStatus(strings.Join(args, " "))})
		if err != nil {
			return err
		}
		printPurchaseOrders(s.out, pos)
		return nil
	case "convert":
		return s.convert(ctx, args)
	}

	if s.form == nil {
		fmt.Fprintf(s.out, "No form is open. Unknown or form command: /%s  (type /help for all commands)\n", cmd)
		return nil
	}
	return s.dispatchForm(ctx, cmd, args)
}

// dispatchForm handles commands that edit or act on the open form.
// Rows are addressed by their displayed line number.
func (s *session) dispatchForm(ctx context.Context, cmd string, args []string) error {
	f := s.form
	switch cmd {
	case "show", "s":
		printForm(s.out, f)
		return nil
	case "items":
		printItems(s.out, f.Catalogs())
		return nil
	case "emp":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /emp <emp-code>")
			return nil
		}
		return f.SetEmployee(strings.ToUpper(args[0]))
	case "vendor":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /vendor <bpcode>")
			return nil
		}
		return f.SetVendor(strings.ToUpper(args[0]))
	case "doc-date":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /doc-date YYYY-MM-DD")
			return nil
		}
		f.SetDocDate(args[0])
		fmt.Fprintln(s.out, "Need dates reset to doc date + 30 days.")
		return nil
	case "post-date":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /post-date YYYY-MM-DD")
			return nil
		}
		h := f.Header()
		h.PostDate = args[0]
		f.SetHeader(h)
		return nil
	case "priority":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /priority Low|Medium|High|Urgent")
			return nil
		}
		h := f.Header()
		h.Priority = core.Priority(args[0])
		f.SetHeader(h)
		return nil
	case "remarks":
		h := f.Header()
		h.Remarks = strings.Join(args, " ")
		f.SetHeader(h)
		return nil
	case "add":
		f.AddLine()
		printForm(s.out, f)
		return nil
	case "lines":
		return s.lineWizard()
	case "rm":
		row, err := s.row(args, "/rm <line>")
		if err != nil || row == "" {
			return err
		}
		if err := f.RemoveLine(row); err != nil {
			return err
		}
		printForm(s.out, f)
		return nil
	case "clear":
		row, err := s.row(args, "/clear <line>")
		if err != nil || row == "" {
			return err
		}
		if err := f.ClearItem(row); err != nil {
			return err
		}
		printForm(s.out, f)
		return nil
	case "reload":
		if err := f.ReloadCatalogs(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Catalogs reloaded.")
		printForm(s.out, f)
		return nil
	case "item", "qty", "price", "disc", "tax", "need", "whs", "uom":
		return s.editLine(cmd, args)
	case "save":
		if err := f.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %s (status %s).\n", f.Number(), f.Status())
		printForm(s.out, f)
		return nil
	case "status":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /status <Approved|Rejected|Open|Closed>")
			return nil
		}
		if err := f.RequestStatus(ctx, strings.Join(args, " ")); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s is now %s.\n", f.Number(), f.Status())
		return nil
	case "delete":
		number := f.Number()
		if err := f.Delete(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s deleted.\n", number)
		s.form = nil
		return nil
	case "discard":
		f.Discard()
		s.form = nil
		fmt.Fprintln(s.out, "Form discarded.")
		return nil
	}
	fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	return nil
}

func (s *session) editLine(cmd string, args []string) error {
	usage := fmt.Sprintf("/%s <line> <value>", cmd)
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: "+usage)
		return nil
	}
	row, err := s.row(args, usage)
	if err != nil || row == "" {
		return err
	}
	f, value := s.form, args[1]
	switch cmd {
	case "item":
		item, ok := f.Catalogs().ItemByCode(value)
		if !ok {
			return fmt.Errorf("item %s: %w", value, core.ErrInvalidReference)
		}
		err = f.SelectItem(row, item.ID)
	case "qty":
		err = f.SetQuantity(row, value)
	case "price":
		err = f.SetUnitPrice(row, value)
	case "disc":
		err = f.SetDiscountPercent(row, value)
	case "tax":
		err = f.SetTaxCode(row, strings.ToUpper(value))
	case "need":
		err = f.SetNeedDate(row, value)
	case "whs":
		id, _ := strconv.Atoi(value)
		err = f.SetWarehouse(row, id)
	case "uom":
		id, _ := strconv.Atoi(value)
		err = f.SetUOM(row, id)
	}
	if err != nil {
		return err
	}
	printForm(s.out, f)
	return nil
}

// row resolves a displayed line number to its row id. An empty id with a nil
// error means usage was printed.
func (s *session) row(args []string, usage string) (string, error) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: "+usage)
		return "", nil
	}
	n, err := strconv.Atoi(args[0])
	ids := s.form.RowIDs()
	if err != nil || n < 1 || n > len(ids) {
		return "", fmt.Errorf("no line %s (form has %d lines)", args[0], len(ids))
	}
	return ids[n-1], nil
}

func (s *session) convert(ctx context.Context, args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: /convert <bpcode> <req-id> [req-id...]")
		return nil
	}
	in := core.ConversionInput{VendorCode: strings.ToUpper(args[0]), CreatedBy: s.createdBy}
	for _, raw := range args[1:] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid request id %q", raw)
		}
		in.RequestIDs = append(in.RequestIDs, id)
	}
	today := todayString()
	in.PostDate, in.DocDate = today, today
	if err := in.Validate(); err != nil {
		return err
	}
	po, err := s.client.ConvertPurchaseRequests(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created %s from %d purchase request(s). Set prices with /open po %d.\n", po.PONo, len(in.RequestIDs), po.ID)
	return nil
}

func (s *session) printError(err error) {
	var apiErr *console.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(s.out, "Error: HTTP %d %s\n", apiErr.StatusCode, apiErr.Body)
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
