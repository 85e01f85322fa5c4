package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atlasextract/atlas/internal/invoice"
	"github.com/atlasextract/atlas/internal/render"
	"github.com/atlasextract/atlas/internal/workbook"
	"github.com/atlasextract/atlas/internal/workflow"
)

// WorkbookLoader reads an Excel export into records.
type WorkbookLoader func(path string) (*workbook.Import, error)

func openWorkbook(path string) (*workbook.Import, error) {
	return workbook.Open(path)
}

// command handlers run with the output lock held and write to s.out.
type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, s *Session, args string) error
}

var commands = []command{
	{"file", "file <path>", "pick the document to extract", cmdFile},
	{"extract", "extract", "upload the picked document and load the result", cmdExtract},
	{"show", "show", "print every view", cmdShow},
	{"set", "set <section>.<key> = <value>", "edit a document or header field", cmdSet},
	{"line", "line add | rm <i> | set <i>.<key> = <value>", "edit line items", cmdLine},
	{"totals", "totals", "reconcile line items against the totals", cmdTotals},
	{"save", "save", "save the record as a new order", cmdSave},
	{"update", "update <id>", "overwrite order <id> with the record", cmdUpdate},
	{"orders", "orders [limit]", "refresh the saved orders list", cmdOrders},
	{"open", "open <id>", "show a saved order", cmdOpen},
	{"close", "close", "close the order view", cmdClose},
	{"import", "import <workbook.xlsx>", "save every order in an Excel export", cmdImport},
}

var commandIndex = func() map[string]command {
	m := make(map[string]command, len(commands))
	for _, c := range commands {
		m[c.name] = c
	}
	return m
}()

func cmdFile(_ context.Context, s *Session, args string) error {
	if args == "" {
		return ErrUsage
	}
	f, err := readFile(args)
	if err != nil {
		return err
	}
	s.ctrl.SetFile(f)
	return render.Upload(s.out, f.Name, s.ctrl.Upload.State())
}

func cmdExtract(ctx context.Context, s *Session, _ string) error {
	_, err := s.ctrl.Extract(ctx)
	if rerr := render.Upload(s.out, s.ctrl.Upload.FileName(), s.ctrl.Upload.State()); rerr != nil {
		return rerr
	}
	if err != nil {
		s.logger.Debug("extract failed", "error", err)
		return nil
	}
	fmt.Fprintln(s.out)
	return s.renderEditor()
}

func cmdShow(_ context.Context, s *Session, _ string) error {
	if err := render.Upload(s.out, s.ctrl.Upload.FileName(), s.ctrl.Upload.State()); err != nil {
		return err
	}
	if s.ctrl.Editor.Visible() {
		fmt.Fprintln(s.out)
		if err := s.renderEditor(); err != nil {
			return err
		}
	}
	fmt.Fprintln(s.out)
	if err := render.Orders(s.out, s.ctrl.Orders.State()); err != nil {
		return err
	}
	if id, state := s.ctrl.Detail.State(); state.Phase() != workflow.PhaseIdle {
		fmt.Fprintln(s.out)
		return render.Detail(s.out, id, state)
	}
	return nil
}

func cmdSet(_ context.Context, s *Session, args string) error {
	target, value, err := parseAssignment(args)
	if err != nil {
		return err
	}
	sec, key, ok := strings.Cut(target, ".")
	if !ok || key == "" {
		return ErrUsage
	}
	section, err := invoice.ParseSection(sec)
	if err != nil {
		return err
	}
	if err := s.ctrl.Editor.UpdateField(section, key, value); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %q\n", invoice.Label(section, key), value)
	return nil
}

func cmdLine(_ context.Context, s *Session, args string) error {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	switch sub {
	case "add":
		i := s.ctrl.Editor.AddLineItem()
		fmt.Fprintf(s.out, "Added line item %d\n", i)
		return nil
	case "rm":
		i, err := parseIndex(rest)
		if err != nil {
			return err
		}
		if err := s.ctrl.Editor.RemoveLineItem(i); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Removed line item %d\n", i)
		return nil
	case "set":
		target, value, err := parseAssignment(rest)
		if err != nil {
			return err
		}
		idx, key, ok := strings.Cut(target, ".")
		if !ok || key == "" {
			return ErrUsage
		}
		i, err := parseIndex(idx)
		if err != nil {
			return err
		}
		if err := s.ctrl.Editor.UpdateLineItem(i, key, value); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Line %d %s = %q\n", i, key, value)
		return nil
	default:
		return ErrUsage
	}
}

func cmdTotals(_ context.Context, s *Session, _ string) error {
	t, ok := s.ctrl.Editor.Reconcile()
	if !ok {
		fmt.Fprintln(s.out, "No extraction loaded.")
		return nil
	}
	return render.Totals(s.out, t)
}

func cmdSave(ctx context.Context, s *Session, _ string) error {
	_, err := s.ctrl.Save(ctx)
	return s.afterPersist(err)
}

func cmdUpdate(ctx context.Context, s *Session, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	_, err = s.ctrl.Update(ctx, id)
	return s.afterPersist(err)
}

// afterPersist shows the save status and the refreshed list. Failures the
// editor already reports in its status are not repeated.
func (s *Session) afterPersist(err error) error {
	switch {
	case errors.Is(err, workflow.ErrNoRecord), errors.Is(err, workflow.ErrSaveInProgress):
		return err
	case err != nil:
		s.logger.Debug("save failed", "error", err)
	}
	if msg := s.ctrl.Editor.Status().Message(); msg != "" {
		fmt.Fprintf(s.out, "Status: %s\n", msg)
	}
	if err != nil && !errors.Is(err, workflow.ErrSuperseded) {
		return nil
	}
	fmt.Fprintln(s.out)
	return render.Orders(s.out, s.ctrl.Orders.State())
}

func cmdOrders(ctx context.Context, s *Session, args string) error {
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return ErrUsage
		}
		s.ctrl.Orders.SetLimit(n)
	}
	if _, err := s.ctrl.RefreshOrders(ctx); err != nil {
		s.logger.Debug("orders refresh failed", "error", err)
	}
	return render.Orders(s.out, s.ctrl.Orders.State())
}

func cmdOpen(ctx context.Context, s *Session, args string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := s.ctrl.SelectOrder(ctx, id); err != nil {
		s.logger.Debug("open order failed", "id", id, "error", err)
	}
	openID, state := s.ctrl.Detail.State()
	return render.Detail(s.out, openID, state)
}

func cmdClose(_ context.Context, s *Session, _ string) error {
	s.ctrl.CloseOrder()
	fmt.Fprintln(s.out, "Order view closed.")
	return nil
}

func cmdImport(ctx context.Context, s *Session, args string) error {
	if args == "" {
		return ErrUsage
	}
	imp, err := s.load(args)
	if err != nil {
		return err
	}
	res, err := s.ctrl.ImportOrders(ctx, imp.Orders)
	fmt.Fprintf(s.out, "Imported %d of %d orders", len(res.Saved), len(imp.Orders))
	if imp.Orphans > 0 {
		fmt.Fprintf(s.out, " (%d detail rows without a header skipped)", imp.Orphans)
	}
	fmt.Fprintln(s.out)
	for _, f := range res.Failures {
		fmt.Fprintf(s.out, "  ! %v\n", f)
	}
	if len(res.Saved) > 0 {
		fmt.Fprintln(s.out)
		if rerr := render.Orders(s.out, s.ctrl.Orders.State()); rerr != nil {
			return rerr
		}
	}
	if len(res.Failures) > 0 {
		return nil
	}
	return err
}

func (s *Session) renderEditor() error {
	rec, _ := s.ctrl.Editor.Record()
	return render.Editor(s.out, rec, s.ctrl.Editor.CanSave(), s.ctrl.Editor.Status())
}

// parseAssignment splits "target = value". The value may be empty and may
// itself contain "=".
func parseAssignment(s string) (target, value string, err error) {
	target, value, ok := strings.Cut(s, "=")
	target = strings.TrimSpace(target)
	if !ok || target == "" {
		return "", "", ErrUsage
	}
	return target, strings.TrimSpace(value), nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: line item index %q is not a number", ErrUsage, s)
	}
	return i, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: order id %q must be a positive number", ErrUsage, s)
	}
	return id, nil
}
