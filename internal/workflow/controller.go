// Package workflow holds the client-side state of the extraction workflow:
// upload, review, save, and browsing saved orders. Each view owns its state
// and guards it with its own mutex; no lock is held across a request.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
)

// Backend is the extraction and orders service. *api.Client implements it.
type Backend interface {
	Extract(ctx context.Context, up api.Upload) (*invoice.ExtractResult, error)
	SaveOrder(ctx context.Context, rec invoice.Record) (*invoice.Record, error)
	UpdateOrder(ctx context.Context, id int64, rec invoice.Record) (*invoice.Record, error)
	ListOrders(ctx context.Context, limit int) ([]invoice.OrderSummary, error)
	GetOrder(ctx context.Context, id int64) (*invoice.Record, error)
}

var _ Backend = (*api.Client)(nil)

// Config configures a Controller.
type Config struct {
	Backend  Backend
	Preparer Preparer
	// OrdersLimit is how many saved orders the list shows. Zero uses the default.
	OrdersLimit int
	Logger      *slog.Logger
}

// Controller wires the four views together and sequences the steps that
// span more than one of them.
type Controller struct {
	Upload *Upload
	Editor *Editor
	Orders *OrdersList
	Detail *OrderDetail

	backend Backend
	logger  *slog.Logger
}

// New creates a controller with fresh views.
func New(cfg Config) (*Controller, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Preparer == nil {
		return nil, fmt.Errorf("preparer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Controller{
		Upload: NewUpload(cfg.Backend, cfg.Preparer, logger.With("view", "upload")),
		Editor: NewEditor(cfg.Backend, logger.With("view", "editor")),
		Orders: NewOrdersList(cfg.Backend, cfg.OrdersLimit, logger.With("view", "orders")),
		Detail: NewOrderDetail(cfg.Backend, logger.With("view", "detail")),

		backend: cfg.Backend,
		logger:  logger,
	}
	c.Orders.OnSelect(func(ctx context.Context, id int64) error {
		_, err := c.Detail.Open(ctx, id)
		return err
	})
	return c, nil
}

// SetFile picks the file the next Extract uploads.
func (c *Controller) SetFile(f *File) {
	c.Upload.SetFile(f)
}

// Extract runs extraction and, on success, loads the result into the editor.
func (c *Controller) Extract(ctx context.Context) (*invoice.ExtractResult, error) {
	result, err := c.Upload.Extract(ctx)
	if err != nil {
		return result, err
	}
	c.Editor.Load(result.Record)
	return result, nil
}

// Save persists the working record, then refreshes the orders list. The
// refresh is only issued once the save has completed.
func (c *Controller) Save(ctx context.Context) (*invoice.Record, error) {
	saved, err := c.Editor.Save(ctx)
	return saved, c.afterPersist(ctx, saved, err)
}

// Update overwrites order id with the working record, then refreshes the list.
func (c *Controller) Update(ctx context.Context, id int64) (*invoice.Record, error) {
	saved, err := c.Editor.Update(ctx, id)
	return saved, c.afterPersist(ctx, saved, err)
}

// afterPersist refreshes the list whenever the backend stored something, even
// if the editor discarded the response. A failed refresh shows on the list
// view and is not reported as a save failure.
func (c *Controller) afterPersist(ctx context.Context, saved *invoice.Record, err error) error {
	if err != nil && !isSuperseded(err) {
		return err
	}
	if saved == nil {
		return err
	}
	if _, rerr := c.Orders.Refresh(ctx); rerr != nil && !isSuperseded(rerr) {
		c.logger.Warn("orders refresh after save failed", "error", rerr)
	}
	return err
}

// RefreshOrders reloads the orders list.
func (c *Controller) RefreshOrders(ctx context.Context) ([]invoice.OrderSummary, error) {
	return c.Orders.Refresh(ctx)
}

// SelectOrder is a row click: the list emits id and the detail view opens it.
func (c *Controller) SelectOrder(ctx context.Context, id int64) error {
	return c.Orders.Select(ctx, id)
}

// OpenOrder opens the detail view for id.
func (c *Controller) OpenOrder(ctx context.Context, id int64) (*invoice.Record, error) {
	return c.Detail.Open(ctx, id)
}

// CloseOrder closes the detail view.
func (c *Controller) CloseOrder() {
	c.Detail.Close()
}

// ImportFailure is one record the backend refused during an import.
type ImportFailure struct {
	Index int
	Err   error
}

func (f ImportFailure) Error() string {
	return fmt.Sprintf("record %d: %v", f.Index, f.Err)
}

func (f ImportFailure) Unwrap() error { return f.Err }

// ImportResult summarizes an import.
type ImportResult struct {
	Saved    []int64         `json:"saved" yaml:"saved"`
	Failures []ImportFailure `json:"-" yaml:"-"`
}

// ImportOrders saves each record as its own order, one request at a time, then
// refreshes the list once. It keeps going past failures and returns them
// joined. Cancelling ctx stops before the next record.
func (c *Controller) ImportOrders(ctx context.Context, records []invoice.Record) (*ImportResult, error) {
	result := &ImportResult{Saved: []int64{}}
	var errs []error

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		saved, err := c.backend.SaveOrder(ctx, rec)
		if err != nil {
			failure := ImportFailure{Index: i, Err: err}
			result.Failures = append(result.Failures, failure)
			errs = append(errs, failure)
			c.logger.Warn("import failed", "index", i, "error", err)
			continue
		}
		id, _ := saved.SalesOrderID()
		result.Saved = append(result.Saved, id)
		c.logger.Debug("imported order", "index", i, "sales_order_id", id)
	}

	if len(result.Saved) > 0 {
		if _, err := c.Orders.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			c.logger.Warn("orders refresh after import failed", "error", err)
		}
	}
	c.logger.Info("import complete", "saved", len(result.Saved), "failed", len(result.Failures))
	return result, errors.Join(errs...)
}
