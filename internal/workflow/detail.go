package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
)

// OrderDetail is the read-only order view. Idle means closed. Nothing is
// cached between opens.
type OrderDetail struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	id    int64
	state State[*invoice.Record]
	gen   uint64
}

// NewOrderDetail creates a closed detail view.
func NewOrderDetail(backend Backend, logger *slog.Logger) *OrderDetail {
	return &OrderDetail{backend: backend, logger: logger}
}

// State returns the view status and the id it was opened for.
func (d *OrderDetail) State() (int64, State[*invoice.Record]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id, d.state
}

// IsOpen reports whether the view is showing anything.
func (d *OrderDetail) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Phase() != PhaseIdle
}

// Open shows order id and blocks until its fetch completes. If the view is
// closed or reopened meanwhile, the response is discarded.
func (d *OrderDetail) Open(ctx context.Context, id int64) (*invoice.Record, error) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.id = id
	d.state = Loading[*invoice.Record](MsgLoadingOrder)
	d.mu.Unlock()

	rec, err := d.backend.GetOrder(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		d.logger.Debug("discarding superseded order", "sales_order_id", id)
		return rec, ErrSuperseded
	}
	if err != nil {
		msg := api.Message(err, MsgOrderFailed)
		if errors.Is(err, api.ErrNotFound) {
			msg = MsgOrderNotFound
		}
		d.state = Errored[*invoice.Record](msg)
		d.logger.Warn("failed to load order", "sales_order_id", id, "error", err)
		return nil, err
	}

	d.state = Loaded(rec, "")
	return rec, nil
}

// Close returns to the closed state and drops any record or error. A fetch
// still in flight is discarded when it lands.
func (d *OrderDetail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.id = 0
	d.state = Idle[*invoice.Record]()
}
