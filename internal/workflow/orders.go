package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
)

// OrdersList shows the most recent saved orders. It never patches the list
// locally; every change is a full refresh.
type OrdersList struct {
	backend Backend
	limit   int
	logger  *slog.Logger

	mu       sync.Mutex
	state    State[[]invoice.OrderSummary]
	gen      uint64
	onSelect func(ctx context.Context, id int64) error
}

// NewOrdersList creates the list view. A limit of zero or less uses
// api.DefaultOrdersLimit.
func NewOrdersList(backend Backend, limit int, logger *slog.Logger) *OrdersList {
	if limit <= 0 {
		limit = api.DefaultOrdersLimit
	}
	return &OrdersList{backend: backend, limit: limit, logger: logger}
}

// State returns the list status. A loaded state holds the summaries.
func (l *OrdersList) State() State[[]invoice.OrderSummary] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Limit is how many summaries Refresh asks for.
func (l *OrdersList) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// SetLimit changes how many summaries later refreshes ask for.
func (l *OrdersList) SetLimit(n int) {
	if n <= 0 {
		n = api.DefaultOrdersLimit
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = n
}

// Refresh fetches the list again. Only the newest refresh is applied.
func (l *OrdersList) Refresh(ctx context.Context) ([]invoice.OrderSummary, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	limit := l.limit
	l.state = Loading[[]invoice.OrderSummary](MsgLoadingOrders)
	l.mu.Unlock()

	orders, err := l.backend.ListOrders(ctx, limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("discarding superseded orders list")
		return orders, ErrSuperseded
	}
	if err != nil {
		l.state = Errored[[]invoice.OrderSummary](api.Message(err, MsgOrdersFailed))
		l.logger.Warn("failed to load orders", "error", err)
		return nil, err
	}

	msg := ""
	if len(orders) == 0 {
		msg = MsgNoOrders
	}
	l.state = Loaded(orders, msg)
	l.logger.Debug("orders loaded", "count", len(orders), "limit", limit)
	return orders, nil
}

// OnSelect registers the callback Select reports to.
func (l *OrdersList) OnSelect(fn func(ctx context.Context, id int64) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSelect = fn
}

// Select emits id to the registered callback and returns its error. The list
// itself is unchanged.
func (l *OrdersList) Select(ctx context.Context, id int64) error {
	l.mu.Lock()
	fn := l.onSelect
	l.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, id)
}

// Contains reports whether the loaded list includes id.
func (l *OrdersList) Contains(id int64) bool {
	orders, ok := l.State().Value()
	if !ok {
		return false
	}
	for _, o := range orders {
		if o.SalesOrderID == id {
			return true
		}
	}
	return false
}
