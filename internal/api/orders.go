package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/atlasextract/atlas/internal/invoice"
)

// Backend paths.
const (
	PathExtract  = "/api/extract"
	PathOrders   = "/api/orders"
	PathSnapshot = "/api/db_snapshot"
	PathHealth   = "/health"
)

// DefaultOrdersLimit is how many summaries the orders list asks for.
const DefaultOrdersLimit = 25

// Upload is a file ready to send to the extraction endpoint.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extract uploads a document and returns the structured fields the
// extraction service found. Nothing is persisted.
func (c *Client) Extract(ctx context.Context, up Upload) (*invoice.ExtractResult, error) {
	body, err := c.PostMultipart(ctx, PathExtract, FilePart{
		Field:       "file",
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Data:        up.Data,
	})
	if err != nil {
		return nil, err
	}

	var result invoice.ExtractResult
	if err := decodeRecord(body, &result); err != nil {
		return nil, err
	}
	result.Normalize()
	return &result, nil
}

// SaveOrder persists a record as a new order and returns the stored version,
// which carries the generated header.SalesOrderID.
func (c *Client) SaveOrder(ctx context.Context, rec invoice.Record) (*invoice.Record, error) {
	body, err := c.sendJSONRaw(ctx, http.MethodPost, PathOrders, newSaveBody(rec))
	if err != nil {
		return nil, err
	}
	return c.persisted(body)
}

// UpdateOrder replaces an existing order's header, document and details.
func (c *Client) UpdateOrder(ctx context.Context, id int64, rec invoice.Record) (*invoice.Record, error) {
	body, err := c.sendJSONRaw(ctx, http.MethodPut, orderPath(id), newSaveBody(rec))
	if err != nil {
		return nil, err
	}
	return c.persisted(body)
}

// ListOrders returns the most recent order summaries, newest first.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]invoice.OrderSummary, error) {
	if limit <= 0 {
		limit = DefaultOrdersLimit
	}
	var orders []invoice.OrderSummary
	if err := c.Get(ctx, PathOrders+"?limit="+strconv.Itoa(limit), &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []invoice.OrderSummary{}
	}
	return orders, nil
}

// GetOrder fetches one persisted order. A missing order is reported as
// ErrNotFound whether the backend answers 404 or an empty header.
func (c *Client) GetOrder(ctx context.Context, id int64) (*invoice.Record, error) {
	body, err := c.do(ctx, http.MethodGet, orderPath(id), nil, "")
	if err != nil {
		return nil, err
	}

	var rec invoice.Record
	if err := decodeRecord(body, &rec); err != nil {
		return nil, err
	}
	if rec.Header == nil {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	rec.Normalize()
	return &rec, nil
}

// Snapshot returns the latest raw rows of each backend table.
func (c *Client) Snapshot(ctx context.Context, limit int) (*invoice.Snapshot, error) {
	path := PathSnapshot
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var snap invoice.Snapshot
	if err := c.Get(ctx, path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// HealthResponse is the backend's health payload.
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.Get(ctx, PathHealth, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitHealthy polls the health endpoint once per interval until it answers
// or the timeout elapses.
func (c *Client) WaitHealthy(ctx context.Context, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	attempts := uint(timeout / interval)
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			_, err := c.Health(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("backend not ready", "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) persisted(body []byte) (*invoice.Record, error) {
	var rec invoice.Record
	if err := decodeRecord(body, &rec); err != nil {
		return nil, err
	}
	rec.Normalize()
	return &rec, nil
}

// decodeRecord validates the response shape before decoding it.
func decodeRecord(body []byte, out any) error {
	if err := invoice.ValidateRecordJSON(body); err != nil {
		return &TransportError{Op: "unexpected response", Err: err}
	}
	return decode(body, out)
}

func orderPath(id int64) string {
	return PathOrders + "/" + strconv.FormatInt(id, 10)
}

// saveBody is the persistence payload: exactly document, header and details.
type saveBody struct {
	Document invoice.Fields     `json:"document"`
	Header   invoice.Fields     `json:"header"`
	Details  []invoice.LineItem `json:"details"`
}

func newSaveBody(rec invoice.Record) saveBody {
	rec.Normalize()
	return saveBody{Document: rec.Document, Header: rec.Header, Details: rec.Details}
}
