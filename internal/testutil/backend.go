package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
)

// Route patterns served by Backend. They double as keys for Fail and Hook.
const (
	RouteExtract     = "POST /api/extract"
	RouteListOrders  = "GET /api/orders"
	RouteSaveOrder   = "POST /api/orders"
	RouteGetOrder    = "GET /api/orders/{id}"
	RouteUpdateOrder = "PUT /api/orders/{id}"
	RouteSnapshot    = "GET /api/db_snapshot"
	RouteHealth      = "GET /health"
)

// TestingT is the subset of testing.T the backend needs.
type TestingT interface {
	Cleanup(func())
	Helper()
}

// Upload is what the backend saw for one extraction request.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Size        int
}

type failure struct {
	status  int
	message string
}

type order struct {
	header   map[string]any
	document map[string]any
	details  []map[string]any
}

// Backend is an in-memory extraction and orders service on an httptest server.
// Saved orders echo numbers back as JSON numbers, the way the real service does.
type Backend struct {
	*httptest.Server

	mu           sync.Mutex
	orders       map[int64]*order
	nextID       int64
	nextDetailID int64
	extract      any
	uploads      []Upload
	failures     map[string]failure
	hooks        map[string]func(*http.Request)
	missing404   bool
	calls        map[string]int
}

// NewBackend starts a fake backend and closes it when the test ends.
func NewBackend(t TestingT) *Backend {
	t.Helper()

	b := &Backend{
		orders:       make(map[int64]*order),
		nextID:       1,
		nextDetailID: 1,
		failures:     make(map[string]failure),
		hooks:        make(map[string]func(*http.Request)),
		calls:        make(map[string]int),
		extract: map[string]any{
			"document": map[string]any{"VendorName": "Acme"},
			"header":   map[string]any{},
			"details":  []any{},
			"meta":     map[string]any{"processing_ms": 12},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RouteExtract, b.wrap(RouteExtract, b.handleExtract))
	mux.HandleFunc(RouteListOrders, b.wrap(RouteListOrders, b.handleList))
	mux.HandleFunc(RouteSaveOrder, b.wrap(RouteSaveOrder, b.handleSave))
	mux.HandleFunc(RouteGetOrder, b.wrap(RouteGetOrder, b.handleGet))
	mux.HandleFunc(RouteUpdateOrder, b.wrap(RouteUpdateOrder, b.handleUpdate))
	mux.HandleFunc(RouteSnapshot, b.wrap(RouteSnapshot, b.handleSnapshot))
	mux.HandleFunc(RouteHealth, b.wrap(RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// SetExtractResponse sets the body returned by the extraction endpoint.
func (b *Backend) SetExtractResponse(body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extract = body
}

// SetNextID sets the SalesOrderID the next saved order receives.
func (b *Backend) SetNextID(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID = id
}

// MissingAs404 makes unknown order ids answer 404 instead of a null header.
func (b *Backend) MissingAs404(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.missing404 = v
}

// Fail makes every request to route answer status with {"error": message}.
// An empty message sends an empty body.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Recover undoes Fail for route.
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Hook runs fn at the start of every request to route, before any failure or
// handler. Tests use it to hold a request open.
func (b *Backend) Hook(route string, fn func(*http.Request)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		delete(b.hooks, route)
		return
	}
	b.hooks[route] = fn
}

// Uploads returns the extraction uploads received so far.
func (b *Backend) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}

// Calls returns how many requests reached route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// OrderIDs returns the stored order ids in ascending order.
func (b *Backend) OrderIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedIDsLocked(false)
}

func (b *Backend) wrap(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		hook := b.hooks[route]
		b.mu.Unlock()

		if hook != nil {
			hook(r)
		}

		b.mu.Lock()
		f, failing := b.failures[route]
		b.mu.Unlock()
		if failing {
			if f.message == "" {
				w.WriteHeader(f.status)
				return
			}
			writeJSON(w, f.status, map[string]string{"error": f.message})
			return
		}
		h(w, r)
	}
}

func (b *Backend) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	b.mu.Lock()
	b.uploads = append(b.uploads, Upload{
		Field:       "file",
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        len(data),
	})
	body := b.extract
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

type payload struct {
	Document map[string]any   `json:"document"`
	Header   map[string]any   `json:"header"`
	Details  []map[string]any `json:"details"`
}

func (b *Backend) handleSave(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	b.mu.Lock()
	id := headerID(p.Header)
	if id == 0 {
		id = b.nextID
	}
	if id >= b.nextID {
		b.nextID = id + 1
	}
	b.storeLocked(id, p)
	resp := b.recordLocked(id)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, resp)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	b.mu.Lock()
	b.storeLocked(id, p)
	resp := b.recordLocked(id)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	_, found := b.orders[id]
	missing404 := b.missing404
	resp := b.recordLocked(id)
	b.mu.Unlock()

	if !found && missing404 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 15
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	b.mu.Lock()
	ids := b.sortedIDsLocked(true)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		o := b.orders[id]
		row := make(map[string]any, len(o.header)+2)
		for k, v := range o.header {
			row[k] = v
		}
		row["InvoiceNumber"] = o.document["InvoiceNumber"]
		row["VendorName"] = o.document["VendorName"]
		rows = append(rows, row)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	b.mu.Lock()
	snap := map[string][]map[string]any{
		"headers":   {},
		"details":   {},
		"documents": {},
	}
	for _, id := range b.sortedIDsLocked(true) {
		o := b.orders[id]
		if len(snap["headers"]) < limit {
			snap["headers"] = append(snap["headers"], o.header)
		}
		if len(snap["documents"]) < limit && len(o.document) > 0 {
			snap["documents"] = append(snap["documents"], o.document)
		}
		for _, d := range o.details {
			if len(snap["details"]) < limit {
				snap["details"] = append(snap["details"], d)
			}
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, snap)
}

func (b *Backend) storeLocked(id int64, p payload) {
	header := copyMap(p.Header)
	header["SalesOrderID"] = id

	var document map[string]any
	if len(p.Document) > 0 {
		document = copyMap(p.Document)
		document["SalesOrderID"] = id
	}

	details := make([]map[string]any, 0, len(p.Details))
	for _, d := range p.Details {
		row := copyMap(d)
		row["SalesOrderID"] = id
		row["SalesOrderDetailID"] = b.nextDetailID
		b.nextDetailID++
		details = append(details, row)
	}

	b.orders[id] = &order{header: header, document: document, details: details}
}

// recordLocked renders an order the way the service does: a missing order
// has null header and document.
func (b *Backend) recordLocked(id int64) map[string]any {
	o, ok := b.orders[id]
	if !ok {
		return map[string]any{"header": nil, "document": nil, "details": []any{}}
	}
	details := make([]map[string]any, len(o.details))
	copy(details, o.details)
	var document any
	if o.document != nil {
		document = o.document
	}
	return map[string]any{"header": o.header, "document": document, "details": details}
}

func (b *Backend) sortedIDsLocked(desc bool) []int64 {
	ids := make([]int64, 0, len(b.orders))
	for id := range b.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if desc {
			return ids[i] > ids[j]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func headerID(header map[string]any) int64 {
	switch v := header["SalesOrderID"].(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	}
	return 0
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
