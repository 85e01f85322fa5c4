package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
)

// Editor owns the working record between extraction and save. Every mutation
// copies the affected section or line list, so earlier snapshots returned by
// Record never change.
type Editor struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	record   *invoice.Record
	visible  bool
	revision uint64
	saving   bool
	status   State[int64]
}

// NewEditor creates an empty, hidden editor.
func NewEditor(backend Backend, logger *slog.Logger) *Editor {
	return &Editor{backend: backend, logger: logger}
}

// Load replaces the working record wholesale and reveals the editor. A save
// still in flight will not overwrite it.
func (e *Editor) Load(rec invoice.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec = rec.Clone()
	rec.Normalize()
	e.record = &rec
	e.visible = true
	e.revision++
}

// Record returns a copy of the working record, if there is one.
func (e *Editor) Record() (invoice.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return invoice.Record{}, false
	}
	return e.record.Clone(), true
}

// Visible reports whether the editor has been revealed.
func (e *Editor) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}

// Status returns the save status. A loaded status holds the SalesOrderID.
func (e *Editor) Status() State[int64] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// CanSave reports whether Save would send a request.
func (e *Editor) CanSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record != nil && !e.saving
}

// UpdateField sets one document or header field. Nothing else changes.
func (e *Editor) UpdateField(section invoice.Section, key, value string) error {
	if key == "" {
		return invoice.ErrEmptyKey
	}
	if section != invoice.SectionDocument && section != invoice.SectionHeader {
		return fmt.Errorf("%w: %q", invoice.ErrUnknownSection, section)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.baseLocked()
	fields := rec.Section(section).Clone()
	if fields == nil {
		fields = invoice.Fields{}
	}
	fields[key] = value
	switch section {
	case invoice.SectionDocument:
		rec.Document = fields
	case invoice.SectionHeader:
		rec.Header = fields
	}
	e.commitLocked(rec)
	return nil
}

// UpdateLineItem sets one field of the line item at index.
func (e *Editor) UpdateLineItem(index int, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.baseLocked()
	if index < 0 || index >= len(rec.Details) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(rec.Details))
	}
	item, err := rec.Details[index].Set(key, value)
	if err != nil {
		return err
	}
	details := append([]invoice.LineItem(nil), rec.Details...)
	details[index] = item
	rec.Details = details
	e.commitLocked(rec)
	return nil
}

// AddLineItem appends an empty line item and returns its index.
func (e *Editor) AddLineItem() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.baseLocked()
	details := make([]invoice.LineItem, len(rec.Details), len(rec.Details)+1)
	copy(details, rec.Details)
	rec.Details = append(details, invoice.LineItem{})
	e.commitLocked(rec)
	return len(rec.Details) - 1
}

// RemoveLineItem deletes the line item at index. Later items shift down by one.
func (e *Editor) RemoveLineItem(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.baseLocked()
	if index < 0 || index >= len(rec.Details) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(rec.Details))
	}
	details := make([]invoice.LineItem, 0, len(rec.Details)-1)
	details = append(details, rec.Details[:index]...)
	details = append(details, rec.Details[index+1:]...)
	rec.Details = details
	e.commitLocked(rec)
	return nil
}

// Reconcile checks the working record's totals. It never changes the record.
func (e *Editor) Reconcile() (invoice.Totals, bool) {
	rec, ok := e.Record()
	if !ok {
		return invoice.Totals{}, false
	}
	return invoice.Reconcile(rec), true
}

// Save persists the working record as a new order. On success the working
// record becomes the server's copy; on failure the unsaved edits are kept.
func (e *Editor) Save(ctx context.Context) (*invoice.Record, error) {
	return e.persist("save", MsgSaving, MsgSaveFailed, func(rec invoice.Record) (*invoice.Record, error) {
		return e.backend.SaveOrder(ctx, rec)
	})
}

// Update overwrites an existing order with the working record.
func (e *Editor) Update(ctx context.Context, id int64) (*invoice.Record, error) {
	msg := fmt.Sprintf("Updating SalesOrderID %d...", id)
	return e.persist("update", msg, MsgUpdateFailed, func(rec invoice.Record) (*invoice.Record, error) {
		return e.backend.UpdateOrder(ctx, id, rec)
	})
}

func (e *Editor) persist(op, loadingMsg, fallback string, send func(invoice.Record) (*invoice.Record, error)) (*invoice.Record, error) {
	e.mu.Lock()
	if e.record == nil {
		e.mu.Unlock()
		return nil, ErrNoRecord
	}
	if e.saving {
		e.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	body := e.record.Clone()
	revision := e.revision
	e.saving = true
	e.status = Loading[int64](loadingMsg)
	e.mu.Unlock()

	saved, err := send(body)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false

	if revision != e.revision {
		e.status = Idle[int64]()
		if err != nil {
			e.logger.Debug("discarding superseded "+op+" failure", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		id, _ := saved.SalesOrderID()
		e.logger.Debug("discarding superseded "+op+" response", "sales_order_id", id)
		return saved, ErrSuperseded
	}
	if err != nil {
		e.status = Errored[int64](api.Message(err, fallback))
		e.logger.Warn(op+" failed", "error", err)
		return nil, err
	}

	id, _ := saved.SalesOrderID()

	rec := saved.Clone()
	rec.Normalize()
	e.record = &rec
	e.status = Loaded(id, savedMessage(op, id))
	e.logger.Info(op+" complete", "sales_order_id", id, "details", len(rec.Details))
	return saved, nil
}

// baseLocked returns a shallow copy of the working record to mutate, starting
// from the empty template when there is none. Callers replace the slices and
// maps they change.
func (e *Editor) baseLocked() *invoice.Record {
	var rec invoice.Record
	if e.record == nil {
		rec = invoice.EmptyRecord()
	} else {
		rec = *e.record
	}
	return &rec
}

func (e *Editor) commitLocked(rec *invoice.Record) {
	e.record = rec
	e.visible = true
}

func savedMessage(op string, id int64) string {
	verb := "Saved"
	if op == "update" {
		verb = "Updated"
	}
	if id == 0 {
		return verb + "."
	}
	return fmt.Sprintf("%s SalesOrderID %d", verb, id)
}
