package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
)

// File is a document picked by the user, not yet checked.
type File struct {
	Name string
	Data []byte
}

// Preparer turns a picked file into an upload, or rejects it.
type Preparer interface {
	Prepare(name string, data []byte) (api.Upload, error)
}

// Upload holds the picked file and runs extraction.
type Upload struct {
	backend Backend
	prep    Preparer
	logger  *slog.Logger

	mu    sync.Mutex
	file  *File
	state State[*invoice.ExtractResult]
	gen   uint64
}

// NewUpload creates the upload view.
func NewUpload(backend Backend, prep Preparer, logger *slog.Logger) *Upload {
	return &Upload{backend: backend, prep: prep, logger: logger}
}

// SetFile replaces the pending file. A nil file clears it.
func (u *Upload) SetFile(f *File) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.file = f
}

// FileName returns the pending file's name, or "" when none is picked.
func (u *Upload) FileName() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.file == nil {
		return ""
	}
	return u.file.Name
}

// State returns the current extraction status.
func (u *Upload) State() State[*invoice.ExtractResult] {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Extract sends the pending file to the extraction service. Without a file,
// or when the file fails preflight, no request is made. A failed request
// leaves everything but the status untouched. Every call supersedes any
// extraction still in flight, including calls that never reach the server.
func (u *Upload) Extract(ctx context.Context) (*invoice.ExtractResult, error) {
	u.mu.Lock()
	u.gen++
	gen := u.gen
	if u.file == nil {
		u.state = Errored[*invoice.ExtractResult](MsgPickFile)
		u.mu.Unlock()
		return nil, ErrNoFile
	}
	file := *u.file
	u.state = Loading[*invoice.ExtractResult](MsgExtracting)
	u.mu.Unlock()

	up, err := u.prep.Prepare(file.Name, file.Data)
	if err != nil {
		u.mu.Lock()
		defer u.mu.Unlock()
		if gen != u.gen {
			return nil, fmt.Errorf("preflight %s: %w", file.Name, ErrSuperseded)
		}
		u.state = Errored[*invoice.ExtractResult](err.Error())
		return nil, fmt.Errorf("preflight %s: %w", file.Name, err)
	}

	u.logger.Info("extracting", "file", up.Filename, "content_type", up.ContentType, "bytes", len(up.Data))
	result, err := u.backend.Extract(ctx, up)

	u.mu.Lock()
	defer u.mu.Unlock()
	if gen != u.gen {
		u.logger.Debug("discarding superseded extraction", "file", up.Filename)
		return result, ErrSuperseded
	}
	if err != nil {
		u.state = Errored[*invoice.ExtractResult](api.Message(err, MsgExtractFailed))
		u.logger.Warn("extraction failed", "file", up.Filename, "error", err)
		return nil, err
	}

	u.state = Loaded(result, extractedMessage(result.Meta.ProcessingMS))
	u.logger.Info("extraction complete", "file", up.Filename, "processing_ms", result.Meta.ProcessingMS)
	return result, nil
}

func extractedMessage(ms int64) string {
	if ms <= 0 {
		return "Extraction complete"
	}
	return fmt.Sprintf("Extraction complete %dms", ms)
}

// isSuperseded reports whether err only says the response arrived too late.
func isSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
