// Package preflight checks and normalizes a document before it is uploaded
// for extraction.
package preflight

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	atlasapi "github.com/atlasextract/atlas/internal/api"
)

// Defaults for Options.
const (
	DefaultMaxImageDimension = 2400
	DefaultMaxBytes          = 20 << 20
)

// AllowedExtensions are the file types the extraction service understands.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".pdf", ".txt", ".md", ".csv"}

// Sentinel errors. All of them mean no request should be sent.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrContentMismatch = errors.New("file content does not match its extension")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnreadablePDF   = errors.New("pdf could not be read")
)

// Options controls preflight limits.
type Options struct {
	// MaxImageDimension is the longest side an image is downscaled to.
	// Zero uses DefaultMaxImageDimension; negative disables downscaling.
	MaxImageDimension int
	// MaxBytes is the largest upload accepted after downscaling.
	// Zero uses DefaultMaxBytes.
	MaxBytes int64
	Logger   *slog.Logger
}

// Checker validates files and turns them into uploads.
type Checker struct {
	maxDim   int
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Checker.
func New(opts Options) *Checker {
	c := &Checker{
		maxDim:   opts.MaxImageDimension,
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger,
	}
	if c.maxDim == 0 {
		c.maxDim = DefaultMaxImageDimension
	}
	if c.maxBytes <= 0 {
		c.maxBytes = DefaultMaxBytes
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Open reads a file from disk and prepares it.
func (c *Checker) Open(path string) (atlasapi.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return atlasapi.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.Prepare(filepath.Base(path), data)
}

// Prepare validates name and data and returns the upload to send. The content
// type comes from the bytes, not the name; images larger than the configured
// dimension are downscaled and re-encoded in the format the name implies.
func (c *Checker) Prepare(name string, data []byte) (atlasapi.Upload, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(AllowedExtensions, ext) {
		return atlasapi.Upload{}, fmt.Errorf("%w: %q (allowed: %s)",
			ErrUnsupportedType, ext, strings.Join(AllowedExtensions, " "))
	}
	if len(data) == 0 {
		return atlasapi.Upload{}, ErrEmptyFile
	}

	mtype := mimetype.Detect(data)
	up := atlasapi.Upload{Filename: name, ContentType: mtype.String(), Data: data}

	switch ext {
	case ".png", ".jpg", ".jpeg":
		if !mtype.Is("image/png") && !mtype.Is("image/jpeg") {
			return atlasapi.Upload{}, fmt.Errorf("%w: %s is %s", ErrContentMismatch, name, mtype.String())
		}
		resized, err := c.downscale(name, data)
		if err != nil {
			return atlasapi.Upload{}, err
		}
		up.Data = resized
		up.ContentType = mimetype.Detect(resized).String()
	case ".pdf":
		if !mtype.Is("application/pdf") {
			return atlasapi.Upload{}, fmt.Errorf("%w: %s is %s", ErrContentMismatch, name, mtype.String())
		}
		pages, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return atlasapi.Upload{}, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
		}
		if pages < 1 {
			return atlasapi.Upload{}, fmt.Errorf("%w: no pages", ErrUnreadablePDF)
		}
		c.logger.Debug("pdf preflight", "file", name, "pages", pages)
	default:
		if !isText(mtype) {
			return atlasapi.Upload{}, fmt.Errorf("%w: %s is %s", ErrContentMismatch, name, mtype.String())
		}
	}

	if int64(len(up.Data)) > c.maxBytes {
		return atlasapi.Upload{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(up.Data), c.maxBytes)
	}
	return up, nil
}

// downscale shrinks an image whose longest side exceeds maxDim. Images that
// already fit are returned byte for byte.
func (c *Checker) downscale(name string, data []byte) ([]byte, error) {
	if c.maxDim < 0 {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentMismatch, err)
	}
	if cfg.Width <= c.maxDim && cfg.Height <= c.maxDim {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = imaging.Fit(img, c.maxDim, c.maxDim, imaging.Lanczos)

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	c.logger.Debug("image downscaled",
		"file", name,
		"from", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"to", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"bytes", buf.Len())
	return buf.Bytes(), nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
