package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is long enough for a multi-page upload to be extracted.
const DefaultTimeout = 5 * time.Minute

// Client is an HTTP client for the invoice extraction backend.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL requests are sent to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL re-points the client, e.g. after a config reload.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// Get performs a GET request and decodes the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decode(body, result)
}

// Post performs a POST request with JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, result)
}

// Put performs a PUT request with JSON body and decodes the response.
func (c *Client) Put(ctx context.Context, path string, body any, result any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, result)
}

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// PostMultipart uploads a file as multipart/form-data and returns the raw
// response body. The part carries its own Content-Type so the backend can tell
// images from text without guessing.
func (c *Client) PostMultipart(ctx context.Context, path string, part FilePart) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(part.Field), escapeQuotes(part.Filename)))
	h.Set("Content-Type", contentType)

	w, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := w.Write(part.Data); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any, result any) error {
	respBody, err := c.sendJSONRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decode(respBody, result)
}

func (c *Client) sendJSONRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	return c.do(ctx, method, path, bodyReader, "application/json")
}

// do sends one request and returns the body of a successful response.
// There are no retries: each call is attempted exactly once.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &TransportError{Op: "request failed", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request complete",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, &ServerError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}

	return body, nil
}

func decode(body []byte, result any) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &TransportError{Op: "failed to decode response", Err: err}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ErrorResponse matches the server's error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}
