package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"error message", http.StatusBadRequest, `{"error":"duplicate invoice"}`, 400, "duplicate invoice"},
		{"empty body", http.StatusInternalServerError, ``, 500, ""},
		{"non-json body", http.StatusBadGateway, `<html>bad gateway</html>`, 502, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Get(context.Background(), "/x", nil)
			var serverErr *ServerError
			if !errors.As(err, &serverErr) {
				t.Fatalf("expected ServerError, got %T: %v", err, err)
			}
			if serverErr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, serverErr.StatusCode)
			}
			if serverErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, serverErr.Message)
			}
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		err := NewClient(url).Get(context.Background(), "/health", nil)
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %T: %v", err, err)
		}
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}))
		defer srv.Close()

		var out map[string]any
		err := NewClient(srv.URL).Get(context.Background(), "/x", &out)
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %T: %v", err, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Get(context.Background(), "/slow", nil)
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %T: %v", err, err)
		}
	})
}

func TestClient_Headers(t *testing.T) {
	var gotRequestID, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAccept = r.Header.Get("Accept")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL+"/").Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRequestID == "" {
		t.Error("expected X-Request-ID header")
	}
	if gotAccept != "application/json" {
		t.Errorf("expected Accept application/json, got %q", gotAccept)
	}
}

func TestClient_SetBaseURL(t *testing.T) {
	c := NewClient("http://one.example/")
	if c.BaseURL() != "http://one.example" {
		t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL())
	}
	c.SetBaseURL("http://two.example/")
	if c.BaseURL() != "http://two.example" {
		t.Errorf("expected http://two.example, got %s", c.BaseURL())
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"server message", &ServerError{StatusCode: 400, Message: "duplicate invoice"}, "duplicate invoice"},
		{"server without message", &ServerError{StatusCode: 500}, "Save failed."},
		{"transport", &TransportError{Op: "request failed", Err: errors.New("connection refused")}, "Save failed. (connection refused)"},
		{"validation", errors.New("pick a file"), "pick a file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err, "Save failed."); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestServerError_IsNotFound(t *testing.T) {
	if !errors.Is(&ServerError{StatusCode: 404}, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if errors.Is(&ServerError{StatusCode: 500}, ErrNotFound) {
		t.Error("500 should not match ErrNotFound")
	}
}

type textValue struct{ Name string }

func (v textValue) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, "name: "+v.Name+"\n")
	return err
}

func TestOutputTo(t *testing.T) {
	tests := []struct {
		format OutputFormat
		data   any
		want   string
	}{
		{OutputFormatText, textValue{Name: "acme"}, "name: acme\n"},
		{OutputFormatJSON, map[string]int{"n": 1}, "{\n  \"n\": 1\n}\n"},
		{OutputFormatYAML, map[string]int{"count": 1}, "count: 1\n"},
		{OutputFormatText, map[string]int{"count": 1}, "count: 1\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf strings.Builder
			if err := OutputTo(&buf, tt.format, tt.data); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat(""); err != nil || f != DefaultOutput {
		t.Errorf("expected default format, got %q, %v", f, err)
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
