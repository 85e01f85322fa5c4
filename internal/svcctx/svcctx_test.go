package svcctx

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/home"
)

func TestServicesRoundTrip(t *testing.T) {
	h, _ := home.New(t.TempDir())
	s := &Services{
		Client: api.NewClient("http://localhost:5000"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Home:   h,
	}
	ctx := WithServices(context.Background(), s)

	if ServicesFrom(ctx) != s {
		t.Error("expected the same services back")
	}
	if LoggerFrom(ctx) != s.Logger || HomeFrom(ctx) != h {
		t.Error("extractors returned the wrong service")
	}
	if ServicesFrom(ctx).Config != nil {
		t.Error("unset config should be nil")
	}
}

func TestExtractorsWithoutServices(t *testing.T) {
	ctx := context.Background()
	if ServicesFrom(ctx) != nil || LoggerFrom(ctx) != nil || HomeFrom(ctx) != nil {
		t.Error("expected nil services on a bare context")
	}
}
