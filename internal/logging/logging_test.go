package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatalf("expected a logger")
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected fallback logger to be a no-op")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	want := zap.NewExample()
	ctx := WithLogger(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Fatalf("expected stored logger to be returned")
	}
	if ctx2 := WithLogger(ctx, nil); FromContext(ctx2) != want {
		t.Fatalf("nil logger must not replace the stored one")
	}
}

func TestNewRejectsUnknownInputs(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected invalid format error")
	}
	logger, err := New("debug", "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}
