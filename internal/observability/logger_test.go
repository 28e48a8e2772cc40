package observability

import (
	"context"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	for _, level := range []string{"debug", "info", "WARN", " error ", ""} {
		if _, err := NewLogger(level); err != nil {
			t.Fatalf("NewLogger(%q) error = %v", level, err)
		}
	}

	if _, err := NewLogger("verbose"); err == nil {
		t.Fatal("NewLogger(verbose) expected error, got nil")
	}
}

func TestRunIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRunID(context.Background(), "run-42")
	runID, ok := RunIDFromContext(ctx)
	if !ok || runID != "run-42" {
		t.Fatalf("RunIDFromContext() = %q, %v; want run-42, true", runID, ok)
	}

	if _, ok := RunIDFromContext(context.Background()); ok {
		t.Fatal("RunIDFromContext() on empty context should report false")
	}
}

func TestWithContextLogger(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("info")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	if got := WithContextLogger(logger, context.Background()); got != logger {
		t.Fatal("logger without run id should be returned unchanged")
	}

	ctx := WithRunID(context.Background(), "run-1")
	if got := WithContextLogger(logger, ctx); got == logger {
		t.Fatal("logger with run id should be a child logger")
	}
}
