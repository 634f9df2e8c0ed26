package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := CollectorID(ctx); ok {
		t.Fatalf("expected no collector id on empty context")
	}

	ctx = WithCollectorID(ctx, "scraper1")
	if got, ok := CollectorID(ctx); !ok || got != "scraper1" {
		t.Fatalf("CollectorID mismatch: %v %v", got, ok)
	}

	ctx = WithRunID(ctx, "run")
	if got, ok := RunID(ctx); !ok || got != "run" {
		t.Fatalf("RunID mismatch: %v %v", got, ok)
	}

	ctx = WithStep(ctx, "timeline_check")
	if got, ok := Step(ctx); !ok || got != "timeline_check" {
		t.Fatalf("Step mismatch: %v %v", got, ok)
	}

	ctx = WithRequestID(ctx, "req-1")
	if got, ok := RequestID(ctx); !ok || got != "req-1" {
		t.Fatalf("RequestID mismatch: %v %v", got, ok)
	}

	ctx = WithStep(ctx, "")
	if _, ok := Step(ctx); ok {
		t.Fatalf("expected empty step to be reported as absent")
	}
}
