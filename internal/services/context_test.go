package services_test

import (
	"context"
	"testing"

	"huddle/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithReference(ctx, "20261018T153045.000000001Z")
	ctx = services.WithCapability(ctx, "summarizer")
	ctx = services.WithRequestID(ctx, "req-123")

	if ref, ok := services.ReferenceFromContext(ctx); !ok || ref != "20261018T153045.000000001Z" {
		t.Fatalf("unexpected reference: %v %v", ref, ok)
	}
	if capability, ok := services.CapabilityFromContext(ctx); !ok || capability != "summarizer" {
		t.Fatalf("unexpected capability: %v %v", capability, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestCapabilityBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCapability(ctx, "")
	if _, ok := services.CapabilityFromContext(ctx); ok {
		t.Fatal("expected no capability value")
	}
}
