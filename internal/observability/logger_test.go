package observability

import (
	"context"
	"testing"
)

func TestLoggerContextRoundTrip(t *testing.T) {
	scoped := NewLogger().WithField("request_id", "req-1")
	ctx := IntoContext(context.Background(), scoped)
	if got := FromContext(ctx); got != scoped {
		t.Error("expected the logger attached to the context")
	}
}

func TestFromContextFallback(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Error("expected a usable fallback logger for a bare context")
	}
}
