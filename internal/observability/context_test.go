package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestWithPaperID(t *testing.T) {
	ctx := context.Background()
	ctx = WithPaperID(ctx, "paper-456")

	assert.Equal(t, "paper-456", PaperIDFromContext(ctx))
}

func TestPaperIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", PaperIDFromContext(context.Background()))
}

func TestWithRequestContextFull(t *testing.T) {
	rc := RequestContext{
		RequestID: "req-1",
		PaperID:   "paper-1",
	}

	ctx := WithRequestContextFull(context.Background(), rc)

	got := RequestContextFromContext(ctx)
	assert.Equal(t, rc, got)
}

func TestWithRequestContextFull_PartialFields(t *testing.T) {
	rc := RequestContext{RequestID: "req-only"}

	ctx := WithRequestContextFull(context.Background(), rc)

	got := RequestContextFromContext(ctx)
	assert.Equal(t, "req-only", got.RequestID)
	assert.Equal(t, "", got.PaperID)
}

func TestRequestContextFromContext_Empty(t *testing.T) {
	got := RequestContextFromContext(context.Background())
	assert.Equal(t, RequestContext{}, got)
}
