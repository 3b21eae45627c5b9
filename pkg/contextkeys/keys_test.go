package contextkeys

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey_RoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ctx := RequestID.WithValue(context.Background(), "req-1")
	ctx = RequestStart.WithValue(ctx, start)

	id, ok := RequestID.Value(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	got, ok := RequestStart.Value(ctx)
	assert.True(t, ok)
	assert.Equal(t, start, got)
}

func TestKey_Missing(t *testing.T) {
	id, ok := RequestID.Value(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)

	_, ok = Principal.Value(context.Background())
	assert.False(t, ok)
}

func TestKey_SameNameDifferentType(t *testing.T) {
	ctx := Key[string]{name: "shared"}.WithValue(context.Background(), "text")
	ctx = Key[int]{name: "shared"}.WithValue(ctx, 7)

	s, ok := Key[string]{name: "shared"}.Value(ctx)
	assert.True(t, ok)
	assert.Equal(t, "text", s)

	n, ok := Key[int]{name: "shared"}.Value(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "contactbook.request_id", RequestID.String())
}
