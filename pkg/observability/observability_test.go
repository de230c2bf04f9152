package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecorder(t *testing.T) {
	r, err := NewRecorder("liveview/recovery", slog.Default())
	require.NoError(t, err)
	require.NotNil(t, r)

	// All recording paths must be usable without SDK wiring; the global
	// no-op providers absorb them.
	ctx := context.Background()
	r.Serialized(ctx, 3)
	r.Recovered(ctx, 3)
	r.Failure(ctx, "signature_mismatch", "pos")
	assert.NotNil(t, r.Tracer())
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder

	ctx := context.Background()
	r.Serialized(ctx, 1)
	r.Recovered(ctx, 1)
	r.Failure(ctx, "unknown_type", "k")
	assert.NotNil(t, r.Tracer())
}
