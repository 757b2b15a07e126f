package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_SpansCarryIDsIntoLogger(t *testing.T) {
	shutdown, err := InitTracer("test-service", "http://127.0.0.1:1/api/traces")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	sc := trace.SpanFromContext(ctx).SpanContext()
	assert.True(t, sc.IsValid())
	assert.NotNil(t, GetLogger(ctx))
}
