package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTracerProvider_DisabledIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), TracingConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerProvider_NilIsSafe(t *testing.T) {
	var tp *TracerProvider

	assert.NotNil(t, tp.Provider())
	assert.NotPanics(t, func() {
		_, span := tp.Tracer("test").Start(context.Background(), "op")
		span.End()
	})
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerProvider_EnabledRecordsSampledSpans(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "mealplanner-test",
		Endpoint:    "http://127.0.0.1:4318",
		SampleRatio: 1,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}
