package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{
		ServiceName: "grpcguard-test",
		Enabled:     false,
	})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := tracer.Start(context.Background(), "test-span")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutEndpoint(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "grpcguard-test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, tracer.Tracer())

	_, span := tracer.Start(context.Background(), "test-span")
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want sdktrace.Sampler
	}{
		{name: "always", rate: 1.0, want: sdktrace.AlwaysSample()},
		{name: "never", rate: 0, want: sdktrace.NeverSample()},
		{name: "ratio", rate: 0.5, want: sdktrace.TraceIDRatioBased(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want.Description(), createSampler(tt.rate).Description())
		})
	}
}
