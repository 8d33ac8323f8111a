package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/studyplan-api/pkg/config"
)

func TestInitTracingDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(config.TracingConfig{Enabled: false}, "test", &buf)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Zero(t, buf.Len())
}

func TestSpansCarryPlanAndErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := StartSpan(context.Background(), "schedule.generate", "plan-1")
	EndSpan(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "schedule.generate", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	found := false
	for _, attr := range ended[0].Attributes() {
		if string(attr.Key) == "plan.id" && attr.Value.AsString() == "plan-1" {
			found = true
		}
	}
	assert.True(t, found)
}
