// Tests for the in-memory exporter adapter using real SDK spans
package spans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func captureStubs(t *testing.T, emit func(tracer trace.Tracer)) tracetest.SpanStubs {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { require.NoError(t, tp.Shutdown(context.Background())) }()

	emit(tp.Tracer("test"))
	return exporter.GetSpans()
}

func TestFromStubs_Basic(t *testing.T) {
	stubs := captureStubs(t, func(tracer trace.Tracer) {
		ctx, parent := tracer.Start(context.Background(), "app.run",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("env", "test")))
		_, child := tracer.Start(ctx, "app.step")
		child.AddEvent("worked")
		child.End()
		parent.End()
	})

	records := FromStubs(stubs)
	require.Len(t, records, 2)

	byName := ByName(records)
	require.Contains(t, byName, "app.run")
	require.Contains(t, byName, "app.step")

	parent := byName["app.run"][0]
	child := byName["app.step"][0]

	assert.Empty(t, parent.ParentSpanID)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, KindServer, parent.Kind)
	assert.Equal(t, KindInternal, child.Kind)
	assert.Equal(t, "test", parent.Attributes["env"])
	assert.Equal(t, []string{"worked"}, child.Events)
	assert.True(t, parent.HasTimes())
}

func TestFromStubs_Status(t *testing.T) {
	stubs := captureStubs(t, func(tracer trace.Tracer) {
		_, ok := tracer.Start(context.Background(), "fine")
		ok.SetStatus(codes.Ok, "")
		ok.End()

		_, bad := tracer.Start(context.Background(), "broken")
		bad.SetStatus(codes.Error, "boom")
		bad.End()

		_, unset := tracer.Start(context.Background(), "quiet")
		unset.End()
	})

	records := FromStubs(stubs)
	require.Len(t, records, 3)
	byName := ByName(records)

	assert.Equal(t, "OK", byName["fine"][0].Attributes["otel.status_code"])
	assert.Equal(t, "ERROR", byName["broken"][0].Attributes["otel.status_code"])
	assert.True(t, byName["broken"][0].IsError())
	assert.NotContains(t, byName["quiet"][0].Attributes, "otel.status_code")
}

func TestFromStubs_ResourceAttributes(t *testing.T) {
	stubs := captureStubs(t, func(tracer trace.Tracer) {
		_, span := tracer.Start(context.Background(), "app.run")
		span.End()
	})

	records := FromStubs(stubs)
	require.Len(t, records, 1)
	// The default SDK resource always carries the SDK language attribute.
	assert.Equal(t, "go", records[0].ResourceAttributes["telemetry.sdk.language"])
}

func TestFromStubs_Empty(t *testing.T) {
	records := FromStubs(nil)
	assert.Empty(t, records)
}
