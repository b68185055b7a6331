// Tests for the span record model and its lookup indexes
package spans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{
		"internal": KindInternal,
		"server":   KindServer,
		"CLIENT":   KindClient,
		"Producer": KindProducer,
		"consumer": KindConsumer,
	} {
		k, err := ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, k, input)
	}

	_, err := ParseKind("spaceship")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spaceship")
}

func TestKindFromWire(t *testing.T) {
	k, err := KindFromWire(2)
	require.NoError(t, err)
	assert.Equal(t, KindServer, k)

	k, err = KindFromWire(0)
	require.NoError(t, err)
	assert.Equal(t, KindUnspecified, k)

	for _, code := range []int{-1, 6, 99} {
		_, err := KindFromWire(code)
		assert.Error(t, err, "code %d", code)
	}
}

func TestKindFromSDK(t *testing.T) {
	assert.Equal(t, KindServer, KindFromSDK(trace.SpanKindServer))
	assert.Equal(t, KindInternal, KindFromSDK(trace.SpanKindInternal))
	assert.Equal(t, KindUnspecified, KindFromSDK(trace.SpanKindUnspecified))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "client", KindClient.String())
	assert.Equal(t, "unspecified", KindUnspecified.String())
	assert.Equal(t, "unspecified", Kind(42).String())
}

func TestRecordDurationMillis(t *testing.T) {
	t.Run("truncates sub-millisecond remainders", func(t *testing.T) {
		rec := Record{StartTimeUnixNano: 1_000_000, EndTimeUnixNano: 3_900_000}
		ms, ok := rec.DurationMillis()
		require.True(t, ok)
		assert.Equal(t, int64(2), ms)
	})

	t.Run("missing timestamps", func(t *testing.T) {
		rec := Record{StartTimeUnixNano: 1_000_000}
		_, ok := rec.DurationMillis()
		assert.False(t, ok)
	})

	t.Run("end before start", func(t *testing.T) {
		rec := Record{StartTimeUnixNano: 5_000_000, EndTimeUnixNano: 1_000_000}
		_, ok := rec.DurationMillis()
		assert.False(t, ok)
	})
}

func TestRecordIsError(t *testing.T) {
	assert.True(t, (&Record{Attributes: map[string]any{"otel.status_code": "ERROR"}}).IsError())
	assert.True(t, (&Record{Attributes: map[string]any{"otel.status_code": "error"}}).IsError())
	assert.True(t, (&Record{Attributes: map[string]any{"error": true}}).IsError())
	assert.False(t, (&Record{Attributes: map[string]any{"error": false}}).IsError())
	assert.False(t, (&Record{Attributes: map[string]any{"error": "true"}}).IsError())
	assert.False(t, (&Record{Attributes: map[string]any{"otel.status_code": "OK"}}).IsError())
	assert.False(t, (&Record{}).IsError())
}

func TestRecordStringAttr(t *testing.T) {
	rec := Record{Attributes: map[string]any{"s": "v", "n": 3.0}}

	v, ok := rec.StringAttr("s")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = rec.StringAttr("n")
	assert.False(t, ok)
	_, ok = rec.StringAttr("missing")
	assert.False(t, ok)
}

func TestAttrString(t *testing.T) {
	assert.Equal(t, "v", AttrString("v"))
	assert.Equal(t, "2", AttrString(float64(2)))
	assert.Equal(t, "true", AttrString(true))
}

func TestByID(t *testing.T) {
	records := []Record{
		{Name: "root", SpanID: "a"},
		{Name: "child", SpanID: "b", ParentSpanID: "a"},
	}
	index := ByID(records)
	require.Len(t, index, 2)
	assert.Equal(t, "root", index["a"].Name)
	assert.Equal(t, "child", index["b"].Name)
}

func TestByName(t *testing.T) {
	records := []Record{
		{Name: "step", SpanID: "a"},
		{Name: "step", SpanID: "b"},
		{Name: "other", SpanID: "c"},
	}
	index := ByName(records)
	require.Len(t, index, 2)
	require.Len(t, index["step"], 2)
	assert.Equal(t, "a", index["step"][0].SpanID)
	assert.Equal(t, "b", index["step"][1].SpanID)
}
