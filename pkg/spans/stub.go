// Adapter from OTel SDK in-memory exporter stubs to span records
// Lets in-process tests validate spans without a serialisation round trip
package spans

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// FromStubs converts spans captured with tracetest.NewInMemoryExporter into
// records. Span status is surfaced as the otel.status_code attribute, the
// convention the validators check against.
func FromStubs(stubs tracetest.SpanStubs) []Record {
	records := make([]Record, 0, len(stubs))
	for _, stub := range stubs {
		rec := Record{
			Name:       stub.Name,
			TraceID:    stub.SpanContext.TraceID().String(),
			SpanID:     stub.SpanContext.SpanID().String(),
			Attributes: kvMap(stub.Attributes),
			Kind:       KindFromSDK(stub.SpanKind),
		}

		if stub.Parent.SpanID().IsValid() {
			rec.ParentSpanID = stub.Parent.SpanID().String()
		}
		if !stub.StartTime.IsZero() {
			rec.StartTimeUnixNano = uint64(stub.StartTime.UnixNano()) //nolint:gosec // wall-clock nanos are positive
		}
		if !stub.EndTime.IsZero() {
			rec.EndTimeUnixNano = uint64(stub.EndTime.UnixNano()) //nolint:gosec // wall-clock nanos are positive
		}

		switch stub.Status.Code {
		case codes.Error:
			rec.Attributes = setAttr(rec.Attributes, "otel.status_code", "ERROR")
		case codes.Ok:
			rec.Attributes = setAttr(rec.Attributes, "otel.status_code", "OK")
		}

		if stub.Resource != nil {
			rec.ResourceAttributes = kvMap(stub.Resource.Attributes())
		}
		for _, ev := range stub.Events {
			rec.Events = append(rec.Events, ev.Name)
		}

		records = append(records, rec)
	}
	return records
}

func kvMap(kvs []attribute.KeyValue) map[string]any {
	if len(kvs) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	return attrs
}

func setAttr(attrs map[string]any, key string, value any) map[string]any {
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[key] = value
	return attrs
}
