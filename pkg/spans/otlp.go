// OTLP JSON ingestion for lines carrying a full resourceSpans export
package spans

import (
	"encoding/hex"
	"fmt"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// parseOTLPLine decodes one OTLP ExportTraceServiceRequest JSON object into
// records. Resource attributes are attached to every span of the resource.
func parseOTLPLine(line []byte) ([]Record, error) {
	var req coltracepb.ExportTraceServiceRequest
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("parsing OTLP: %w", err)
	}

	var records []Record
	for _, rs := range req.ResourceSpans {
		resourceAttrs := attrMap(rs.GetResource().GetAttributes())

		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				records = append(records, otlpRecord(span, resourceAttrs))
			}
		}
	}
	return records, nil
}

func otlpRecord(span *tracepb.Span, resourceAttrs map[string]any) Record {
	parentID := hex.EncodeToString(span.ParentSpanId)
	if isZeroID(parentID) {
		parentID = ""
	}

	kind := KindUnspecified
	if k, err := KindFromWire(int(span.Kind)); err == nil {
		kind = k
	}

	var events []string
	for _, ev := range span.Events {
		events = append(events, ev.Name)
	}

	return Record{
		Name:               span.Name,
		TraceID:            hex.EncodeToString(span.TraceId),
		SpanID:             hex.EncodeToString(span.SpanId),
		ParentSpanID:       parentID,
		Attributes:         attrMap(span.Attributes),
		ResourceAttributes: resourceAttrs,
		StartTimeUnixNano:  span.StartTimeUnixNano,
		EndTimeUnixNano:    span.EndTimeUnixNano,
		Kind:               kind,
		Events:             events,
	}
}

// attrMap flattens an OTLP attribute list into JSON-native Go values.
func attrMap(kvs []*commonpb.KeyValue) map[string]any {
	if len(kvs) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		attrs[kv.Key] = anyValue(kv.Value)
	}
	return attrs
}

func anyValue(v *commonpb.AnyValue) any {
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_ArrayValue:
		out := make([]any, 0, len(val.ArrayValue.Values))
		for _, item := range val.ArrayValue.Values {
			out = append(out, anyValue(item))
		}
		return out
	case *commonpb.AnyValue_KvlistValue:
		return attrMap(val.KvlistValue.Values)
	case *commonpb.AnyValue_BytesValue:
		return hex.EncodeToString(val.BytesValue)
	default:
		return nil
	}
}

// isZeroID checks if a hex-encoded ID is all zeros.
func isZeroID(id string) bool {
	for _, c := range id {
		if c != '0' {
			return false
		}
	}
	return len(id) > 0
}
