// Format-independent span record consumed read-only by all validators
// Parent references are span-id strings resolved through an index, never pointers
package spans

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Kind is the OTel span kind. KindUnspecified means the input carried none.
type Kind int

const (
	KindUnspecified Kind = iota
	KindInternal
	KindServer
	KindClient
	KindProducer
	KindConsumer
)

var kindNames = map[Kind]string{
	KindInternal: "internal",
	KindServer:   "server",
	KindClient:   "client",
	KindProducer: "producer",
	KindConsumer: "consumer",
}

// ParseKind parses a span kind from its canonical name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return KindUnspecified, fmt.Errorf("unknown span kind %q, valid kinds: internal, server, client, producer, consumer", s)
}

// KindFromWire parses a span kind from its OTLP integer wire code. Code 0
// is the wire form of unspecified.
func KindFromWire(code int) (Kind, error) {
	if code < int(KindUnspecified) || code > int(KindConsumer) {
		return KindUnspecified, fmt.Errorf("invalid span kind wire code %d, valid codes: 0-5", code)
	}
	return Kind(code), nil
}

// KindFromSDK converts an OTel SDK span kind.
func KindFromSDK(k trace.SpanKind) Kind {
	switch k {
	case trace.SpanKindServer:
		return KindServer
	case trace.SpanKindClient:
		return KindClient
	case trace.SpanKindProducer:
		return KindProducer
	case trace.SpanKindConsumer:
		return KindConsumer
	case trace.SpanKindInternal:
		return KindInternal
	default:
		return KindUnspecified
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unspecified"
}

// Record is one extracted span. Records are created once per validation run
// by the extractor and must not be mutated afterwards.
type Record struct {
	Name         string
	TraceID      string
	SpanID       string
	ParentSpanID string // empty for root spans

	// Attributes holds span attributes with JSON-native value types.
	Attributes map[string]any

	// ResourceAttributes are process-wide; only the first record's copy
	// is authoritative during hermeticity checks.
	ResourceAttributes map[string]any

	// StartTimeUnixNano and EndTimeUnixNano are zero when the input
	// carried no timestamp.
	StartTimeUnixNano uint64
	EndTimeUnixNano   uint64

	Kind   Kind
	Events []string
}

// HasTimes reports whether both timestamps are present.
func (r *Record) HasTimes() bool {
	return r.StartTimeUnixNano != 0 && r.EndTimeUnixNano != 0
}

// DurationMillis returns the span duration in whole milliseconds using
// integer truncation. Rounding would flip pass/fail outcomes at boundary
// values in existing rule sets, so the lossy conversion is deliberate.
func (r *Record) DurationMillis() (int64, bool) {
	if !r.HasTimes() || r.EndTimeUnixNano < r.StartTimeUnixNano {
		return 0, false
	}
	return int64((r.EndTimeUnixNano - r.StartTimeUnixNano) / 1_000_000), true //nolint:gosec // bounded by the subtraction above
}

// StringAttr returns the named attribute when it is a string.
func (r *Record) StringAttr(key string) (string, bool) {
	v, ok := r.Attributes[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IsError reports whether the span represents an error: an otel.status_code
// attribute equal to "ERROR" (case-insensitive), or an error attribute that
// is boolean true.
func (r *Record) IsError() bool {
	if s, ok := r.StringAttr("otel.status_code"); ok && strings.EqualFold(s, "ERROR") {
		return true
	}
	if v, ok := r.Attributes["error"]; ok {
		if b, isBool := v.(bool); isBool && b {
			return true
		}
	}
	return false
}

// AttrString renders an attribute value for comparison and diagnostics.
// Strings pass through unchanged; other JSON values use their Go formatting.
func AttrString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ByID builds the span-id lookup index shared by validators. Later records
// win on duplicate ids, though ids are assumed unique within one run.
func ByID(records []Record) map[string]*Record {
	index := make(map[string]*Record, len(records))
	for i := range records {
		index[records[i].SpanID] = &records[i]
	}
	return index
}

// ByName groups records by span name, preserving extraction order within
// each group. Names may repeat.
func ByName(records []Record) map[string][]*Record {
	index := make(map[string][]*Record)
	for i := range records {
		index[records[i].Name] = append(index[records[i].Name], &records[i])
	}
	return index
}
