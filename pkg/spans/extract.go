// Span extraction from raw process output mixing log lines with span JSON
// Each line is independently a log line, a span object, a span array, or an OTLP export
package spans

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxInputSize is the maximum input size to prevent OOM on large captures.
const maxInputSize = 256 * 1024 * 1024 // 256 MB

// Extract parses span records out of mixed text output. Lines that are not
// JSON, or are JSON without the three string fields name, trace_id and
// span_id, are treated as ordinary log lines and ignored without error.
// A span-shaped object is always kept: a malformed optional field is
// reported to warn (may be nil) and treated as absent, never dropping the
// record from the sequence.
//
// The returned records preserve input line order. Extracting identical text
// twice yields structurally identical sequences.
func Extract(r io.Reader, warn io.Writer) ([]Record, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxInputSize/(1024*1024))
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		switch line[0] {
		case '[':
			records = appendArrayLine(records, line, lineNum, warn)
		case '{':
			records = appendObjectLine(records, line, lineNum, warn)
		default:
			// Cannot be a JSON object or array - an ordinary log line.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return records, nil
}

// ExtractString parses span records from an in-memory capture.
func ExtractString(text string, warn io.Writer) ([]Record, error) {
	return Extract(strings.NewReader(text), warn)
}

// appendObjectLine handles a line holding a single JSON object: either an
// OTLP resourceSpans export, a span-shaped object, or a log line.
func appendObjectLine(records []Record, line []byte, lineNum int, warn io.Writer) []Record {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(line, &obj); err != nil {
		return records // not JSON after all - log line
	}

	if _, ok := obj["resourceSpans"]; ok {
		otlp, err := parseOTLPLine(line)
		if err != nil {
			warnf(warn, "line %d: skipping malformed OTLP export: %v\n", lineNum, err)
			return records
		}
		return append(records, otlp...)
	}

	if !spanShaped(obj) {
		return records // valid JSON but not a span - log line
	}

	return append(records, parseCandidate(obj, lineNum, warn))
}

// appendArrayLine handles a line holding a JSON array. The array is treated
// as spans only when every element is span-shaped; otherwise the whole line
// is an ordinary log line.
func appendArrayLine(records []Record, line []byte, lineNum int, warn io.Writer) []Record {
	var elems []map[string]json.RawMessage
	if err := json.Unmarshal(line, &elems); err != nil {
		return records
	}
	for _, obj := range elems {
		if !spanShaped(obj) {
			return records
		}
	}

	for _, obj := range elems {
		records = append(records, parseCandidate(obj, lineNum, warn))
	}
	return records
}

// spanShaped reports whether the object carries string name, trace_id and
// span_id fields - the minimum for a span candidate.
func spanShaped(obj map[string]json.RawMessage) bool {
	for _, field := range []string{"name", "trace_id", "span_id"} {
		var s string
		raw, ok := obj[field]
		if !ok || json.Unmarshal(raw, &s) != nil {
			return false
		}
	}
	return true
}

// parseCandidate builds a Record from a span-shaped object. The three base
// fields are known to decode; a malformed optional field is warned and
// treated as absent so the record itself is never lost.
func parseCandidate(obj map[string]json.RawMessage, lineNum int, warn io.Writer) Record {
	var rec Record
	// Known to succeed per spanShaped.
	_ = json.Unmarshal(obj["name"], &rec.Name)
	_ = json.Unmarshal(obj["trace_id"], &rec.TraceID)
	_ = json.Unmarshal(obj["span_id"], &rec.SpanID)

	ignore := func(field string, err error) {
		warnf(warn, "line %d: span %q: ignoring malformed %s: %v\n", lineNum, rec.Name, field, err)
	}

	if raw, ok := obj["parent_span_id"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.ParentSpanID); err != nil {
			ignore("parent_span_id", err)
		}
	}

	var err error
	if rec.StartTimeUnixNano, err = parseNanoTime(obj, "start_time_unix_nano"); err != nil {
		ignore("start_time_unix_nano", err)
	}
	if rec.EndTimeUnixNano, err = parseNanoTime(obj, "end_time_unix_nano"); err != nil {
		ignore("end_time_unix_nano", err)
	}

	if raw, ok := obj["kind"]; ok && !isNull(raw) {
		if rec.Kind, err = parseFlexKind(raw); err != nil {
			ignore("kind", err)
			rec.Kind = KindUnspecified
		}
	}

	if raw, ok := obj["attributes"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.Attributes); err != nil {
			ignore("attributes", err)
			rec.Attributes = nil
		}
	}
	if raw, ok := obj["resource_attributes"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.ResourceAttributes); err != nil {
			ignore("resource_attributes", err)
			rec.ResourceAttributes = nil
		}
	}

	if raw, ok := obj["events"]; ok && !isNull(raw) {
		if rec.Events, err = parseFlexEvents(raw); err != nil {
			ignore("events", err)
			rec.Events = nil
		}
	}

	return rec
}

// parseNanoTime accepts either a native unsigned integer or a string-encoded
// one, matching both SDK stdout exporters and OTLP JSON conventions.
func parseNanoTime(obj map[string]json.RawMessage, field string) (uint64, error) {
	raw, ok := obj[field]
	if !ok || isNull(raw) {
		return 0, nil
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not an unsigned integer or string")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// parseFlexKind accepts the canonical kind name or the integer wire code.
func parseFlexKind(raw json.RawMessage) (Kind, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseKind(s)
	}
	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return KindUnspecified, fmt.Errorf("not a string or integer")
	}
	return KindFromWire(code)
}

// parseFlexEvents accepts an array of plain names or of objects exposing a
// name field. Elements in neither form are dropped.
func parseFlexEvents(raw json.RawMessage) ([]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("not an array")
	}

	var events []string
	for _, elem := range elems {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			events = append(events, s)
			continue
		}
		var obj struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(elem, &obj); err == nil && obj.Name != nil {
			events = append(events, *obj.Name)
		}
	}
	return events, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func warnf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}
