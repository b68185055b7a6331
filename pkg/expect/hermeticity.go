// Hermeticity validation: external calls, resource attributes, forbidden keys
// Three independent checks, each producing structured violations
package expect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spanproof/spanproof/pkg/spans"
)

// ViolationKind discriminates the three hermeticity violation shapes.
type ViolationKind string

const (
	ViolationExternalService    ViolationKind = "external_service"
	ViolationResourceMismatch   ViolationKind = "resource_mismatch"
	ViolationForbiddenAttribute ViolationKind = "forbidden_attribute"
)

// Violation is one structured hermeticity finding. Span and Value are set
// for external-service and forbidden-attribute violations; Expected and
// Actual for resource mismatches.
type Violation struct {
	Kind     ViolationKind
	Span     string
	Key      string
	Value    string
	Expected string
	Actual   string
}

// externalIndicators are attribute keys whose presence marks a span as
// talking to another service.
var externalIndicators = []string{
	"net.peer.name",
	"net.peer.ip",
	"http.url",
	"db.connection_string",
	"rpc.service",
}

// HermeticityExpectation checks that a run stayed isolated.
type HermeticityExpectation struct {
	// NoExternalServices flags spans whose service indicators point
	// outside the internal-address heuristic.
	NoExternalServices bool `yaml:"no_external_services,omitempty"`

	// ResourceAttrsMustMatch compares required keys against the resource
	// attributes of the first span only; they are process-wide.
	ResourceAttrsMustMatch map[string]string `yaml:"resource_attrs_must_match,omitempty"`

	// SpanAttrsForbidKeys flags any span carrying any listed attribute
	// key, regardless of value.
	SpanAttrsForbidKeys []string `yaml:"span_attrs_forbid_keys,omitempty"`
}

// Validate runs the three checks fully and independently.
func (e *HermeticityExpectation) Validate(records []spans.Record) (HermeticityResult, error) {
	result := HermeticityResult{Outcome: passOutcome()}

	if e.NoExternalServices {
		e.checkExternalServices(&result, records)
	}
	if len(e.ResourceAttrsMustMatch) > 0 {
		e.checkResourceAttrs(&result, records)
	}
	if len(e.SpanAttrsForbidKeys) > 0 {
		e.checkForbiddenAttrs(&result, records)
	}

	return result, nil
}

func (e *HermeticityExpectation) checkExternalServices(result *HermeticityResult, records []spans.Record) {
	for i := range records {
		span := &records[i]
		for _, indicator := range externalIndicators {
			value, ok := span.StringAttr(indicator)
			if !ok || isInternalAddress(value) {
				continue
			}
			result.Violations = append(result.Violations, Violation{
				Kind:  ViolationExternalService,
				Span:  span.Name,
				Key:   indicator,
				Value: value,
			})
			result.fail(RuleError{
				Rule:           "no_external_services",
				Expected:       "only internal or loopback addresses",
				Actual:         fmt.Sprintf("span %q has %s=%q", span.Name, indicator, value),
				Recommendation: "the run reached an external service; point it at a locally controlled endpoint",
			})
		}
	}
}

func (e *HermeticityExpectation) checkResourceAttrs(result *HermeticityResult, records []spans.Record) {
	// Resource attributes are process-wide; the first span's copy is
	// authoritative. With no spans at all every required key is missing.
	var resourceAttrs map[string]any
	if len(records) > 0 {
		resourceAttrs = records[0].ResourceAttributes
	}

	keys := make([]string, 0, len(e.ResourceAttrsMustMatch))
	for key := range e.ResourceAttrsMustMatch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := e.ResourceAttrsMustMatch[key]

		value, ok := resourceAttrs[key]
		actual, isString := "", false
		if ok {
			actual, isString = value.(string)
		}

		if ok && isString && actual == want {
			continue
		}

		violation := Violation{
			Kind:     ViolationResourceMismatch,
			Key:      key,
			Expected: want,
		}
		actualText := fmt.Sprintf("resource attribute %q is absent", key)
		if ok {
			violation.Actual = spans.AttrString(value)
			actualText = fmt.Sprintf("resource attribute %q is %q", key, violation.Actual)
		}
		result.Violations = append(result.Violations, violation)
		result.fail(RuleError{
			Rule:           fmt.Sprintf("resource_attrs_must_match %q", key),
			Expected:       fmt.Sprintf("%s=%s", key, want),
			Actual:         actualText,
			Recommendation: "configure the telemetry resource so the run identifies itself as expected",
		})
	}
}

func (e *HermeticityExpectation) checkForbiddenAttrs(result *HermeticityResult, records []spans.Record) {
	for i := range records {
		span := &records[i]
		for _, key := range e.SpanAttrsForbidKeys {
			value, ok := span.Attributes[key]
			if !ok {
				continue
			}
			result.Violations = append(result.Violations, Violation{
				Kind:  ViolationForbiddenAttribute,
				Span:  span.Name,
				Key:   key,
				Value: spans.AttrString(value),
			})
			result.fail(RuleError{
				Rule:           fmt.Sprintf("span_attrs_forbid_keys %q", key),
				Expected:       fmt.Sprintf("no span carrying attribute %q", key),
				Actual:         fmt.Sprintf("span %q carries it", span.Name),
				Recommendation: "remove the instrumentation that records this attribute or isolate the operation",
			})
		}
	}
}

// isInternalAddress applies the internal-address heuristic: loopback forms
// by substring, or names prefixed internal/local (case-insensitive).
func isInternalAddress(addr string) bool {
	lower := strings.ToLower(addr)
	for _, loopback := range []string{"localhost", "127.0.0.1", "0.0.0.0", "::1"} {
		if strings.Contains(lower, loopback) {
			return true
		}
	}
	return strings.HasPrefix(lower, "internal") || strings.HasPrefix(lower, "local")
}
