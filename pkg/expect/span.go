// Per-span shape validation: name, parent, kind, attributes, events, duration
package expect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spanproof/spanproof/pkg/spans"
)

// SpanExpectation checks the shape of every span whose name matches Name.
// Only Name is required; each other field adds an independent constraint.
type SpanExpectation struct {
	// Name is a glob pattern selecting the spans to check.
	Name string `yaml:"name"`

	// Parent is a glob pattern the resolved parent span's name must match.
	Parent string `yaml:"parent,omitempty"`

	// Kind is the exact span kind (internal, server, client, producer, consumer).
	Kind string `yaml:"kind,omitempty"`

	// AttrsAll requires every listed key present with the exact value.
	AttrsAll map[string]string `yaml:"attrs_all,omitempty"`

	// AttrsAny requires at least one key=value pattern to match.
	AttrsAny []string `yaml:"attrs_any,omitempty"`

	// EventsAny requires at least one of the named events present.
	EventsAny []string `yaml:"events_any,omitempty"`

	// DurationMinMs and DurationMaxMs bound the span duration in whole
	// milliseconds (nanoseconds truncated, not rounded).
	DurationMinMs *int64 `yaml:"duration_min_ms,omitempty"`
	DurationMaxMs *int64 `yaml:"duration_max_ms,omitempty"`
}

// Check validates the rule structure. A failure is a configuration error.
func (e *SpanExpectation) Check() error {
	if err := validateGlob(e.Name); err != nil {
		return fmt.Errorf("span rule name: %w", err)
	}
	if e.Parent != "" {
		if err := validateGlob(e.Parent); err != nil {
			return fmt.Errorf("span rule %q parent: %w", e.Name, err)
		}
	}
	if e.Kind != "" {
		if _, err := spans.ParseKind(e.Kind); err != nil {
			return fmt.Errorf("span rule %q: %w", e.Name, err)
		}
	}
	for _, pattern := range e.AttrsAny {
		key, _, ok := strings.Cut(pattern, "=")
		if !ok || key == "" {
			return fmt.Errorf("span rule %q: attrs_any pattern %q is not of the form key=value", e.Name, pattern)
		}
	}
	if e.DurationMinMs != nil && e.DurationMaxMs != nil && *e.DurationMinMs > *e.DurationMaxMs {
		return fmt.Errorf("span rule %q: duration_min_ms (%d) > duration_max_ms (%d)",
			e.Name, *e.DurationMinMs, *e.DurationMaxMs)
	}
	return nil
}

// Validate applies the expectation against all records. Every configured
// constraint is evaluated independently on every matching span and all
// failures are accumulated. The returned error reports configuration
// problems only; rule violations live in the result.
func (e *SpanExpectation) Validate(records []spans.Record, byID map[string]*spans.Record) (SpanResult, error) {
	if err := e.Check(); err != nil {
		return SpanResult{}, err
	}

	var matching []*spans.Record
	for i := range records {
		if matchGlob(e.Name, records[i].Name) {
			matching = append(matching, &records[i])
		}
	}

	result := SpanResult{Outcome: passOutcome(), SpansChecked: len(matching)}

	if len(matching) == 0 {
		result.fail(noMatchError(e.Name, len(records)))
		return result, nil
	}

	for _, span := range matching {
		if e.Parent != "" {
			e.checkParent(&result, span, byID)
		}
		if e.Kind != "" {
			e.checkKind(&result, span)
		}
		if len(e.AttrsAll) > 0 {
			e.checkAttrsAll(&result, span)
		}
		if len(e.AttrsAny) > 0 {
			e.checkAttrsAny(&result, span)
		}
		if len(e.EventsAny) > 0 {
			e.checkEventsAny(&result, span)
		}
		if e.DurationMinMs != nil || e.DurationMaxMs != nil {
			e.checkDuration(&result, span)
		}
	}

	return result, nil
}

// noMatchError is the single highest-value fake-green signal: the expected
// span never appeared at all.
func noMatchError(pattern string, spansTotal int) RuleError {
	err := RuleError{
		Rule:           fmt.Sprintf("span existence %q", pattern),
		Expected:       fmt.Sprintf("at least one span matching pattern %q", pattern),
		Actual:         fmt.Sprintf("no span matches pattern (%d spans total)", spansTotal),
		Recommendation: fmt.Sprintf("verify the code path that emits span %q actually runs and telemetry export is enabled", pattern),
	}
	if spansTotal == 0 {
		err.Annotation = fakeSuccessAnnotation
	}
	return err
}

func (e *SpanExpectation) checkParent(result *SpanResult, span *spans.Record, byID map[string]*spans.Record) {
	rule := fmt.Sprintf("span %q parent", span.SpanID)
	expected := fmt.Sprintf("parent span matching %q", e.Parent)

	if span.ParentSpanID == "" {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       expected,
			Actual:         fmt.Sprintf("span %q has no parent", span.Name),
			Recommendation: "propagate the trace context so the span is created under its parent",
		})
		return
	}
	parent, ok := byID[span.ParentSpanID]
	if !ok {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       expected,
			Actual:         fmt.Sprintf("parent span with id %q not found", span.ParentSpanID),
			Recommendation: "ensure the parent span is exported through the same channel as its children",
		})
		return
	}
	if !matchGlob(e.Parent, parent.Name) {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       expected,
			Actual:         fmt.Sprintf("parent span is named %q", parent.Name),
			Recommendation: "check which operation starts this span; the hierarchy differs from the rule",
		})
	}
}

func (e *SpanExpectation) checkKind(result *SpanResult, span *spans.Record) {
	// Check guarantees this parses.
	expected, _ := spans.ParseKind(e.Kind)

	if span.Kind == spans.KindUnspecified {
		result.fail(RuleError{
			Rule:           fmt.Sprintf("span %q kind", span.SpanID),
			Expected:       fmt.Sprintf("kind %s", expected),
			Actual:         fmt.Sprintf("span %q carries no kind", span.Name),
			Recommendation: "set the span kind where the span is started",
		})
		return
	}
	if span.Kind != expected {
		result.fail(RuleError{
			Rule:           fmt.Sprintf("span %q kind", span.SpanID),
			Expected:       fmt.Sprintf("kind %s", expected),
			Actual:         fmt.Sprintf("span %q has kind %s", span.Name, span.Kind),
			Recommendation: "set the expected span kind where the span is started",
		})
	}
}

func (e *SpanExpectation) checkAttrsAll(result *SpanResult, span *spans.Record) {
	keys := make([]string, 0, len(e.AttrsAll))
	for key := range e.AttrsAll {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := e.AttrsAll[key]
		rule := fmt.Sprintf("span %q attribute %q", span.SpanID, key)

		value, ok := span.Attributes[key]
		if !ok {
			result.fail(RuleError{
				Rule:           rule,
				Expected:       fmt.Sprintf("%s=%s", key, want),
				Actual:         fmt.Sprintf("span %q has no attribute %q", span.Name, key),
				Recommendation: "attach the attribute where the span is created",
			})
			continue
		}
		if got := spans.AttrString(value); got != want {
			result.fail(RuleError{
				Rule:           rule,
				Expected:       fmt.Sprintf("%s=%s", key, want),
				Actual:         fmt.Sprintf("span %q has %s=%s", span.Name, key, got),
				Recommendation: "check the value recorded for this attribute",
			})
		}
	}
}

func (e *SpanExpectation) checkAttrsAny(result *SpanResult, span *spans.Record) {
	for _, pattern := range e.AttrsAny {
		// Check guarantees the key=value form.
		key, want, _ := strings.Cut(pattern, "=")
		if value, present := span.Attributes[key]; present && spans.AttrString(value) == want {
			return
		}
	}
	result.fail(RuleError{
		Rule:           fmt.Sprintf("span %q attrs_any", span.SpanID),
		Expected:       fmt.Sprintf("at least one of [%s]", strings.Join(e.AttrsAny, ", ")),
		Actual:         fmt.Sprintf("span %q matches none of the patterns", span.Name),
		Recommendation: "attach one of the listed attribute values where the span is created",
	})
}

func (e *SpanExpectation) checkEventsAny(result *SpanResult, span *spans.Record) {
	for _, want := range e.EventsAny {
		for _, event := range span.Events {
			if event == want {
				return
			}
		}
	}
	result.fail(RuleError{
		Rule:           fmt.Sprintf("span %q events_any", span.SpanID),
		Expected:       fmt.Sprintf("at least one event of [%s]", strings.Join(e.EventsAny, ", ")),
		Actual:         fmt.Sprintf("span %q has events [%s]", span.Name, strings.Join(span.Events, ", ")),
		Recommendation: "record one of the listed events on the span",
	})
}

func (e *SpanExpectation) checkDuration(result *SpanResult, span *spans.Record) {
	rule := fmt.Sprintf("span %q duration", span.SpanID)

	millis, ok := span.DurationMillis()
	if !ok {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       "start and end timestamps present",
			Actual:         fmt.Sprintf("span %q has no duration data", span.Name),
			Recommendation: "export spans with start and end timestamps to enable duration checks",
		})
		return
	}
	if e.DurationMinMs != nil && millis < *e.DurationMinMs {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("at least %dms", *e.DurationMinMs),
			Actual:         fmt.Sprintf("span %q took %dms", span.Name, millis),
			Recommendation: "a suspiciously fast span suggests the operation was skipped or mocked",
		})
	}
	if e.DurationMaxMs != nil && millis > *e.DurationMaxMs {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("at most %dms", *e.DurationMaxMs),
			Actual:         fmt.Sprintf("span %q took %dms", span.Name, millis),
			Recommendation: "investigate why the operation exceeded its expected duration",
		})
	}
}
