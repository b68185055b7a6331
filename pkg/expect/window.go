// Temporal containment validation: inner spans inside an outer span's window
package expect

import (
	"fmt"

	"github.com/spanproof/spanproof/pkg/spans"
)

// WindowExpectation requires every span named in Contains to be temporally
// contained within at least one span named Outer.
type WindowExpectation struct {
	Outer    string   `yaml:"outer"`
	Contains []string `yaml:"contains"`
}

// Check validates the rule structure.
func (e *WindowExpectation) Check() error {
	if e.Outer == "" {
		return fmt.Errorf("window rule: outer span name is empty")
	}
	if len(e.Contains) == 0 {
		return fmt.Errorf("window rule %q: contains list is empty", e.Outer)
	}
	return nil
}

// Validate checks containment for every inner name, accumulating failures.
func (e *WindowExpectation) Validate(records []spans.Record) (WindowResult, error) {
	if err := e.Check(); err != nil {
		return WindowResult{}, err
	}

	byName := spans.ByName(records)
	result := WindowResult{Outcome: passOutcome()}

	outers, ok := byName[e.Outer]
	if !ok {
		result.fail(RuleError{
			Rule:           fmt.Sprintf("window %q", e.Outer),
			Expected:       fmt.Sprintf("an outer span named %q", e.Outer),
			Actual:         fmt.Sprintf("no span named %q", e.Outer),
			Recommendation: fmt.Sprintf("the enclosing operation %q never emitted a span; verify the run started", e.Outer),
		})
		return result, nil
	}

	for _, innerName := range e.Contains {
		result.WindowsChecked++
		rule := fmt.Sprintf("window %q contains %q", e.Outer, innerName)

		inners, ok := byName[innerName]
		if !ok {
			result.fail(RuleError{
				Rule:           rule,
				Expected:       fmt.Sprintf("a span named %q inside the window", innerName),
				Actual:         fmt.Sprintf("no span named %q", innerName),
				Recommendation: fmt.Sprintf("the operation %q never emitted a span; verify it actually executed", innerName),
			})
			continue
		}

		for _, inner := range inners {
			if !containedInAny(inner, outers) {
				result.fail(RuleError{
					Rule:           rule,
					Expected:       fmt.Sprintf("span %q within the time window of %q", innerName, e.Outer),
					Actual:         fmt.Sprintf("span %q (id %q) starts or ends outside every %q window", inner.Name, inner.SpanID, e.Outer),
					Recommendation: "an operation running outside its enclosing phase suggests leaked or fabricated timing",
				})
			}
		}
	}

	return result, nil
}

// containedInAny reports whether inner lies within the [start, end] window
// of at least one outer span. Spans without timestamps are never contained.
func containedInAny(inner *spans.Record, outers []*spans.Record) bool {
	if !inner.HasTimes() {
		return false
	}
	for _, outer := range outers {
		if !outer.HasTimes() {
			continue
		}
		if inner.StartTimeUnixNano >= outer.StartTimeUnixNano && inner.EndTimeUnixNano <= outer.EndTimeUnixNano {
			return true
		}
	}
	return false
}
