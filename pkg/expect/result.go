// Shared validation result types accumulated by every validator
// Validation failures are recorded as data, never returned as errors
package expect

import "fmt"

// Validator names as they appear in reports, in fixed execution order.
const (
	ValidatorSpan        = "expect.span"
	ValidatorGraph       = "expect.graph"
	ValidatorCounts      = "expect.counts"
	ValidatorHermeticity = "expect.hermeticity"
	ValidatorOrder       = "expect.order"
	ValidatorWindow      = "expect.window"
	ValidatorStatus      = "expect.status"
)

// fakeSuccessAnnotation marks span-existence failures over an empty span
// set, the strongest fake-green signal.
const fakeSuccessAnnotation = "likely fake success: process reported success without emitting real spans"

// RuleError describes one violated rule with an expected-vs-actual contrast
// and a remediation hint. Annotation is set only for span-existence
// failures over an empty span set.
type RuleError struct {
	Rule           string
	Expected       string
	Actual         string
	Recommendation string
	Annotation     string
}

func (e RuleError) String() string {
	return fmt.Sprintf("%s: expected %s, %s", e.Rule, e.Expected, e.Actual)
}

// Outcome is the pass flag and accumulated rule errors common to all
// validator results. All configured checks run to completion; nothing
// short-circuits.
type Outcome struct {
	Passed bool
	Errors []RuleError
}

func passOutcome() Outcome {
	return Outcome{Passed: true}
}

func (o *Outcome) fail(e RuleError) {
	o.Passed = false
	o.Errors = append(o.Errors, e)
}

// Diagnostics renders the accumulated errors as human-readable lines.
func (o Outcome) Diagnostics() []string {
	lines := make([]string, 0, len(o.Errors))
	for _, e := range o.Errors {
		lines = append(lines, e.String())
	}
	return lines
}

// SpanResult is the outcome of span-shape validation.
type SpanResult struct {
	Outcome
	SpansChecked int
}

// GraphResult is the outcome of graph-topology validation.
type GraphResult struct {
	Outcome
	EdgesChecked int
}

// CountResult carries the outcome plus the complete forensic snapshot of
// actual counts, computed regardless of which bounds were configured.
type CountResult struct {
	Outcome
	Actual Counts
}

// HermeticityResult carries structured violations alongside diagnostics.
type HermeticityResult struct {
	Outcome
	Violations []Violation
}

// OrderResult is the outcome of temporal-ordering validation.
type OrderResult struct {
	Outcome
	ConstraintsChecked int
}

// WindowResult is the outcome of temporal-containment validation.
type WindowResult struct {
	Outcome
	WindowsChecked int
}

// StatusResult is the outcome of status-code validation.
type StatusResult struct {
	Outcome
	SpansChecked int
}

// configError wraps a rule-authoring mistake as the single error of a
// failed outcome so it is never recovered silently.
func configError(err error) RuleError {
	return RuleError{
		Rule:           "configuration",
		Expected:       "a structurally valid rule",
		Actual:         err.Error(),
		Recommendation: "fix the rule definition; configuration errors indicate an authoring bug, not a test failure",
	}
}
