// Validation report assembly and first-failing-rule selection
package expect

import (
	"fmt"
	"strings"
)

// ValidatorResult is one validator's entry in the report, in execution
// order. Counts carries the raw metric snapshot for the counts validator
// only.
type ValidatorResult struct {
	Name   string
	Passed bool
	Errors []RuleError
	Counts *Counts
}

// Diagnostics renders the entry's errors as human-readable lines.
func (r ValidatorResult) Diagnostics() []string {
	lines := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		lines = append(lines, e.String())
	}
	return lines
}

// FailingRule identifies the earliest failure in the fixed validator order.
// Earlier layers are more actionable than later, possibly noisier ones, so
// the first entry wins even when later validators report more errors.
type FailingRule struct {
	Validator      string
	Rule           string
	Expected       string
	Actual         string
	Recommendation string

	// Annotation marks the span-existence-over-zero-spans case.
	Annotation string
}

// Report is the immutable outcome of one validation run.
type Report struct {
	Passed       bool
	FirstFailing *FailingRule
	Results      []ValidatorResult

	// Digest is the content-addressed hash of the validated span sequence.
	Digest string
}

// newReport derives the pass flag and first failing rule from the ordered
// results.
func newReport(results []ValidatorResult, digest string) *Report {
	report := &Report{Passed: true, Results: results, Digest: digest}

	for _, res := range results {
		if res.Passed || len(res.Errors) == 0 {
			continue
		}
		report.Passed = false
		first := res.Errors[0]
		report.FirstFailing = &FailingRule{
			Validator:      res.Name,
			Rule:           first.Rule,
			Expected:       first.Expected,
			Actual:         first.Actual,
			Recommendation: first.Recommendation,
			Annotation:     first.Annotation,
		}
		break
	}

	return report
}

// Summary renders the report as plain text. The core performs no output
// itself; callers decide where this goes.
func (r *Report) Summary() string {
	var b strings.Builder

	if r.Passed {
		fmt.Fprintf(&b, "validation passed: all %d validators succeeded\n", len(r.Results))
	} else {
		b.WriteString("validation failed\n")
		if rule := r.FirstFailing; rule != nil {
			fmt.Fprintf(&b, "first failing rule: %s %s\n", rule.Validator, rule.Rule)
			fmt.Fprintf(&b, "  expected: %s\n", rule.Expected)
			fmt.Fprintf(&b, "  actual:   %s\n", rule.Actual)
			fmt.Fprintf(&b, "  fix:      %s\n", rule.Recommendation)
			if rule.Annotation != "" {
				fmt.Fprintf(&b, "  note:     %s\n", rule.Annotation)
			}
		}
	}

	for _, res := range r.Results {
		status := "pass"
		if !res.Passed {
			status = fmt.Sprintf("FAIL (%d errors)", len(res.Errors))
		}
		fmt.Fprintf(&b, "  %-20s %s\n", res.Name, status)
	}
	if r.Digest != "" {
		fmt.Fprintf(&b, "span digest: %s\n", r.Digest)
	}

	return b.String()
}
