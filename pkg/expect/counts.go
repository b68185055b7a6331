// Cardinality validation: total spans, events, errors, and per-name tallies
package expect

import (
	"fmt"
	"sort"

	"github.com/spanproof/spanproof/pkg/spans"
)

// Bound constrains a count: Eq (exact) takes precedence over the inclusive
// Gte/Lte range when both are set.
type Bound struct {
	Gte *int `yaml:"gte,omitempty"`
	Lte *int `yaml:"lte,omitempty"`
	Eq  *int `yaml:"eq,omitempty"`
}

// Eq builds an exact-count bound.
func Eq(n int) Bound { return Bound{Eq: &n} }

// Gte builds a minimum-count bound.
func Gte(n int) Bound { return Bound{Gte: &n} }

// Lte builds a maximum-count bound.
func Lte(n int) Bound { return Bound{Lte: &n} }

// Range builds an inclusive min/max bound. min > max is a configuration
// error rejected at construction.
func Range(min, max int) (Bound, error) {
	if min > max {
		return Bound{}, fmt.Errorf("invalid range: min (%d) > max (%d)", min, max)
	}
	return Bound{Gte: &min, Lte: &max}, nil
}

// Check validates the bound structure, catching ranges a deserialized rule
// set may carry that the Range constructor would have rejected.
func (b Bound) Check() error {
	if b.Gte != nil && b.Lte != nil && *b.Gte > *b.Lte {
		return fmt.Errorf("invalid range: min (%d) > max (%d)", *b.Gte, *b.Lte)
	}
	return nil
}

// violated returns the rule error for actual against this bound, or nil.
func (b Bound) violated(context string, actual int) *RuleError {
	rule := context + " bound"

	if b.Eq != nil {
		if actual != *b.Eq {
			return &RuleError{
				Rule:           rule,
				Expected:       fmt.Sprintf("exactly %d", *b.Eq),
				Actual:         fmt.Sprintf("found %d", actual),
				Recommendation: "an unexpected count means the run did more or less work than the rule assumes",
			}
		}
		return nil
	}
	if b.Gte != nil && actual < *b.Gte {
		return &RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("at least %d", *b.Gte),
			Actual:         fmt.Sprintf("found %d", actual),
			Recommendation: "too few spans suggests the run skipped work or never executed",
		}
	}
	if b.Lte != nil && actual > *b.Lte {
		return &RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("at most %d", *b.Lte),
			Actual:         fmt.Sprintf("found %d", actual),
			Recommendation: "too many spans suggests retries, loops, or contamination from another run",
		}
	}
	return nil
}

// Counts is the forensic snapshot of actual metrics, always computed in
// full regardless of which bounds were configured.
type Counts struct {
	SpansTotal  int            `yaml:"spans_total" json:"spans_total"`
	EventsTotal int            `yaml:"events_total" json:"events_total"`
	ErrorsTotal int            `yaml:"errors_total" json:"errors_total"`
	ByName      map[string]int `yaml:"by_name" json:"by_name"`
}

// CountExpectation checks cardinality bounds over the span sequence.
type CountExpectation struct {
	SpansTotal  *Bound           `yaml:"spans_total,omitempty"`
	EventsTotal *Bound           `yaml:"events_total,omitempty"`
	ErrorsTotal *Bound           `yaml:"errors_total,omitempty"`
	ByName      map[string]Bound `yaml:"by_name,omitempty"`
}

// Check validates all configured bounds.
func (e *CountExpectation) Check() error {
	for context, bound := range map[string]*Bound{
		"spans_total":  e.SpansTotal,
		"events_total": e.EventsTotal,
		"errors_total": e.ErrorsTotal,
	} {
		if bound != nil {
			if err := bound.Check(); err != nil {
				return fmt.Errorf("count rule %s: %w", context, err)
			}
		}
	}
	for name, bound := range e.ByName {
		if err := bound.Check(); err != nil {
			return fmt.Errorf("count rule by_name %q: %w", name, err)
		}
	}
	return nil
}

// Validate computes all four actual metrics up front and applies every
// configured bound, accumulating one error per violation.
func (e *CountExpectation) Validate(records []spans.Record) (CountResult, error) {
	if err := e.Check(); err != nil {
		return CountResult{}, err
	}

	actual := Tally(records)
	result := CountResult{Outcome: passOutcome(), Actual: actual}

	if e.SpansTotal != nil {
		if err := e.SpansTotal.violated("total spans", actual.SpansTotal); err != nil {
			result.fail(*err)
		}
	}
	if e.EventsTotal != nil {
		if err := e.EventsTotal.violated("total events", actual.EventsTotal); err != nil {
			result.fail(*err)
		}
	}
	if e.ErrorsTotal != nil {
		if err := e.ErrorsTotal.violated("total errors", actual.ErrorsTotal); err != nil {
			result.fail(*err)
		}
	}

	// Sort names so repeated runs report violations in a stable order.
	names := make([]string, 0, len(e.ByName))
	for name := range e.ByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bound := e.ByName[name]
		if err := bound.violated(fmt.Sprintf("span name %q", name), actual.ByName[name]); err != nil {
			result.fail(*err)
		}
	}

	return result, nil
}

// Tally computes the complete count snapshot for a span sequence.
func Tally(records []spans.Record) Counts {
	counts := Counts{ByName: make(map[string]int)}
	counts.SpansTotal = len(records)
	for i := range records {
		counts.EventsTotal += len(records[i].Events)
		if records[i].IsError() {
			counts.ErrorsTotal++
		}
		counts.ByName[records[i].Name]++
	}
	return counts
}
