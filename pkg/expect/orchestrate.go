// Orchestrator: runs all configured validators in fixed order over one
// shared span sequence and merges their results into a report
package expect

import (
	"errors"
	"fmt"

	"github.com/spanproof/spanproof/pkg/spans"
)

// Expectations is the complete declarative rule set for one validation run.
// Validators execute in the fixed, documented order Span → Graph → Counts →
// Hermeticity, then Order → Window → Status. That order is a public
// contract: the first failing entry is the authoritative diagnostic, and a
// run is green only if it clears every configured layer.
type Expectations struct {
	Spans       []SpanExpectation       `yaml:"spans,omitempty"`
	Graph       *GraphExpectation       `yaml:"graph,omitempty"`
	Counts      *CountExpectation       `yaml:"counts,omitempty"`
	Hermeticity *HermeticityExpectation `yaml:"hermeticity,omitempty"`
	Order       *OrderExpectation       `yaml:"order,omitempty"`
	Windows     []WindowExpectation     `yaml:"windows,omitempty"`
	Status      *StatusExpectation      `yaml:"status,omitempty"`
}

// Check validates every configured rule structurally, as done at load time.
func (e *Expectations) Check() error {
	for i := range e.Spans {
		if err := e.Spans[i].Check(); err != nil {
			return err
		}
	}
	if e.Graph != nil {
		if err := e.Graph.Check(); err != nil {
			return err
		}
	}
	if e.Counts != nil {
		if err := e.Counts.Check(); err != nil {
			return err
		}
	}
	if e.Order != nil {
		if err := e.Order.Check(); err != nil {
			return err
		}
	}
	for i := range e.Windows {
		if err := e.Windows[i].Check(); err != nil {
			return err
		}
	}
	if e.Status != nil {
		if err := e.Status.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs every configured validator against the span sequence and
// returns the merged report. Rule violations are data in the report, never
// errors. The returned error is non-nil only for configuration mistakes
// (bad glob, inverted range); a configuration error aborts that validator's
// run and fails its report entry, while the remaining validators still
// execute. Validation is pure: records are read-only and no I/O occurs, so
// independent calls may run concurrently without coordination.
func (e *Expectations) Validate(records []spans.Record) (*Report, error) {
	byID := spans.ByID(records)

	var results []ValidatorResult
	var cfgErrs []error

	record := func(name string, outcome Outcome, counts *Counts, err error) {
		if err != nil {
			cfgErrs = append(cfgErrs, fmt.Errorf("%s: %w", name, err))
			outcome = Outcome{}
			outcome.fail(configError(err))
		}
		results = append(results, ValidatorResult{
			Name:   name,
			Passed: outcome.Passed,
			Errors: outcome.Errors,
			Counts: counts,
		})
	}

	if len(e.Spans) > 0 {
		outcome := passOutcome()
		var firstErr error
		for i := range e.Spans {
			res, err := e.Spans[i].Validate(records, byID)
			if err != nil {
				firstErr = errors.Join(firstErr, err)
				continue
			}
			for _, ruleErr := range res.Errors {
				outcome.fail(ruleErr)
			}
		}
		record(ValidatorSpan, outcome, nil, firstErr)
	}

	if e.Graph != nil {
		res, err := e.Graph.Validate(records)
		record(ValidatorGraph, res.Outcome, nil, err)
	}

	if e.Counts != nil {
		res, err := e.Counts.Validate(records)
		counts := &res.Actual
		if err != nil {
			counts = nil
		}
		record(ValidatorCounts, res.Outcome, counts, err)
	}

	if e.Hermeticity != nil {
		res, err := e.Hermeticity.Validate(records)
		record(ValidatorHermeticity, res.Outcome, nil, err)
	}

	if e.Order != nil {
		res, err := e.Order.Validate(records)
		record(ValidatorOrder, res.Outcome, nil, err)
	}

	if len(e.Windows) > 0 {
		outcome := passOutcome()
		var firstErr error
		for i := range e.Windows {
			res, err := e.Windows[i].Validate(records)
			if err != nil {
				firstErr = errors.Join(firstErr, err)
				continue
			}
			for _, ruleErr := range res.Errors {
				outcome.fail(ruleErr)
			}
		}
		record(ValidatorWindow, outcome, nil, firstErr)
	}

	if e.Status != nil {
		res, err := e.Status.Validate(records)
		record(ValidatorStatus, res.Outcome, nil, err)
	}

	digest, err := Digest(records)
	if err != nil {
		cfgErrs = append(cfgErrs, err)
	}

	return newReport(results, digest), errors.Join(cfgErrs...)
}
