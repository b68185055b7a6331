// Temporal ordering validation over span start times
package expect

import (
	"fmt"

	"github.com/spanproof/spanproof/pkg/spans"
)

// OrderExpectation checks start-time ordering between named spans.
// Like edge checks, matching is existential across same-named spans.
type OrderExpectation struct {
	// MustPrecede pairs require some From span to start before some To span.
	MustPrecede []Edge `yaml:"must_precede,omitempty"`

	// MustFollow pairs require some From span to start after some To span.
	MustFollow []Edge `yaml:"must_follow,omitempty"`
}

// Check validates the rule structure.
func (e *OrderExpectation) Check() error {
	for _, pair := range append(append([]Edge{}, e.MustPrecede...), e.MustFollow...) {
		if pair.From == "" || pair.To == "" {
			return fmt.Errorf("order rule: pair (%q, %q) has an empty span name", pair.From, pair.To)
		}
	}
	return nil
}

// Validate checks all configured pairs, accumulating every failure.
func (e *OrderExpectation) Validate(records []spans.Record) (OrderResult, error) {
	if err := e.Check(); err != nil {
		return OrderResult{}, err
	}

	byName := spans.ByName(records)
	result := OrderResult{Outcome: passOutcome()}

	for _, pair := range e.MustPrecede {
		result.ConstraintsChecked++
		checkOrder(&result, byName, pair, true)
	}
	for _, pair := range e.MustFollow {
		result.ConstraintsChecked++
		checkOrder(&result, byName, pair, false)
	}

	return result, nil
}

func checkOrder(result *OrderResult, byName map[string][]*spans.Record, pair Edge, precede bool) {
	relation, rule := "follows", fmt.Sprintf("must_follow %q after %q", pair.From, pair.To)
	if precede {
		relation, rule = "precedes", fmt.Sprintf("must_precede %q before %q", pair.From, pair.To)
	}

	firsts, ok := byName[pair.From]
	if !ok {
		result.fail(orderMissing(rule, pair.From))
		return
	}
	seconds, ok := byName[pair.To]
	if !ok {
		result.fail(orderMissing(rule, pair.To))
		return
	}

	for _, first := range firsts {
		if first.StartTimeUnixNano == 0 {
			continue
		}
		for _, second := range seconds {
			if second.StartTimeUnixNano == 0 {
				continue
			}
			if precede && first.StartTimeUnixNano < second.StartTimeUnixNano {
				return
			}
			if !precede && first.StartTimeUnixNano > second.StartTimeUnixNano {
				return
			}
		}
	}

	result.fail(RuleError{
		Rule:           rule,
		Expected:       fmt.Sprintf("some %q span %s some %q span", pair.From, relation, pair.To),
		Actual:         "no pair of spans satisfies the ordering",
		Recommendation: "an inverted execution order suggests the operations did not run as the scenario demands",
	})
}

func orderMissing(rule, name string) RuleError {
	return RuleError{
		Rule:           rule,
		Expected:       fmt.Sprintf("a span named %q with a start timestamp", name),
		Actual:         fmt.Sprintf("no span named %q", name),
		Recommendation: fmt.Sprintf("the operation %q never emitted a span; verify it actually executed", name),
	}
}
