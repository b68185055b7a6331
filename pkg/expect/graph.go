// Graph topology validation: required edges, forbidden edges, acyclicity
// Edge matching is existential across all spans sharing a name, not positional
package expect

import (
	"fmt"

	"github.com/spanproof/spanproof/pkg/spans"
	"gopkg.in/yaml.v3"
)

// Edge is an ordered pair of span names. For graph rules it reads
// parent→child; for order rules it reads first→second.
type Edge struct {
	From string
	To   string
}

// UnmarshalYAML accepts the two-element sequence form: [from, to].
func (e *Edge) UnmarshalYAML(node *yaml.Node) error {
	var pair []string
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("edge must be a [from, to] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("edge must have exactly 2 elements, got %d", len(pair))
	}
	e.From, e.To = pair[0], pair[1]
	return nil
}

// MarshalYAML renders the two-element sequence form.
func (e Edge) MarshalYAML() (any, error) {
	return []string{e.From, e.To}, nil
}

// GraphExpectation checks parent-child topology over the span graph.
type GraphExpectation struct {
	// MustInclude lists parent→child edges that must exist.
	MustInclude []Edge `yaml:"must_include,omitempty"`

	// MustNotCross lists parent→child edges that must not exist.
	MustNotCross []Edge `yaml:"must_not_cross,omitempty"`

	// Acyclic additionally requires the parent relation to be cycle-free.
	Acyclic bool `yaml:"acyclic,omitempty"`
}

// Check validates the rule structure.
func (e *GraphExpectation) Check() error {
	for _, edge := range append(append([]Edge{}, e.MustInclude...), e.MustNotCross...) {
		if edge.From == "" || edge.To == "" {
			return fmt.Errorf("graph rule: edge (%q, %q) has an empty span name", edge.From, edge.To)
		}
	}
	return nil
}

// Validate checks all configured edges and, when requested, acyclicity.
// Every check runs to completion; EdgesChecked counts each examined pair.
func (e *GraphExpectation) Validate(records []spans.Record) (GraphResult, error) {
	if err := e.Check(); err != nil {
		return GraphResult{}, err
	}

	byName := spans.ByName(records)
	result := GraphResult{Outcome: passOutcome()}

	for _, edge := range e.MustInclude {
		result.EdgesChecked++
		checkEdgeExists(&result, byName, edge, len(records))
	}
	for _, edge := range e.MustNotCross {
		result.EdgesChecked++
		checkEdgeAbsent(&result, byName, edge)
	}
	if e.Acyclic {
		checkAcyclic(&result, records)
	}

	return result, nil
}

// checkEdgeExists fails when no span named edge.To has any span named
// edge.From as its parent. Missing endpoints fail distinctly: a missing
// parent usually means the run never started, a missing child that the
// operation never executed. Either is a span-existence failure, so over a
// capture with no spans at all it carries the fake-success annotation.
func checkEdgeExists(result *GraphResult, byName map[string][]*spans.Record, edge Edge, spansTotal int) {
	rule := fmt.Sprintf("must_include edge %q -> %q", edge.From, edge.To)

	annotation := ""
	if spansTotal == 0 {
		annotation = fakeSuccessAnnotation
	}

	parents, ok := byName[edge.From]
	if !ok {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("a span named %q as parent", edge.From),
			Actual:         fmt.Sprintf("parent not found: no span named %q", edge.From),
			Recommendation: fmt.Sprintf("the root operation %q never emitted a span; verify the run actually started", edge.From),
			Annotation:     annotation,
		})
		return
	}
	children, ok := byName[edge.To]
	if !ok {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("a span named %q as child", edge.To),
			Actual:         fmt.Sprintf("child not found: no span named %q", edge.To),
			Recommendation: fmt.Sprintf("the operation %q never emitted a span; verify it actually executed", edge.To),
			Annotation:     annotation,
		})
		return
	}

	if !edgeExists(parents, children) {
		result.fail(RuleError{
			Rule:           rule,
			Expected:       fmt.Sprintf("some %q span parented by some %q span", edge.To, edge.From),
			Actual:         "both names exist but no parent-child link connects them",
			Recommendation: "propagate the trace context from parent to child so the spans are linked",
		})
	}
}

// checkEdgeAbsent is the negation. Absent endpoints satisfy the check:
// no edge can exist between nonexistent spans.
func checkEdgeAbsent(result *GraphResult, byName map[string][]*spans.Record, edge Edge) {
	parents, ok := byName[edge.From]
	if !ok {
		return
	}
	children, ok := byName[edge.To]
	if !ok {
		return
	}

	if edgeExists(parents, children) {
		result.fail(RuleError{
			Rule:           fmt.Sprintf("must_not_cross edge %q -> %q", edge.From, edge.To),
			Expected:       fmt.Sprintf("no %q span parented by any %q span", edge.To, edge.From),
			Actual:         "a forbidden parent-child link exists between them",
			Recommendation: "the run crossed an isolation boundary; separate the operations into unlinked traces",
		})
	}
}

// edgeExists reports whether any child lists any of the parents' span ids
// as its parent reference.
func edgeExists(parents, children []*spans.Record) bool {
	parentIDs := make(map[string]bool, len(parents))
	for _, p := range parents {
		parentIDs[p.SpanID] = true
	}
	for _, c := range children {
		if c.ParentSpanID != "" && parentIDs[c.ParentSpanID] {
			return true
		}
	}
	return false
}

// checkAcyclic runs DFS over the inverse parent relation (parent → children)
// with a per-traversal recursion stack. Revisiting a span already on the
// active stack is a cycle.
func checkAcyclic(result *GraphResult, records []spans.Record) {
	children := make(map[string][]*spans.Record)
	for i := range records {
		if pid := records[i].ParentSpanID; pid != "" {
			children[pid] = append(children[pid], &records[i])
		}
	}

	visited := make(map[string]bool, len(records))
	onStack := make(map[string]bool)

	var dfs func(span *spans.Record) *RuleError
	dfs = func(span *spans.Record) *RuleError {
		visited[span.SpanID] = true
		onStack[span.SpanID] = true
		defer delete(onStack, span.SpanID)

		for _, child := range children[span.SpanID] {
			if onStack[child.SpanID] {
				return &RuleError{
					Rule:           "acyclic",
					Expected:       "a cycle-free parent relation",
					Actual:         fmt.Sprintf("cycle detected involving spans %q -> %q", span.Name, child.Name),
					Recommendation: "a parent reference loop means the ids were fabricated; real traces cannot contain cycles",
				}
			}
			if !visited[child.SpanID] {
				if err := dfs(child); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for i := range records {
		if !visited[records[i].SpanID] {
			if err := dfs(&records[i]); err != nil {
				result.fail(*err)
				return
			}
		}
	}
}
