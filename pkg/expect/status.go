// Span status validation against otel.status_code, with glob support
package expect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spanproof/spanproof/pkg/spans"
)

// Status values mirror the OTel span status codes.
const (
	StatusUnset = "UNSET"
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// normalizeStatus canonicalises a configured status value.
func normalizeStatus(s string) (string, error) {
	switch strings.ToUpper(s) {
	case StatusUnset, StatusOK, StatusError:
		return strings.ToUpper(s), nil
	default:
		return "", fmt.Errorf("invalid status %q, must be UNSET, OK, or ERROR", s)
	}
}

// StatusExpectation checks the status of all spans and/or of spans matching
// name globs.
type StatusExpectation struct {
	// All, when set, is the status every span must carry.
	All string `yaml:"all,omitempty"`

	// ByName maps name globs to the status their matching spans must carry.
	ByName map[string]string `yaml:"by_name,omitempty"`
}

// Check validates statuses and glob patterns at construction.
func (e *StatusExpectation) Check() error {
	if e.All != "" {
		if _, err := normalizeStatus(e.All); err != nil {
			return fmt.Errorf("status rule all: %w", err)
		}
	}
	for pattern, status := range e.ByName {
		if err := validateGlob(pattern); err != nil {
			return fmt.Errorf("status rule by_name: %w", err)
		}
		if _, err := normalizeStatus(status); err != nil {
			return fmt.Errorf("status rule by_name %q: %w", pattern, err)
		}
	}
	return nil
}

// Validate checks every configured status constraint. A span's status comes
// from its otel.status_code attribute and defaults to UNSET; unrecognised
// values are reported verbatim as mismatches rather than raised as errors.
func (e *StatusExpectation) Validate(records []spans.Record) (StatusResult, error) {
	if err := e.Check(); err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Outcome: passOutcome()}

	if e.All != "" {
		want, _ := normalizeStatus(e.All)
		for i := range records {
			result.SpansChecked++
			checkStatus(&result, &records[i], "all spans", want)
		}
	}

	patterns := make([]string, 0, len(e.ByName))
	for pattern := range e.ByName {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	for _, pattern := range patterns {
		want, _ := normalizeStatus(e.ByName[pattern])

		matched := false
		for i := range records {
			if !matchGlob(pattern, records[i].Name) {
				continue
			}
			matched = true
			result.SpansChecked++
			checkStatus(&result, &records[i], fmt.Sprintf("pattern %q", pattern), want)
		}
		if !matched {
			result.fail(RuleError{
				Rule:           fmt.Sprintf("status by_name %q", pattern),
				Expected:       fmt.Sprintf("at least one span matching pattern %q", pattern),
				Actual:         "no span matches pattern",
				Recommendation: fmt.Sprintf("verify the code path that emits spans matching %q actually runs", pattern),
			})
		}
	}

	return result, nil
}

func checkStatus(result *StatusResult, span *spans.Record, context, want string) {
	actual := spanStatus(span)
	if strings.EqualFold(actual, want) {
		return
	}
	result.fail(RuleError{
		Rule:           fmt.Sprintf("status of span %q (%s)", span.Name, context),
		Expected:       fmt.Sprintf("status %s", want),
		Actual:         fmt.Sprintf("status %s", actual),
		Recommendation: "a success status on a failed operation, or vice versa, is a classic fake-green tell",
	})
}

// spanStatus reads otel.status_code, defaulting to UNSET when absent.
func spanStatus(span *spans.Record) string {
	if s, ok := span.StringAttr("otel.status_code"); ok {
		return strings.ToUpper(s)
	}
	return StatusUnset
}
