// Rule set loading: declarative YAML form of the validation expectations
package expect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRules reads and parses a YAML rule-set file. Structural problems in
// any rule (bad glob syntax, inverted range) are rejected here, before any
// span is read.
func LoadRules(path string) (*Expectations, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied rules path is expected
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules parses a YAML rule set and validates it structurally.
func ParseRules(data []byte) (*Expectations, error) {
	var rules Expectations
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := rules.Check(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return &rules, nil
}

// MarshalRules renders a rule set back to its YAML form, for round-trip
// tooling and fixtures.
func MarshalRules(rules *Expectations) ([]byte, error) {
	data, err := yaml.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encoding rules: %w", err)
	}
	return data, nil
}
