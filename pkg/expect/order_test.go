// Tests for temporal ordering validation
package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanproof/spanproof/pkg/spans"
)

func orderFixture() []spans.Record {
	return []spans.Record{
		withTimes(mkSpan("setup", "s1", ""), 100, 200),
		withTimes(mkSpan("work", "s2", ""), 300, 400),
		withTimes(mkSpan("teardown", "s3", ""), 500, 600),
	}
}

func TestOrderExpectation_MustPrecede(t *testing.T) {
	t.Run("correct order passes", func(t *testing.T) {
		e := OrderExpectation{MustPrecede: []Edge{
			{From: "setup", To: "work"},
			{From: "work", To: "teardown"},
		}}
		result, err := e.Validate(orderFixture())
		require.NoError(t, err)
		assert.True(t, result.Passed)
		assert.Equal(t, 2, result.ConstraintsChecked)
	})

	t.Run("inverted order fails", func(t *testing.T) {
		e := OrderExpectation{MustPrecede: []Edge{{From: "teardown", To: "setup"}}}
		result, err := e.Validate(orderFixture())
		require.NoError(t, err)
		assert.False(t, result.Passed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Actual, "no pair of spans")
	})
}

func TestOrderExpectation_MustFollow(t *testing.T) {
	e := OrderExpectation{MustFollow: []Edge{{From: "teardown", To: "work"}}}
	result, err := e.Validate(orderFixture())
	require.NoError(t, err)
	assert.True(t, result.Passed)

	e = OrderExpectation{MustFollow: []Edge{{From: "setup", To: "work"}}}
	result, err = e.Validate(orderFixture())
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestOrderExpectation_ExistentialMatch(t *testing.T) {
	// Two work spans; only the later one follows setup, which suffices.
	records := []spans.Record{
		withTimes(mkSpan("setup", "s1", ""), 300, 350),
		withTimes(mkSpan("work", "s2", ""), 100, 150),
		withTimes(mkSpan("work", "s3", ""), 400, 450),
	}
	e := OrderExpectation{MustPrecede: []Edge{{From: "setup", To: "work"}}}
	result, err := e.Validate(records)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestOrderExpectation_MissingSpans(t *testing.T) {
	e := OrderExpectation{MustPrecede: []Edge{{From: "ghost", To: "work"}}}
	result, err := e.Validate(orderFixture())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Actual, `"ghost"`)
}

func TestOrderExpectation_ZeroTimestampsSkipped(t *testing.T) {
	// The only setup span has no timestamp, so no pair can satisfy the rule.
	records := []spans.Record{
		mkSpan("setup", "s1", ""),
		withTimes(mkSpan("work", "s2", ""), 300, 400),
	}
	e := OrderExpectation{MustPrecede: []Edge{{From: "setup", To: "work"}}}
	result, err := e.Validate(records)
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestOrderExpectation_ConfigError(t *testing.T) {
	e := OrderExpectation{MustFollow: []Edge{{From: "a", To: ""}}}
	_, err := e.Validate(nil)
	assert.Error(t, err)
}
