// Tests for temporal containment validation
package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanproof/spanproof/pkg/spans"
)

func TestWindowExpectation_Containment(t *testing.T) {
	records := []spans.Record{
		withTimes(mkSpan("phase", "s1", ""), 100, 1000),
		withTimes(mkSpan("inside", "s2", "s1"), 200, 900),
		withTimes(mkSpan("straddles", "s3", "s1"), 900, 1100),
	}

	t.Run("contained span passes", func(t *testing.T) {
		e := WindowExpectation{Outer: "phase", Contains: []string{"inside"}}
		result, err := e.Validate(records)
		require.NoError(t, err)
		assert.True(t, result.Passed)
		assert.Equal(t, 1, result.WindowsChecked)
	})

	t.Run("boundary timestamps are inclusive", func(t *testing.T) {
		exact := append(records, withTimes(mkSpan("flush", "s4", "s1"), 100, 1000))
		e := WindowExpectation{Outer: "phase", Contains: []string{"flush"}}
		result, err := e.Validate(exact)
		require.NoError(t, err)
		assert.True(t, result.Passed)
	})

	t.Run("span leaking past the window fails", func(t *testing.T) {
		e := WindowExpectation{Outer: "phase", Contains: []string{"straddles"}}
		result, err := e.Validate(records)
		require.NoError(t, err)
		assert.False(t, result.Passed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Actual, "outside")
	})
}

func TestWindowExpectation_MultipleOuters(t *testing.T) {
	// Containment in any one same-named outer window suffices.
	records := []spans.Record{
		withTimes(mkSpan("phase", "s1", ""), 100, 200),
		withTimes(mkSpan("phase", "s2", ""), 500, 1000),
		withTimes(mkSpan("inside", "s3", "s2"), 600, 700),
	}
	e := WindowExpectation{Outer: "phase", Contains: []string{"inside"}}
	result, err := e.Validate(records)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestWindowExpectation_MissingSpans(t *testing.T) {
	records := []spans.Record{withTimes(mkSpan("phase", "s1", ""), 100, 1000)}

	t.Run("missing outer fails once", func(t *testing.T) {
		e := WindowExpectation{Outer: "ghost", Contains: []string{"inside", "other"}}
		result, err := e.Validate(records)
		require.NoError(t, err)
		assert.False(t, result.Passed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 0, result.WindowsChecked)
	})

	t.Run("missing inner fails that name", func(t *testing.T) {
		e := WindowExpectation{Outer: "phase", Contains: []string{"ghost"}}
		result, err := e.Validate(records)
		require.NoError(t, err)
		assert.False(t, result.Passed)
		require.Len(t, result.Errors, 1)
	})
}

func TestWindowExpectation_UntimedSpansNeverContained(t *testing.T) {
	records := []spans.Record{
		withTimes(mkSpan("phase", "s1", ""), 100, 1000),
		mkSpan("inside", "s2", "s1"),
	}
	e := WindowExpectation{Outer: "phase", Contains: []string{"inside"}}
	result, err := e.Validate(records)
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestWindowExpectation_ConfigErrors(t *testing.T) {
	e := WindowExpectation{Outer: "", Contains: []string{"x"}}
	_, err := e.Validate(nil)
	assert.Error(t, err)

	e = WindowExpectation{Outer: "phase"}
	_, err = e.Validate(nil)
	assert.Error(t, err)
}
