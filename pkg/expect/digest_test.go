// Tests for the content-addressed span digest
package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanproof/spanproof/pkg/spans"
)

func TestDigest_Deterministic(t *testing.T) {
	records := []spans.Record{
		withAttrs(withTimes(mkSpan("app.run", "s1", ""), 100, 200), map[string]any{"b": "2", "a": "1"}),
		mkSpan("app.step", "s2", "s1"),
	}

	first, err := Digest(records)
	require.NoError(t, err)
	second, err := Digest(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestDigest_MapOrderIndependent(t *testing.T) {
	a := withAttrs(mkSpan("app.run", "s1", ""), map[string]any{"x": "1", "y": "2", "z": "3"})
	b := withAttrs(mkSpan("app.run", "s1", ""), map[string]any{"z": "3", "y": "2", "x": "1"})

	da, err := Digest([]spans.Record{a})
	require.NoError(t, err)
	db, err := Digest([]spans.Record{b})
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestDigest_SensitiveToContent(t *testing.T) {
	base := []spans.Record{mkSpan("app.run", "s1", "")}
	baseDigest, err := Digest(base)
	require.NoError(t, err)

	renamed := []spans.Record{mkSpan("app.other", "s1", "")}
	renamedDigest, err := Digest(renamed)
	require.NoError(t, err)
	assert.NotEqual(t, baseDigest, renamedDigest)

	timed := []spans.Record{withTimes(mkSpan("app.run", "s1", ""), 1, 2)}
	timedDigest, err := Digest(timed)
	require.NoError(t, err)
	assert.NotEqual(t, baseDigest, timedDigest)
}

func TestDigest_SensitiveToOrder(t *testing.T) {
	x, y := mkSpan("x", "s1", ""), mkSpan("y", "s2", "")

	dxy, err := Digest([]spans.Record{x, y})
	require.NoError(t, err)
	dyx, err := Digest([]spans.Record{y, x})
	require.NoError(t, err)
	assert.NotEqual(t, dxy, dyx)
}

func TestDigest_Empty(t *testing.T) {
	d, err := Digest(nil)
	require.NoError(t, err)
	assert.Len(t, d, 64)
}
