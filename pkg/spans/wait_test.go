// Tests for span-based readiness polling
package spans

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForSpan_ImmediateHit(t *testing.T) {
	calls := 0
	source := func() (string, error) {
		calls++
		return `{"name":"app.ready","trace_id":"t","span_id":"s"}`, nil
	}

	err := WaitForSpan(source, "app.ready", time.Second, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWaitForSpan_AppearsAfterPolling(t *testing.T) {
	calls := 0
	source := func() (string, error) {
		calls++
		if calls < 3 {
			return "still starting\n", nil
		}
		return `{"name":"app.ready","trace_id":"t","span_id":"s"}`, nil
	}

	err := WaitForSpan(source, "app.ready", time.Second, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitForSpan_Timeout(t *testing.T) {
	source := func() (string, error) {
		return `{"name":"something.else","trace_id":"t","span_id":"s"}`, nil
	}

	err := WaitForSpan(source, "app.ready", 20*time.Millisecond, time.Millisecond, nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "app.ready", te.Span)
	assert.Contains(t, err.Error(), `"app.ready"`)
}

func TestWaitForSpan_SourceErrorsRetried(t *testing.T) {
	calls := 0
	source := func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("capture not ready")
		}
		return `{"name":"app.ready","trace_id":"t","span_id":"s"}`, nil
	}

	var warn bytes.Buffer
	err := WaitForSpan(source, "app.ready", time.Second, time.Millisecond, &warn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, warn.String(), "capture not ready")
}

func TestWaitForSpan_ExactNameMatch(t *testing.T) {
	source := func() (string, error) {
		return `{"name":"app.ready.extra","trace_id":"t","span_id":"s"}`, nil
	}

	err := WaitForSpan(source, "app.ready", 20*time.Millisecond, time.Millisecond, nil)
	assert.True(t, IsTimeout(err))
}

func TestIsTimeout_OtherErrors(t *testing.T) {
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.False(t, IsTimeout(nil))
}
