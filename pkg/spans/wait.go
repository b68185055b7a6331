// Span-based readiness: poll captured output until a named span appears
package spans

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultWaitTimeout bounds how long WaitForSpan polls before giving up.
const DefaultWaitTimeout = 30 * time.Second

// DefaultPollInterval is the fixed sleep between readiness checks.
const DefaultPollInterval = 500 * time.Millisecond

// TimeoutError reports that a span did not appear before the deadline.
type TimeoutError struct {
	Span    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("span %q not detected within %s", e.Span, e.Timeout)
}

// IsTimeout reports whether err is a readiness timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// WaitForSpan polls source until its output contains a span with the given
// name, then returns nil. It checks immediately, sleeps a fixed interval
// between checks, and re-evaluates the deadline at the top of each
// iteration. Once the deadline is exceeded it returns a *TimeoutError.
// Source read failures are reported to warn and retried; only the deadline
// terminates the loop.
func WaitForSpan(source func() (string, error), name string, timeout, interval time.Duration, warn io.Writer) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	start := time.Now()
	for {
		if time.Since(start) >= timeout {
			return &TimeoutError{Span: name, Timeout: timeout}
		}

		output, err := source()
		if err != nil {
			warnf(warn, "readiness: reading span source: %v\n", err)
		} else {
			records, err := ExtractString(output, nil)
			if err != nil {
				warnf(warn, "readiness: extracting spans: %v\n", err)
			} else if containsSpan(records, name) {
				return nil
			}
		}

		time.Sleep(interval)
	}
}

func containsSpan(records []Record, name string) bool {
	for i := range records {
		if records[i].Name == name {
			return true
		}
	}
	return false
}
