package core

import (
	"time"

	"gridcore/pkg/domain"
)

// RetryPolicy bounds how often a failed mutation is re-executed before the
// scheduler drops it. Non-retryable failures (validation, limits, missing
// entities, rule violations) are never retried regardless of the budget.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions, first try included.
	// Values below 1 behave as 1.
	MaxAttempts int
	// Backoff returns the pause before attempt n (1-based, so it is first
	// consulted before the second execution). A nil Backoff means no pause.
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy allows three executions with a short linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 25 * time.Millisecond
		},
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) pause(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

func retryable(err error) bool {
	return err != nil && domain.IsRetryable(err)
}
