package domain

import (
	"errors"
	"fmt"
)

// LimitError is returned when a per-resource count limit would be exceeded.
// The check happens inside the same transaction as the insert, so the limit
// cannot be overshot by concurrent mutations.
type LimitError struct {
	Entity EntityType
	Limit  int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("%s limit of %d reached", e.Entity, e.Limit)
}

// NotFoundError is returned when a referenced entity does not exist or the
// caller is not permitted to see it. The two cases are deliberately
// indistinguishable.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports a malformed mutation payload, caught before the
// mutation is ever enqueued.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid mutation: " + e.Reason
}

// QueueSaturatedError is terminal: the mutation exhausted its retry budget
// and was dropped from its queue. It wraps the last execution error.
type QueueSaturatedError struct {
	Key      string
	Attempts int
	Err      error
}

func (e QueueSaturatedError) Error() string {
	return fmt.Sprintf("mutation dropped after %d attempts on key %s: %v", e.Attempts, e.Key, e.Err)
}

func (e QueueSaturatedError) Unwrap() error { return e.Err }

// IsRetryable reports whether an execution failure may succeed on a later
// attempt. Limit, validation, not-found, and rule-violation failures are
// deterministic and never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var limitErr LimitError
	var notFound NotFoundError
	var invalid ValidationError
	var blocked RuleViolationError
	var dropped QueueSaturatedError
	switch {
	case errors.As(err, &limitErr),
		errors.As(err, &notFound),
		errors.As(err, &invalid),
		errors.As(err, &blocked),
		errors.As(err, &dropped):
		return false
	}
	return true
}
