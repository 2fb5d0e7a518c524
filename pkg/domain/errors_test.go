package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryableClassification(t *testing.T) {
	transient := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"limit", LimitError{Entity: EntityRow, Limit: 10}, false},
		{"not found", NotFoundError{Entity: EntityTable, ID: "tbl"}, false},
		{"validation", ValidationError{Reason: "missing table id"}, false},
		{"rule violation", RuleViolationError{}, false},
		{"saturated", QueueSaturatedError{Key: "table/t", Attempts: 3, Err: transient}, false},
		{"wrapped limit", fmt.Errorf("apply: %w", LimitError{Entity: EntityCell, Limit: 5}), false},
		{"transient", transient, true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQueueSaturatedErrorUnwrap(t *testing.T) {
	cause := LimitError{Entity: EntityBase, Limit: 20}
	err := QueueSaturatedError{Key: "owner/u", Attempts: 3, Err: cause}
	var limit LimitError
	if !errors.As(err, &limit) || limit.Entity != EntityBase {
		t.Fatalf("expected unwrap to surface the limit error, got %v", err)
	}
}

func TestLimitErrorMessagesNameTheResource(t *testing.T) {
	a := LimitError{Entity: EntityRow, Limit: 100}.Error()
	b := LimitError{Entity: EntityColumn, Limit: 100}.Error()
	if a == b {
		t.Fatalf("row and column limit messages should differ: %q", a)
	}
}
