package service

import (
	"fmt"
	"strings"
)

// FailureIsolation decides what a per-item error does to the rest of a batch.
type FailureIsolation int

const (
	// AllOrNothing rolls back the whole batch on the first item error.
	AllOrNothing FailureIsolation = iota
	// BestEffort records the item error and moves on; the batch still commits.
	BestEffort
)

func ParseFailureIsolation(s string) (FailureIsolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all-or-nothing", "all_or_nothing", "atomic":
		return AllOrNothing, nil
	case "best-effort", "best_effort", "partial":
		return BestEffort, nil
	default:
		return AllOrNothing, fmt.Errorf("unknown failure isolation %q", s)
	}
}

func (f FailureIsolation) String() string {
	if f == BestEffort {
		return "best-effort"
	}
	return "all-or-nothing"
}
