// Package tracker records what a user did with a feed card.
//
// Valid status graph:
//
//	SAVED ──► APPLIED
//	  │ ▲
//	  ▼ │
//	HIDDEN
//
// A card's first mark may be any status. APPLIED is terminal.
// APPLIED and HIDDEN cards are excluded from later feeds.
package tracker

import "fmt"

// Status values mirror the card_marks.status check constraint.
type Status string

const (
	StatusSaved   Status = "SAVED"
	StatusApplied Status = "APPLIED"
	StatusHidden  Status = "HIDDEN"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusSaved:  {StatusApplied, StatusHidden},
	StatusHidden: {StatusSaved},
	// APPLIED is terminal: no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusSaved, StatusApplied, StatusHidden:
		return st, nil
	}
	return "", fmt.Errorf("unknown card status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsExcluded returns true for statuses whose cards feeds must skip.
func IsExcluded(s Status) bool { return s == StatusApplied || s == StatusHidden }
