// Package status defines the case lifecycle states and the transition table
// that governs them. The table is the single source of truth: handlers,
// services and repositories never compare status strings directly.
package status

import (
	"fmt"

	"github.com/junceapp/caseflow/internal/errs"
)

// Status is a case lifecycle state.
type Status string

// Lifecycle states in workflow order.
const (
	PendingSubmit Status = "pending_submit" // claim rejected back to the claimant, not yet resubmitted
	PendingReview Status = "pending_review" // submitted, waiting for first review
	Reviewed      Status = "reviewed"       // passed first review
	Accepted      Status = "accepted"       // formally accepted for handling
	InProgress    Status = "in_progress"    // actively being pursued
	Success       Status = "success"        // resolved in the claimant's favor
	Failure       Status = "failure"        // resolved against the claimant
	Closed        Status = "closed"         // administratively closed
)

// All lists every known status in workflow order.
var All = []Status{
	PendingSubmit,
	PendingReview,
	Reviewed,
	Accepted,
	InProgress,
	Success,
	Failure,
	Closed,
}

// Operation is an action applied to a case by an actor.
type Operation string

// Lifecycle operations.
const (
	OpSubmit Operation = "submit" // claimant submits or resubmits a case
	OpAccept Operation = "accept" // reviewer advances the case
	OpReject Operation = "reject" // reviewer sends the case back
	OpClose  Operation = "close"  // staff closes the case explicitly
)

// transitions maps current state x operation to the next state.
// OpSubmit appears only for the virtual pre-submission state: creation and
// update re-seed a case to PendingReview through it.
var transitions = map[Status]map[Operation]Status{
	PendingSubmit: {
		OpSubmit: PendingReview,
	},
	PendingReview: {
		OpAccept: Reviewed,
		OpReject: PendingSubmit,
	},
	Reviewed: {
		OpAccept: Accepted,
		OpReject: PendingReview,
	},
	Accepted: {
		OpAccept: InProgress,
		OpReject: PendingSubmit,
		OpClose:  Closed,
	},
	InProgress: {
		OpAccept: Success,
		OpReject: Failure,
		OpClose:  Closed,
	},
	Success: {
		OpClose: Closed,
	},
	Failure: {
		OpClose: Closed,
	},
	Closed: {
		OpAccept: Closed, // idempotent, see repo short-circuit
		OpClose:  Closed,
	},
}

func init() {
	known := make(map[Status]bool, len(All))
	for _, s := range All {
		known[s] = true
	}
	for from, ops := range transitions {
		if !known[from] {
			panic(fmt.Sprintf("status: transition from unknown status %q", from))
		}
		for op, to := range ops {
			if !known[to] {
				panic(fmt.Sprintf("status: transition %q/%q to unknown status %q", from, op, to))
			}
		}
	}
}

// Valid reports whether s is a member of the fixed status set.
func Valid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s is a terminal outcome. Terminal destinations
// additionally stamp result and finish_at on the case row.
func Terminal(s Status) bool {
	return s == Success || s == Failure || s == Closed
}

// Next resolves the destination state for applying op to current.
// Unknown statuses and disallowed operations fail with errs.ErrInvalidState.
func Next(current Status, op Operation) (Status, error) {
	ops, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", errs.ErrInvalidState, current)
	}
	to, ok := ops[op]
	if !ok {
		return "", fmt.Errorf("%w: operation %q not allowed from %q", errs.ErrInvalidState, op, current)
	}
	return to, nil
}
