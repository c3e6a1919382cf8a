package lifecycle

import (
	"slices"
	"time"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// RecentTestWindow bounds how old the last test may be when verifying a control.
const RecentTestWindow = 30 * 24 * time.Hour

// Actor is the identity performing a transition.
type Actor struct {
	ID    id.ActorID
	Roles []Role
}

func (a Actor) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

// Subject is the part of a control the guard inspects.
type Subject struct {
	State        State
	HasOwner     bool
	HasFrequency bool
	LastTestDate time.Time
}

// Effect is the outcome of an authorized transition. Stamps are applied by the
// caller onto its own record type.
type Effect struct {
	From  State
	To    State
	Stamp Stamp
	By    id.ActorID
	At    time.Time
}

// Authorize checks an edge, the actor's roles and the target's preconditions.
// A no-op request (from == to) is rejected as TransitionDenied so callers never
// restamp a record.
func Authorize(subject Subject, to State, actor Actor, now time.Time) (Effect, error) {
	if !to.IsValid() {
		return Effect{}, dErrors.Newf(dErrors.CodeValidation, "unknown state %q", to)
	}
	r, ok := rules[to]
	if !ok || !r.allowsFrom(subject.State, to) {
		return Effect{}, dErrors.Newf(dErrors.CodeTransitionDenied, "transition %s -> %s is not allowed", subject.State, to)
	}
	if r.role != "" && !actor.HasRole(r.role) {
		return Effect{}, dErrors.Newf(dErrors.CodeTransitionDenied, "transition to %s requires role %s", to, r.role)
	}
	for _, pre := range r.precondition {
		if err := check(pre, subject, to, now); err != nil {
			return Effect{}, err
		}
	}
	return Effect{From: subject.State, To: to, Stamp: r.stamp, By: actor.ID, At: now}, nil
}

func check(pre Precondition, subject Subject, to State, now time.Time) error {
	switch pre {
	case PreOwnerAndFrequency:
		return ValidateRequiredFields(to, subject.HasOwner, subject.HasFrequency)
	case PreRecentTest:
		if subject.LastTestDate.IsZero() {
			return dErrors.New(dErrors.CodeTransitionDenied, "control has never been tested")
		}
		if now.Sub(subject.LastTestDate) > RecentTestWindow {
			return dErrors.Newf(dErrors.CodeTransitionDenied, "last test on %s is older than 30 days", subject.LastTestDate.Format(time.DateOnly))
		}
	}
	return nil
}

// ValidateRequiredFields enforces that a control in review or approved has an
// owner and a test frequency. It is also applied to plain field updates so that
// clearing the owner of an approved control is rejected.
func ValidateRequiredFields(state State, hasOwner, hasFrequency bool) error {
	if state != StateReview && state != StateApproved {
		return nil
	}
	if !hasOwner {
		return dErrors.Newf(dErrors.CodeMissingRequiredField, "owner is required in state %s", state)
	}
	if !hasFrequency {
		return dErrors.Newf(dErrors.CodeMissingRequiredField, "testing frequency is required in state %s", state)
	}
	return nil
}
