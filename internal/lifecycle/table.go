// Package lifecycle decides which control state changes are legal, who may make
// them, and which workflow stamps a successful change sets.
package lifecycle

// State is a control (or domain) workflow state.
type State string

const (
	StateDraft        State = "draft"
	StateReview       State = "review"
	StateApproved     State = "approved"
	StateImplementing State = "implementing"
	StateImplemented  State = "implemented"
	StateTesting      State = "testing"
	StateVerified     State = "verified"
	StateIneffective  State = "ineffective"
	StateRetired      State = "retired"
)

var allStates = []State{
	StateDraft, StateReview, StateApproved, StateImplementing, StateImplemented,
	StateTesting, StateVerified, StateIneffective, StateRetired,
}

func (s State) IsValid() bool {
	for _, st := range allStates {
		if s == st {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateRetired
}

// CountsAsImplemented is the derived "implemented" flag rolled up into statistics.
func (s State) CountsAsImplemented() bool {
	return s == StateImplemented || s == StateVerified
}

// Role is a permission granted by the identity provider.
type Role string

const (
	RoleManager  Role = "manager"
	RoleReviewer Role = "reviewer"
)

// Stamp names a workflow field set as a side effect of a transition.
type Stamp string

const (
	StampApproval       Stamp = "approval"
	StampImplementation Stamp = "implementation"
	StampVerification   Stamp = "verification"
	StampRetirement     Stamp = "retirement"
)

// Precondition is a named guard evaluated against the subject.
type Precondition string

const (
	PreOwnerAndFrequency Precondition = "owner_and_frequency"
	PreRecentTest        Precondition = "recent_test"
)

// rule describes how to reach one target state.
type rule struct {
	from         []State // nil means "any non-terminal state except the target"
	role         Role
	precondition []Precondition
	stamp        Stamp
}

// rules is the single source of truth for the workflow.
var rules = map[State]rule{
	StateReview: {
		from:         []State{StateDraft},
		precondition: []Precondition{PreOwnerAndFrequency},
	},
	StateApproved: {
		from:         []State{StateDraft, StateReview},
		role:         RoleManager,
		precondition: []Precondition{PreOwnerAndFrequency},
		stamp:        StampApproval,
	},
	StateImplementing: {
		from: []State{StateApproved},
	},
	StateImplemented: {
		stamp: StampImplementation,
	},
	StateTesting: {
		from: []State{StateImplemented, StateIneffective},
	},
	StateVerified: {
		from:         []State{StateImplemented, StateTesting},
		role:         RoleReviewer,
		precondition: []Precondition{PreRecentTest},
		stamp:        StampVerification,
	},
	StateIneffective: {
		from: []State{StateImplemented, StateTesting, StateVerified},
		role: RoleReviewer,
	},
	StateRetired: {
		role:  RoleManager,
		stamp: StampRetirement,
	},
}

func (r rule) allowsFrom(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if r.from == nil {
		return from != to
	}
	for _, s := range r.from {
		if s == from {
			return true
		}
	}
	return false
}

// Allowed is the structural part of the table: is there an edge from -> to at all,
// ignoring roles and preconditions.
func Allowed(from, to State) bool {
	r, ok := rules[to]
	if !ok {
		return false
	}
	return r.allowsFrom(from, to)
}

// RequiredRole returns the role needed to enter to, or "" when none.
func RequiredRole(to State) Role {
	return rules[to].role
}

// Targets lists every state reachable from from, in declaration order.
func Targets(from State) []State {
	var out []State
	for _, s := range allStates {
		if Allowed(from, s) {
			out = append(out, s)
		}
	}
	return out
}
