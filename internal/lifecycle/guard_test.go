package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
	now      time.Time
	manager  Actor
	reviewer Actor
	nobody   Actor
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s.manager = Actor{ID: id.ActorID(uuid.New()), Roles: []Role{RoleManager}}
	s.reviewer = Actor{ID: id.ActorID(uuid.New()), Roles: []Role{RoleReviewer}}
	s.nobody = Actor{ID: id.ActorID(uuid.New())}
}

func ready(state State) Subject {
	return Subject{State: state, HasOwner: true, HasFrequency: true}
}

func (s *GuardSuite) TestIllegalEdgeIsDenied() {
	_, err := Authorize(ready(StateDraft), StateImplementing, s.manager, s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))
}

func (s *GuardSuite) TestRoleRequirements() {
	s.Run("approval needs manager", func() {
		_, err := Authorize(ready(StateReview), StateApproved, s.reviewer, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))

		eff, err := Authorize(ready(StateReview), StateApproved, s.manager, s.now)
		s.Require().NoError(err)
		s.Equal(StampApproval, eff.Stamp)
		s.Equal(s.manager.ID, eff.By)
		s.Equal(s.now, eff.At)
	})

	s.Run("manager does not imply reviewer", func() {
		subj := ready(StateTesting)
		subj.LastTestDate = s.now.AddDate(0, 0, -1)
		_, err := Authorize(subj, StateVerified, s.manager, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))
	})

	s.Run("retire needs manager", func() {
		_, err := Authorize(ready(StateImplemented), StateRetired, s.nobody, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))

		eff, err := Authorize(ready(StateImplemented), StateRetired, s.manager, s.now)
		s.Require().NoError(err)
		s.Equal(StampRetirement, eff.Stamp)
	})
}

func (s *GuardSuite) TestRequiredFields() {
	s.Run("review without owner", func() {
		_, err := Authorize(Subject{State: StateDraft, HasFrequency: true}, StateReview, s.nobody, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredField))
	})

	s.Run("approval without frequency", func() {
		_, err := Authorize(Subject{State: StateDraft, HasOwner: true}, StateApproved, s.manager, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredField))
	})

	s.Run("other states need neither", func() {
		s.NoError(ValidateRequiredFields(StateImplementing, false, false))
		s.NoError(ValidateRequiredFields(StateDraft, false, false))
	})
}

func (s *GuardSuite) TestVerificationNeedsRecentTest() {
	s.Run("test 45 days old", func() {
		subj := ready(StateImplemented)
		subj.LastTestDate = s.now.AddDate(0, 0, -45)
		_, err := Authorize(subj, StateVerified, s.reviewer, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))
	})

	s.Run("never tested", func() {
		_, err := Authorize(ready(StateTesting), StateVerified, s.reviewer, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied))
	})

	s.Run("test 10 days old", func() {
		subj := ready(StateImplemented)
		subj.LastTestDate = s.now.AddDate(0, 0, -10)
		eff, err := Authorize(subj, StateVerified, s.reviewer, s.now)
		s.Require().NoError(err)
		s.Equal(StampVerification, eff.Stamp)
		s.Equal(s.reviewer.ID, eff.By)
	})
}

func (s *GuardSuite) TestRetiredIsTerminal() {
	for _, to := range allStates {
		_, err := Authorize(ready(StateRetired), to, s.manager, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeTransitionDenied), "retired -> %s", to)
	}
}

func (s *GuardSuite) TestUnknownTarget() {
	_, err := Authorize(ready(StateDraft), State("archived"), s.manager, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateDraft, StateReview, true},
		{StateDraft, StateApproved, true},
		{StateReview, StateApproved, true},
		{StateApproved, StateImplementing, true},
		{StateDraft, StateImplemented, true},
		{StateIneffective, StateImplemented, true},
		{StateImplemented, StateImplemented, false},
		{StateImplemented, StateTesting, true},
		{StateIneffective, StateTesting, true},
		{StateVerified, StateIneffective, true},
		{StateDraft, StateRetired, true},
		{StateVerified, StateRetired, true},
		{StateRetired, StateRetired, false},
		{StateRetired, StateDraft, false},
		{StateDraft, StateDraft, false},
		{StateApproved, StateReview, false},
		{StateTesting, StateApproved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCountsAsImplemented(t *testing.T) {
	assert.True(t, StateImplemented.CountsAsImplemented())
	assert.True(t, StateVerified.CountsAsImplemented())
	assert.False(t, StateTesting.CountsAsImplemented())
	assert.False(t, StateIneffective.CountsAsImplemented())
}

func TestTargetsFromApproved(t *testing.T) {
	assert.Equal(t, []State{StateImplementing, StateImplemented, StateRetired}, Targets(StateApproved))
}
