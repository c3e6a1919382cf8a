package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyhub/internal/costing"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func TestNewStandard(t *testing.T) {
	s, err := NewStandard(id.NewStandardID(), " ISO 27001 ", "Information security", "2022", "", now)
	require.NoError(t, err)
	assert.Equal(t, "ISO 27001:2022", s.Code)
	assert.Equal(t, StandardTypeISO, s.Type)
	assert.Equal(t, StandardDraft, s.State)
	assert.True(t, s.Active)

	_, err = NewStandard(id.NewStandardID(), "ISO", "", "", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestStandardValidateDates(t *testing.T) {
	s := &Standard{PublicationDate: now, EffectiveDate: now.AddDate(0, 1, 0), ExpiryDate: now.AddDate(3, 0, 0)}
	require.NoError(t, s.ValidateDates())

	s.EffectiveDate = now.AddDate(0, -1, 0)
	assert.True(t, dErrors.HasCode(s.ValidateDates(), dErrors.CodeValidation))

	// Unset dates are skipped, so expiry is compared with publication directly.
	s = &Standard{PublicationDate: now, ExpiryDate: now.AddDate(0, 0, -1)}
	assert.Error(t, s.ValidateDates())
}

func TestStandardCanSupersede(t *testing.T) {
	a, b, c := id.NewStandardID(), id.NewStandardID(), id.NewStandardID()
	edges := map[id.StandardID]id.StandardID{b: c, c: a}
	chain := func(s id.StandardID) id.StandardID { return edges[s] }

	std := &Standard{ID: a, State: StandardActive}
	err := std.CanSupersede(b, chain)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCycleDetected))

	err = std.CanSupersede(a, chain)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCycleDetected))

	delete(edges, c)
	require.NoError(t, std.CanSupersede(b, chain))
	std.ApplySupersede(b, now)
	assert.Equal(t, StandardSuperseded, std.State)
	assert.Equal(t, b, std.SupersededBy)
}

func TestCompleteCode(t *testing.T) {
	assert.Equal(t, "4.1", CompleteCode("4", "1"))
	assert.Equal(t, "4.1.2", CompleteCode("4.1", "2"))
	assert.Equal(t, "1", CompleteCode("", "1"))
	assert.Equal(t, "", CompleteCode("4", ""))
	assert.Equal(t, "Security / Cloud", JoinCompleteName([]string{"Security", "Cloud"}))
}

func TestControlLifecycle(t *testing.T) {
	manager := lifecycle.Actor{ID: id.ActorID(uuid.New()), Roles: []lifecycle.Role{lifecycle.RoleManager}}
	reviewer := lifecycle.Actor{ID: id.ActorID(uuid.New()), Roles: []lifecycle.Role{lifecycle.RoleReviewer}}

	c, err := NewControl(id.NewControlID(), id.NewStandardID(), "Backups", now)
	require.NoError(t, err)
	c.OwnerID = manager.ID
	c.Frequency = costing.FrequencyQuarterly
	c.MaintenanceMinutes = 10
	c.HourlyRate = 60
	c.Recompute()
	assert.InDelta(t, 40.0, c.Figures.MaintenanceCost, 1e-9)

	eff, err := c.CanTransition(lifecycle.StateApproved, manager, now)
	require.NoError(t, err)
	c.ApplyTransition(eff)
	assert.Equal(t, now, c.ApprovalDate)
	assert.Equal(t, manager.ID, c.ApproverID)

	eff, err = c.CanTransition(lifecycle.StateImplemented, manager, now)
	require.NoError(t, err)
	c.ApplyTransition(eff)
	assert.True(t, c.Implemented)
	assert.InDelta(t, 50.0, c.EffectivenessScore, 1e-9)

	c.ApplyTestResult(now.AddDate(0, 0, -10), costing.CheckPass, now)
	assert.Equal(t, 1, c.TestCount)
	assert.Equal(t, now.AddDate(0, 0, 80), c.NextTestDate)

	eff, err = c.CanTransition(lifecycle.StateVerified, reviewer, now)
	require.NoError(t, err)
	c.ApplyTransition(eff)
	assert.Equal(t, reviewer.ID, c.VerifierID)
	assert.True(t, c.Implemented)

	eff, err = c.CanTransition(lifecycle.StateRetired, manager, now)
	require.NoError(t, err)
	c.ApplyTransition(eff)
	assert.False(t, c.Active)
	assert.False(t, c.Implemented)
	assert.Equal(t, now, c.RetirementDate)
}

func TestControlValidateRequiresOwnerInReview(t *testing.T) {
	c, err := NewControl(id.NewControlID(), id.NewStandardID(), "Access review", now)
	require.NoError(t, err)
	c.State = lifecycle.StateReview
	c.Frequency = costing.FrequencyAnnual
	assert.True(t, dErrors.HasCode(c.Validate(), dErrors.CodeMissingRequiredField))
}

func TestControlIsDueForTest(t *testing.T) {
	c, err := NewControl(id.NewControlID(), id.NewStandardID(), "Patching", now)
	require.NoError(t, err)
	c.State = lifecycle.StateImplemented
	c.Frequency = costing.FrequencyMonthly
	c.LastTestDate = now.AddDate(0, 0, -30)
	c.Recompute()
	assert.True(t, c.IsDueForTest(now))
	assert.False(t, c.IsDueForTest(now.AddDate(0, 0, -1)))

	c.Active = false
	assert.False(t, c.IsDueForTest(now))
}

func TestControlPatch(t *testing.T) {
	c, err := NewControl(id.NewControlID(), id.NewStandardID(), "Logging", now)
	require.NoError(t, err)
	clone := c.Clone()

	minutes := 30.0
	freq := costing.FrequencyMonthly
	patch := ControlPatch{MaintenanceMinutes: &minutes, Frequency: &freq}
	assert.True(t, patch.TouchesInputs())
	patch.ApplyFields(clone, now)

	assert.InDelta(t, 360.0, clone.Figures.AnnualMaintenanceMinutes, 1e-9)
	assert.Zero(t, c.Figures.AnnualMaintenanceMinutes)
}

func TestDomainLinks(t *testing.T) {
	d, err := NewDomain(id.NewDomainID(), id.NewStandardID(), "Access control", "A.9", now)
	require.NoError(t, err)
	c := id.NewControlID()
	assert.True(t, d.LinkControl(c, now))
	assert.False(t, d.LinkControl(c, now))
	assert.True(t, d.UnlinkControl(c, now))
	assert.False(t, d.UnlinkControl(c, now))

	assert.NoError(t, d.CanTransitionTo(lifecycle.StateReview))
	assert.True(t, dErrors.HasCode(d.CanTransitionTo(lifecycle.StateVerified), dErrors.CodeTransitionDenied))
}

func TestZoneRecount(t *testing.T) {
	std := id.NewStandardID()
	z, err := NewZone(id.NewZoneID(), std, "Perimeter", "Z1", now)
	require.NoError(t, err)

	inZone := &Domain{ZoneID: z.ID, ControlIDs: []id.ControlID{id.NewControlID(), id.NewControlID()}}
	elsewhere := &Domain{ControlIDs: []id.ControlID{id.NewControlID()}}
	z.Recount([]*Domain{inZone, elsewhere})
	assert.Equal(t, 1, z.DomainCount)
	assert.Equal(t, 2, z.ControlCount)
}
