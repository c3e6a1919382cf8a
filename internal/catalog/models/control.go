package models

import (
	"slices"
	"strings"
	"time"

	"complyhub/internal/aggregation"
	"complyhub/internal/costing"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Control is the leaf unit of compliance work.
//
// Invariants:
//   - StandardID is immutable after construction
//   - Figures, Implemented, EffectivenessScore and NextTestDate are derived;
//     Recompute is the only writer
//   - State changes only through ApplyTransition
//   - In review or approved, OwnerID and Frequency are set
type Control struct {
	ID          id.ControlID  `json:"id"`
	StandardID  id.StandardID `json:"standard_id"`
	DomainID    id.DomainID   `json:"domain_id,omitzero"`
	Name        string        `json:"name"`
	Reference   string        `json:"reference,omitempty"`
	Description string        `json:"description,omitempty"`
	ControlType string        `json:"control_type,omitempty"`
	Priority    Priority      `json:"priority"`
	OwnerID     id.ActorID    `json:"owner_id,omitzero"`

	State       lifecycle.State `json:"state"`
	Implemented bool            `json:"implemented"`

	ImplementationMinutes float64           `json:"implementation_time"`
	ImplementationCost    float64           `json:"implementation_cost"`
	MaintenanceMinutes    float64           `json:"maintenance_time"`
	AutomatedTestSeconds  float64           `json:"automated_test_timing"`
	HourlyRate            float64           `json:"hourly_rate"`
	Frequency             costing.Frequency `json:"test_frequency,omitempty"`
	Figures               costing.Figures   `json:"figures"`

	LastTestDate time.Time `json:"last_test_date,omitzero"`
	NextTestDate time.Time `json:"next_test_date,omitzero"`
	TestCount    int       `json:"test_count"`

	AutomatedAssessment  bool                  `json:"automated_assessment"`
	AutomatedCheckResult costing.CheckResult   `json:"automated_check_result,omitempty"`
	LastAutomatedCheck   time.Time             `json:"last_automated_check,omitzero"`
	EffectivenessScore   float64               `json:"effectiveness_score"`
	ToolIDs              []id.AssessmentToolID `json:"assessment_tool_ids"`

	ApprovalDate       time.Time  `json:"approval_date,omitzero"`
	ApproverID         id.ActorID `json:"approver_id,omitzero"`
	ImplementationDate time.Time  `json:"implementation_date,omitzero"`
	VerificationDate   time.Time  `json:"verification_date,omitzero"`
	VerifierID         id.ActorID `json:"verifier_id,omitzero"`
	RetirementDate     time.Time  `json:"retirement_date,omitzero"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewControl(controlID id.ControlID, standardID id.StandardID, name string, now time.Time) (*Control, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "control name cannot be empty")
	}
	if standardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "control requires a standard")
	}
	c := &Control{
		ID:         controlID,
		StandardID: standardID,
		Name:       name,
		Priority:   PriorityMedium,
		State:      lifecycle.StateDraft,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.Recompute()
	return c, nil
}

// Clone returns a deep copy so a rejected write never leaks into the stored record.
func (c *Control) Clone() *Control {
	out := *c
	out.ToolIDs = slices.Clone(c.ToolIDs)
	return &out
}

func (c *Control) Inputs() costing.Inputs {
	return costing.Inputs{
		ImplementationMinutes: c.ImplementationMinutes,
		ImplementationCost:    c.ImplementationCost,
		MaintenanceMinutes:    c.MaintenanceMinutes,
		AutomatedTestSeconds:  c.AutomatedTestSeconds,
		Frequency:             c.Frequency,
		HourlyRate:            c.HourlyRate,
	}
}

// Recompute refreshes every derived field from the current inputs and state.
func (c *Control) Recompute() {
	c.Figures = costing.Compute(c.Inputs())
	c.Implemented = c.State.CountsAsImplemented()
	c.EffectivenessScore = costing.EffectivenessScore(c.Implemented, c.AutomatedAssessment, c.AutomatedCheckResult)
	if next, ok := costing.NextTestDate(c.LastTestDate, c.Frequency); ok {
		c.NextTestDate = next
	} else {
		c.NextTestDate = time.Time{}
	}
}

// Validate checks the record-level invariants that hold in every state.
func (c *Control) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "control name cannot be empty")
	}
	if c.Frequency != "" && !c.Frequency.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown test frequency %q", c.Frequency)
	}
	if !c.Priority.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown priority %q", c.Priority)
	}
	if !c.AutomatedCheckResult.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown check result %q", c.AutomatedCheckResult)
	}
	if !c.State.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown state %q", c.State)
	}
	return lifecycle.ValidateRequiredFields(c.State, !c.OwnerID.IsNil(), c.Frequency != "")
}

func (c *Control) Subject() lifecycle.Subject {
	return lifecycle.Subject{
		State:        c.State,
		HasOwner:     !c.OwnerID.IsNil(),
		HasFrequency: c.Frequency != "",
		LastTestDate: c.LastTestDate,
	}
}

// CanTransition asks the lifecycle guard whether actor may move the control to.
// Use with ApplyTransition in Execute callbacks.
func (c *Control) CanTransition(to lifecycle.State, actor lifecycle.Actor, now time.Time) (lifecycle.Effect, error) {
	if !c.Active && to != lifecycle.StateRetired {
		return lifecycle.Effect{}, dErrors.New(dErrors.CodeTransitionDenied, "control is archived")
	}
	return lifecycle.Authorize(c.Subject(), to, actor, now)
}

// ApplyTransition sets the new state and the stamps the effect carries.
// Call CanTransition first.
func (c *Control) ApplyTransition(e lifecycle.Effect) {
	c.State = e.To
	switch e.Stamp {
	case lifecycle.StampApproval:
		c.ApprovalDate = e.At
		c.ApproverID = e.By
	case lifecycle.StampImplementation:
		c.ImplementationDate = e.At
	case lifecycle.StampVerification:
		c.VerificationDate = e.At
		c.VerifierID = e.By
	case lifecycle.StampRetirement:
		c.RetirementDate = e.At
		c.Active = false
	}
	c.UpdatedAt = e.At
	c.Recompute()
}

// ApplyTestResult records a completed test and refreshes the next due date.
func (c *Control) ApplyTestResult(testedAt time.Time, result costing.CheckResult, now time.Time) {
	c.LastTestDate = testedAt
	c.TestCount++
	if result != "" {
		c.AutomatedCheckResult = result
		c.LastAutomatedCheck = testedAt
	}
	c.UpdatedAt = now
	c.Recompute()
}

// IsDueForTest reports whether an active, implemented control's next test is due on or before day.
func (c *Control) IsDueForTest(day time.Time) bool {
	if !c.Active || !c.Implemented || c.NextTestDate.IsZero() {
		return false
	}
	return !c.NextTestDate.After(day)
}

func (c *Control) Facts() aggregation.ControlFacts {
	return aggregation.ControlFacts{
		ID:                 c.ID,
		StandardID:         c.StandardID,
		Implemented:        c.Implemented,
		ImplementationCost: c.ImplementationCost,
		Figures:            c.Figures,
	}
}

// ControlPatch is a generic field update. Nil fields are left untouched.
// A State change is routed through the lifecycle guard by the service.
type ControlPatch struct {
	Name                  *string
	Reference             *string
	Description           *string
	ControlType           *string
	Priority              *Priority
	OwnerID               *id.ActorID
	DomainID              *id.DomainID
	State                 *lifecycle.State
	ImplementationMinutes *float64
	ImplementationCost    *float64
	MaintenanceMinutes    *float64
	AutomatedTestSeconds  *float64
	HourlyRate            *float64
	Frequency             *costing.Frequency
	AutomatedAssessment   *bool
	ToolIDs               *[]id.AssessmentToolID
}

// IsEmpty reports whether the patch sets no field at all.
func (p ControlPatch) IsEmpty() bool {
	return p == ControlPatch{}
}

// TouchesInputs reports whether the patch changes any costing input.
func (p ControlPatch) TouchesInputs() bool {
	return p.ImplementationMinutes != nil || p.ImplementationCost != nil ||
		p.MaintenanceMinutes != nil || p.AutomatedTestSeconds != nil ||
		p.HourlyRate != nil || p.Frequency != nil
}

// ApplyFields copies every non-state field of p onto c. State is left to the caller.
func (p ControlPatch) ApplyFields(c *Control, now time.Time) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Reference != nil {
		c.Reference = *p.Reference
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.ControlType != nil {
		c.ControlType = *p.ControlType
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.OwnerID != nil {
		c.OwnerID = *p.OwnerID
	}
	if p.DomainID != nil {
		c.DomainID = *p.DomainID
	}
	if p.ImplementationMinutes != nil {
		c.ImplementationMinutes = *p.ImplementationMinutes
	}
	if p.ImplementationCost != nil {
		c.ImplementationCost = *p.ImplementationCost
	}
	if p.MaintenanceMinutes != nil {
		c.MaintenanceMinutes = *p.MaintenanceMinutes
	}
	if p.AutomatedTestSeconds != nil {
		c.AutomatedTestSeconds = *p.AutomatedTestSeconds
	}
	if p.HourlyRate != nil {
		c.HourlyRate = *p.HourlyRate
	}
	if p.Frequency != nil {
		c.Frequency = *p.Frequency
	}
	if p.AutomatedAssessment != nil {
		c.AutomatedAssessment = *p.AutomatedAssessment
	}
	if p.ToolIDs != nil {
		c.ToolIDs = slices.Clone(*p.ToolIDs)
	}
	c.UpdatedAt = now
	c.Recompute()
}
