package handler

import (
	"strings"
	"time"

	"complyhub/internal/catalog/models"
	"complyhub/internal/costing"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// ParentRequest re-parents a node. An empty parent_id makes it a root.
type ParentRequest[K any] struct {
	ParentID K `json:"parent_id"`
}

type SupersedeRequest struct {
	SuccessorID id.StandardID `json:"successor_id"`
}

func (r *SupersedeRequest) Validate() error {
	if r.SuccessorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "successor_id is required")
	}
	return nil
}

// TransitionRequest moves a control or domain to another lifecycle state.
type TransitionRequest struct {
	To string `json:"to"`
}

func (r *TransitionRequest) State() (lifecycle.State, error) {
	to := lifecycle.State(strings.TrimSpace(strings.ToLower(r.To)))
	if to == "" {
		return "", dErrors.New(dErrors.CodeValidation, "to is required")
	}
	if !to.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown state %q", r.To)
	}
	return to, nil
}

// RecordTestRequest records a manual or automated test run. A zero tested_at
// means now.
type RecordTestRequest struct {
	TestedAt time.Time           `json:"tested_at"`
	Result   costing.CheckResult `json:"result"`
}

func (r *RecordTestRequest) Validate() error {
	if !r.Result.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown check result %q", r.Result)
	}
	return nil
}

type ZoneAssignmentRequest struct {
	ZoneID id.ZoneID `json:"zone_id"`
}

type ComplianceStatusRequest struct {
	Status models.ComplianceStatus `json:"compliance_status"`
}

func (r *ComplianceStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown compliance status %q", r.Status)
	}
	return nil
}

// UpdateControlRequest is a partial update; absent fields are left unchanged.
type UpdateControlRequest struct {
	Name                  *string                `json:"name"`
	Reference             *string                `json:"reference"`
	Description           *string                `json:"description"`
	ControlType           *string                `json:"control_type"`
	Priority              *models.Priority       `json:"priority"`
	OwnerID               *id.ActorID            `json:"owner_id"`
	DomainID              *id.DomainID           `json:"domain_id"`
	State                 *lifecycle.State       `json:"state"`
	ImplementationMinutes *float64               `json:"implementation_time"`
	ImplementationCost    *float64               `json:"implementation_cost"`
	MaintenanceMinutes    *float64               `json:"maintenance_time"`
	AutomatedTestSeconds  *float64               `json:"automated_test_timing"`
	HourlyRate            *float64               `json:"hourly_rate"`
	Frequency             *costing.Frequency     `json:"test_frequency"`
	AutomatedAssessment   *bool                  `json:"automated_assessment"`
	ToolIDs               *[]id.AssessmentToolID `json:"assessment_tool_ids"`
}

func (r *UpdateControlRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown priority %q", *r.Priority)
	}
	if r.Frequency != nil {
		if _, err := costing.ParseFrequency(string(*r.Frequency)); err != nil {
			return err
		}
	}
	if r.State != nil && !r.State.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown state %q", *r.State)
	}
	return nil
}

func (r *UpdateControlRequest) Patch() models.ControlPatch {
	return models.ControlPatch{
		Name:                  r.Name,
		Reference:             r.Reference,
		Description:           r.Description,
		ControlType:           r.ControlType,
		Priority:              r.Priority,
		OwnerID:               r.OwnerID,
		DomainID:              r.DomainID,
		State:                 r.State,
		ImplementationMinutes: r.ImplementationMinutes,
		ImplementationCost:    r.ImplementationCost,
		MaintenanceMinutes:    r.MaintenanceMinutes,
		AutomatedTestSeconds:  r.AutomatedTestSeconds,
		HourlyRate:            r.HourlyRate,
		Frequency:             r.Frequency,
		AutomatedAssessment:   r.AutomatedAssessment,
		ToolIDs:               r.ToolIDs,
	}
}
