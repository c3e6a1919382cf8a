package models

import (
	"strings"
	"time"

	"complyhub/internal/costing"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

type CreateStandardRequest struct {
	Name            string        `json:"name" yaml:"name"`
	Title           string        `json:"title" yaml:"title"`
	Version         string        `json:"version" yaml:"version"`
	Type            StandardType  `json:"standard_type" yaml:"standard_type"`
	IssuingBody     string        `json:"issuing_body" yaml:"issuing_body"`
	PublicationDate time.Time     `json:"publication_date" yaml:"publication_date"`
	EffectiveDate   time.Time     `json:"effective_date" yaml:"effective_date"`
	ExpiryDate      time.Time     `json:"expiry_date" yaml:"expiry_date"`
	CategoryID      id.CategoryID `json:"category_id" yaml:"category_id"`
	ParentID        id.StandardID `json:"parent_id" yaml:"parent_id"`
	Sequence        int           `json:"sequence" yaml:"sequence"`
}

type CreateCategoryRequest struct {
	Name     string        `json:"name" yaml:"name"`
	ParentID id.CategoryID `json:"parent_id" yaml:"parent_id"`
	Sequence int           `json:"sequence" yaml:"sequence"`
}

type CreateDomainRequest struct {
	StandardID id.StandardID `json:"standard_id" yaml:"standard_id"`
	ParentID   id.DomainID   `json:"parent_id" yaml:"parent_id"`
	ZoneID     id.ZoneID     `json:"zone_id" yaml:"zone_id"`
	Name       string        `json:"name" yaml:"name"`
	Code       string        `json:"code" yaml:"code"`
	Sequence   int           `json:"sequence" yaml:"sequence"`
}

type CreateRequirementRequest struct {
	StandardID id.StandardID    `json:"standard_id" yaml:"standard_id"`
	ParentID   id.RequirementID `json:"parent_id" yaml:"parent_id"`
	Name       string           `json:"name" yaml:"name"`
	Code       string           `json:"code" yaml:"code"`
	Sequence   int              `json:"sequence" yaml:"sequence"`
}

type CreateZoneRequest struct {
	StandardID id.StandardID `json:"standard_id" yaml:"standard_id"`
	Name       string        `json:"name" yaml:"name"`
	Code       string        `json:"code" yaml:"code"`
}

type CreateAuditQuestionRequest struct {
	RequirementID    id.RequirementID `json:"requirement_id" yaml:"requirement_id"`
	Question         string           `json:"question" yaml:"question"`
	ExpectedEvidence string           `json:"expected_evidence" yaml:"expected_evidence"`
}

type CreateAssessmentToolRequest struct {
	Name   string   `json:"name" yaml:"name"`
	Title  string   `json:"title" yaml:"title"`
	Type   ToolType `json:"tool_type" yaml:"tool_type"`
	Vendor string   `json:"vendor" yaml:"vendor"`
	URL    string   `json:"tool_url" yaml:"tool_url"`
}

// CreateControlRequest carries the initial field values of a control.
// New controls always start in draft.
type CreateControlRequest struct {
	StandardID            id.StandardID         `json:"standard_id" yaml:"standard_id"`
	DomainID              id.DomainID           `json:"domain_id" yaml:"domain_id"`
	Name                  string                `json:"name" yaml:"name"`
	Reference             string                `json:"reference" yaml:"reference"`
	Description           string                `json:"description" yaml:"description"`
	ControlType           string                `json:"control_type" yaml:"control_type"`
	Priority              Priority              `json:"priority" yaml:"priority"`
	OwnerID               id.ActorID            `json:"owner_id" yaml:"owner_id"`
	ImplementationMinutes float64               `json:"implementation_time" yaml:"implementation_time"`
	ImplementationCost    float64               `json:"implementation_cost" yaml:"implementation_cost"`
	MaintenanceMinutes    float64               `json:"maintenance_time" yaml:"maintenance_time"`
	AutomatedTestSeconds  float64               `json:"automated_test_timing" yaml:"automated_test_timing"`
	HourlyRate            float64               `json:"hourly_rate" yaml:"hourly_rate"`
	Frequency             costing.Frequency     `json:"test_frequency" yaml:"test_frequency"`
	AutomatedAssessment   bool                  `json:"automated_assessment" yaml:"automated_assessment"`
	ToolIDs               []id.AssessmentToolID `json:"assessment_tool_ids" yaml:"assessment_tool_ids"`
}

func (r *CreateControlRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Reference = strings.TrimSpace(r.Reference)
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
}

func (r *CreateControlRequest) Validate() error {
	if r.StandardID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "standard_id is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Frequency != "" && !r.Frequency.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown test frequency %q", r.Frequency)
	}
	if !r.Priority.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown priority %q", r.Priority)
	}
	return nil
}

// Patch expresses the request as a field update applied to a fresh draft control.
func (r *CreateControlRequest) Patch() ControlPatch {
	return ControlPatch{
		Reference:             &r.Reference,
		Description:           &r.Description,
		ControlType:           &r.ControlType,
		Priority:              &r.Priority,
		OwnerID:               &r.OwnerID,
		DomainID:              &r.DomainID,
		ImplementationMinutes: &r.ImplementationMinutes,
		ImplementationCost:    &r.ImplementationCost,
		MaintenanceMinutes:    &r.MaintenanceMinutes,
		AutomatedTestSeconds:  &r.AutomatedTestSeconds,
		HourlyRate:            &r.HourlyRate,
		Frequency:             &r.Frequency,
		AutomatedAssessment:   &r.AutomatedAssessment,
		ToolIDs:               &r.ToolIDs,
	}
}
