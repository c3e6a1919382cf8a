package models

import (
	"strings"
	"time"

	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// ComplianceStatus is the operator's assessment of a requirement.
type ComplianceStatus string

const (
	ComplianceCompliant     ComplianceStatus = "compliant"
	CompliancePartial       ComplianceStatus = "partial"
	ComplianceNonCompliant  ComplianceStatus = "non_compliant"
	ComplianceNotApplicable ComplianceStatus = "not_applicable"
	ComplianceNotEvaluated  ComplianceStatus = "not_evaluated"
)

func (s ComplianceStatus) IsValid() bool {
	switch s {
	case ComplianceCompliant, CompliancePartial, ComplianceNonCompliant, ComplianceNotApplicable, ComplianceNotEvaluated:
		return true
	}
	return false
}

// Requirement is a clause of a standard. CompleteCode concatenates ancestor codes ("4.1").
type Requirement struct {
	ID               id.RequirementID   `json:"id"`
	StandardID       id.StandardID      `json:"standard_id"`
	Name             string             `json:"name"`
	Code             string             `json:"code"`
	CompleteCode     string             `json:"complete_code"`
	ParentID         id.RequirementID   `json:"parent_id,omitzero"`
	Sequence         int                `json:"sequence"`
	Position         hierarchy.Position `json:"position"`
	ComplianceStatus ComplianceStatus   `json:"compliance_status"`
	Active           bool               `json:"active"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func NewRequirement(requirementID id.RequirementID, standardID id.StandardID, name, code string, now time.Time) (*Requirement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "requirement name cannot be empty")
	}
	if standardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "requirement requires a standard")
	}
	code = strings.TrimSpace(code)
	return &Requirement{
		ID:               requirementID,
		StandardID:       standardID,
		Name:             name,
		Code:             code,
		CompleteCode:     code,
		ComplianceStatus: ComplianceNotEvaluated,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (r *Requirement) HierarchyNode() hierarchy.Node[id.RequirementID] {
	return hierarchy.Node[id.RequirementID]{ID: r.ID, Parent: r.ParentID, Scope: r.StandardID.String(), Sequence: r.Sequence}
}

// CompleteCode appends code to the parent's complete code. An empty parent code or
// an empty own code leaves the own code unchanged.
func CompleteCode(parentComplete, code string) string {
	if parentComplete == "" || code == "" {
		return code
	}
	return parentComplete + "." + code
}

// Archive deactivates the requirement. Reports false when it was already archived.
func (r *Requirement) Archive(now time.Time) bool {
	if !r.Active {
		return false
	}
	r.Active = false
	r.UpdatedAt = now
	return true
}
