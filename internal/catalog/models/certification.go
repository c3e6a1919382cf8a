package models

import (
	"strings"
	"time"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// AssessmentMethod says how a benchmark recommendation can be checked.
type AssessmentMethod string

const (
	AssessmentAutomated     AssessmentMethod = "automated"
	AssessmentManual        AssessmentMethod = "manual"
	AssessmentHybrid        AssessmentMethod = "hybrid"
	AssessmentNotApplicable AssessmentMethod = "not_applicable"
)

func (m AssessmentMethod) IsValid() bool {
	switch m {
	case AssessmentAutomated, AssessmentManual, AssessmentHybrid, AssessmentNotApplicable:
		return true
	}
	return false
}

// BenchmarkLevel is the CIS-style profile level of a recommendation.
type BenchmarkLevel string

const (
	BenchmarkLevel1  BenchmarkLevel = "1"
	BenchmarkLevel2  BenchmarkLevel = "2"
	BenchmarkNextGen BenchmarkLevel = "ng"
)

func (l BenchmarkLevel) IsValid() bool {
	return l == "" || l == BenchmarkLevel1 || l == BenchmarkLevel2 || l == BenchmarkNextGen
}

type CertificationState string

const (
	CertificationDraft         CertificationState = "draft"
	CertificationActive        CertificationState = "active"
	CertificationReview        CertificationState = "review"
	CertificationCompliant     CertificationState = "compliant"
	CertificationNonCompliant  CertificationState = "non_compliant"
	CertificationNotApplicable CertificationState = "not_applicable"
	CertificationRemediated    CertificationState = "remediated"
)

func (s CertificationState) IsValid() bool {
	switch s {
	case CertificationDraft, CertificationActive, CertificationReview, CertificationCompliant,
		CertificationNonCompliant, CertificationNotApplicable, CertificationRemediated:
		return true
	}
	return false
}

// Certification is one benchmark recommendation (a CIS benchmark row, say) with
// the procedures needed to assess and remediate it. It belongs to a standard and
// optionally points at the control and domain it evidences.
//
// Invariants:
//   - ControlID and DomainID, when set, belong to StandardID
//   - CompliancePercentage is within [0, 100]
type Certification struct {
	ID                    id.CertificationID `json:"id"`
	StandardID            id.StandardID      `json:"standard_id"`
	ControlID             id.ControlID       `json:"control_id,omitzero"`
	DomainID              id.DomainID        `json:"domain_id,omitzero"`
	Name                  string             `json:"name"`
	Title                 string             `json:"title"`
	Sequence              int                `json:"sequence"`
	RecommendationNumber  string             `json:"recommendation_number,omitempty"`
	SectionNumber         string             `json:"section_number,omitempty"`
	Description           string             `json:"description,omitempty"`
	AssessmentStatus      AssessmentMethod   `json:"assessment_status,omitempty"`
	RationaleStatement    string             `json:"rationale_statement,omitempty"`
	ImpactStatement       string             `json:"impact_statement,omitempty"`
	RemediationProcedure  string             `json:"remediation_procedure,omitempty"`
	AuditProcedure        string             `json:"audit_procedure,omitempty"`
	AdditionalInformation string             `json:"additional_information,omitempty"`
	DefaultValue          string             `json:"default_value,omitempty"`
	References            string             `json:"references,omitempty"`
	CISControls           string             `json:"cis_controls,omitempty"`
	Profile               string             `json:"profile,omitempty"`
	Level                 BenchmarkLevel     `json:"level,omitempty"`
	State                 CertificationState `json:"state"`
	CompliancePercentage  float64            `json:"compliance_percentage"`
	Active                bool               `json:"active"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// DisplayName prefixes the recommendation number when there is one: "1.1.1 - Ensure ...".
func (c *Certification) DisplayName() string {
	if c.RecommendationNumber == "" {
		return c.Name
	}
	return c.RecommendationNumber + " - " + c.Name
}

type CreateCertificationRequest struct {
	StandardID            id.StandardID      `json:"standard_id" yaml:"standard_id"`
	ControlID             id.ControlID       `json:"control_id" yaml:"control_id"`
	DomainID              id.DomainID        `json:"domain_id" yaml:"domain_id"`
	Name                  string             `json:"name" yaml:"name"`
	Title                 string             `json:"title" yaml:"title"`
	Sequence              int                `json:"sequence" yaml:"sequence"`
	RecommendationNumber  string             `json:"recommendation_number" yaml:"recommendation_number"`
	SectionNumber         string             `json:"section_number" yaml:"section_number"`
	Description           string             `json:"description" yaml:"description"`
	AssessmentStatus      AssessmentMethod   `json:"assessment_status" yaml:"assessment_status"`
	RationaleStatement    string             `json:"rationale_statement" yaml:"rationale_statement"`
	ImpactStatement       string             `json:"impact_statement" yaml:"impact_statement"`
	RemediationProcedure  string             `json:"remediation_procedure" yaml:"remediation_procedure"`
	AuditProcedure        string             `json:"audit_procedure" yaml:"audit_procedure"`
	AdditionalInformation string             `json:"additional_information" yaml:"additional_information"`
	DefaultValue          string             `json:"default_value" yaml:"default_value"`
	References            string             `json:"references" yaml:"references"`
	CISControls           string             `json:"cis_controls" yaml:"cis_controls"`
	Profile               string             `json:"profile" yaml:"profile"`
	Level                 BenchmarkLevel     `json:"level" yaml:"level"`
	State                 CertificationState `json:"state" yaml:"state"`
	CompliancePercentage  float64            `json:"compliance_percentage" yaml:"compliance_percentage"`
}

func (r *CreateCertificationRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Title = strings.TrimSpace(r.Title)
	r.RecommendationNumber = strings.TrimSpace(r.RecommendationNumber)
	r.SectionNumber = strings.TrimSpace(r.SectionNumber)
	if r.State == "" {
		r.State = CertificationDraft
	}
}

func (r *CreateCertificationRequest) Validate() error {
	if r.StandardID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "standard_id is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.AssessmentStatus != "" && !r.AssessmentStatus.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown assessment status %q", r.AssessmentStatus)
	}
	if !r.Level.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown benchmark level %q", r.Level)
	}
	if !r.State.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown certification state %q", r.State)
	}
	if r.CompliancePercentage < 0 || r.CompliancePercentage > 100 {
		return dErrors.New(dErrors.CodeValidation, "compliance_percentage must be between 0 and 100")
	}
	return nil
}

// NewCertification builds an active certification from a normalized, validated request.
func NewCertification(certID id.CertificationID, r CreateCertificationRequest, now time.Time) *Certification {
	return &Certification{
		ID:                    certID,
		StandardID:            r.StandardID,
		ControlID:             r.ControlID,
		DomainID:              r.DomainID,
		Name:                  r.Name,
		Title:                 r.Title,
		Sequence:              r.Sequence,
		RecommendationNumber:  r.RecommendationNumber,
		SectionNumber:         r.SectionNumber,
		Description:           r.Description,
		AssessmentStatus:      r.AssessmentStatus,
		RationaleStatement:    r.RationaleStatement,
		ImpactStatement:       r.ImpactStatement,
		RemediationProcedure:  r.RemediationProcedure,
		AuditProcedure:        r.AuditProcedure,
		AdditionalInformation: r.AdditionalInformation,
		DefaultValue:          r.DefaultValue,
		References:            r.References,
		CISControls:           r.CISControls,
		Profile:               r.Profile,
		Level:                 r.Level,
		State:                 r.State,
		CompliancePercentage:  r.CompliancePercentage,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
