package domain

import (
	"github.com/google/uuid"

	dErrors "complyhub/pkg/domain-errors"
)

// Typed identifiers keep a DomainID from being passed where a ControlID is expected.
// All of them are UUIDs underneath and share the same parsing rules.
type (
	StandardID       uuid.UUID
	CategoryID       uuid.UUID
	DomainID         uuid.UUID
	RequirementID    uuid.UUID
	ControlID        uuid.UUID
	AuditQuestionID  uuid.UUID
	AssessmentToolID uuid.UUID
	ZoneID           uuid.UUID
	CertificationID  uuid.UUID
	ActorID          uuid.UUID
)

func (id StandardID) String() string       { return uuid.UUID(id).String() }
func (id CategoryID) String() string       { return uuid.UUID(id).String() }
func (id DomainID) String() string         { return uuid.UUID(id).String() }
func (id RequirementID) String() string    { return uuid.UUID(id).String() }
func (id ControlID) String() string        { return uuid.UUID(id).String() }
func (id AuditQuestionID) String() string  { return uuid.UUID(id).String() }
func (id AssessmentToolID) String() string { return uuid.UUID(id).String() }
func (id ZoneID) String() string           { return uuid.UUID(id).String() }
func (id CertificationID) String() string  { return uuid.UUID(id).String() }
func (id ActorID) String() string          { return uuid.UUID(id).String() }

func (id StandardID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CategoryID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id DomainID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RequirementID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ControlID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AuditQuestionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentToolID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ZoneID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id CertificationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }

func NewStandardID() StandardID             { return StandardID(uuid.New()) }
func NewCategoryID() CategoryID             { return CategoryID(uuid.New()) }
func NewDomainID() DomainID                 { return DomainID(uuid.New()) }
func NewRequirementID() RequirementID       { return RequirementID(uuid.New()) }
func NewControlID() ControlID               { return ControlID(uuid.New()) }
func NewAuditQuestionID() AuditQuestionID   { return AuditQuestionID(uuid.New()) }
func NewAssessmentToolID() AssessmentToolID { return AssessmentToolID(uuid.New()) }
func NewZoneID() ZoneID                     { return ZoneID(uuid.New()) }
func NewCertificationID() CertificationID   { return CertificationID(uuid.New()) }

func ParseStandardID(s string) (StandardID, error) {
	u, err := parseUUID(s, "standard ID")
	return StandardID(u), err
}

func ParseCategoryID(s string) (CategoryID, error) {
	u, err := parseUUID(s, "category ID")
	return CategoryID(u), err
}

func ParseDomainID(s string) (DomainID, error) {
	u, err := parseUUID(s, "domain ID")
	return DomainID(u), err
}

func ParseRequirementID(s string) (RequirementID, error) {
	u, err := parseUUID(s, "requirement ID")
	return RequirementID(u), err
}

func ParseControlID(s string) (ControlID, error) {
	u, err := parseUUID(s, "control ID")
	return ControlID(u), err
}

func ParseAuditQuestionID(s string) (AuditQuestionID, error) {
	u, err := parseUUID(s, "audit question ID")
	return AuditQuestionID(u), err
}

func ParseAssessmentToolID(s string) (AssessmentToolID, error) {
	u, err := parseUUID(s, "assessment tool ID")
	return AssessmentToolID(u), err
}

func ParseZoneID(s string) (ZoneID, error) {
	u, err := parseUUID(s, "zone ID")
	return ZoneID(u), err
}

func ParseCertificationID(s string) (CertificationID, error) {
	u, err := parseUUID(s, "certification ID")
	return CertificationID(u), err
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor ID")
	return ActorID(u), err
}

// parseUUID enforces the ID invariant at trust boundaries: non-empty, well formed, non-nil.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
