package models

import (
	"strings"
	"time"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// AuditQuestion belongs to a requirement; StandardID is always copied from it.
type AuditQuestion struct {
	ID               id.AuditQuestionID `json:"id"`
	RequirementID    id.RequirementID   `json:"requirement_id"`
	StandardID       id.StandardID      `json:"standard_id"`
	Question         string             `json:"question"`
	ExpectedEvidence string             `json:"expected_evidence,omitempty"`
	Sequence         int                `json:"sequence"`
	Active           bool               `json:"active"`
	CreatedAt        time.Time          `json:"created_at"`
}

func NewAuditQuestion(questionID id.AuditQuestionID, requirement *Requirement, question, evidence string, now time.Time) (*AuditQuestion, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "audit question cannot be empty")
	}
	if requirement == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "audit question requires a requirement")
	}
	return &AuditQuestion{
		ID:               questionID,
		RequirementID:    requirement.ID,
		StandardID:       requirement.StandardID,
		Question:         question,
		ExpectedEvidence: strings.TrimSpace(evidence),
		Active:           true,
		CreatedAt:        now,
	}, nil
}
