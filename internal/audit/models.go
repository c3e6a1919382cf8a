package audit

import (
	"time"

	id "complyhub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers workflow decisions an auditor may ask about:
	// approvals, verifications, retirements. Emission is fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine catalog edits and rebuilds.
	CategoryOperations EventCategory = "operations"
)

// Action names a change recorded in the audit trail.
type Action string

const (
	ActionStandardCreated      Action = "standard_created"
	ActionStandardSuperseded   Action = "standard_superseded"
	ActionCategoryCreated      Action = "category_created"
	ActionDomainCreated        Action = "domain_created"
	ActionDomainMoved          Action = "domain_moved"
	ActionDomainControlLinked  Action = "domain_control_linked"
	ActionControlUnlinked      Action = "domain_control_unlinked"
	ActionDomainTransitioned   Action = "domain_transitioned"
	ActionZoneAssigned         Action = "domain_zone_assigned"
	ActionRequirementCreated   Action = "requirement_created"
	ActionRequirementMoved     Action = "requirement_moved"
	ActionCategoryMoved        Action = "category_moved"
	ActionStandardMoved        Action = "standard_moved"
	ActionHierarchyRebuilt     Action = "hierarchy_rebuilt"
	ActionControlCreated       Action = "control_created"
	ActionControlUpdated       Action = "control_updated"
	ActionControlTransitioned  Action = "control_transitioned"
	ActionControlTested        Action = "control_tested"
	ActionControlTestDue       Action = "control_test_due"
	ActionZoneCreated          Action = "zone_created"
	ActionAuditQuestionCreated Action = "audit_question_created"
	ActionToolCreated          Action = "assessment_tool_created"
	ActionComplianceStatusSet  Action = "requirement_compliance_set"
	ActionStandardArchived     Action = "standard_archived"
	ActionCategoryArchived     Action = "category_archived"
	ActionDomainArchived       Action = "domain_archived"
	ActionRequirementArchived  Action = "requirement_archived"
	ActionCertificationCreated Action = "certification_created"
)

var actionCategories = map[Action]EventCategory{
	ActionStandardSuperseded:  CategoryCompliance,
	ActionControlTransitioned: CategoryCompliance,
	ActionControlTested:       CategoryCompliance,
	ActionComplianceStatusSet: CategoryCompliance,
	ActionStandardArchived:    CategoryCompliance,
}

// Category returns the category of a; unknown actions are operations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from service logic to capture key actions. It is
// transport-agnostic so the memory store and the Kafka sink share it.
type Event struct {
	Category      EventCategory `json:"category"`
	Timestamp     time.Time     `json:"timestamp"`
	Action        Action        `json:"action"`
	ActorID       id.ActorID    `json:"actor_id,omitzero"`
	SubjectType   string        `json:"subject_type"`
	SubjectID     string        `json:"subject_id"`
	From          string        `json:"from,omitempty"`
	To            string        `json:"to,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
	ClientSummary string        `json:"client,omitempty"`
}
