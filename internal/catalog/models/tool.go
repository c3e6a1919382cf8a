package models

import (
	"strings"
	"time"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

type ToolType string

const (
	ToolManual      ToolType = "manual"
	ToolAutomated   ToolType = "automated"
	ToolIntegration ToolType = "integration"
)

func (t ToolType) IsValid() bool {
	return t == ToolManual || t == ToolAutomated || t == ToolIntegration
}

// AssessmentTool is an integration or procedure used to check controls.
type AssessmentTool struct {
	ID        id.AssessmentToolID `json:"id"`
	Name      string              `json:"name"`
	Title     string              `json:"title"`
	Type      ToolType            `json:"tool_type"`
	Vendor    string              `json:"vendor,omitempty"`
	URL       string              `json:"tool_url,omitempty"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewAssessmentTool(toolID id.AssessmentToolID, name, title string, typ ToolType, now time.Time) (*AssessmentTool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tool name cannot be empty")
	}
	if typ == "" {
		typ = ToolManual
	}
	if !typ.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown tool type %q", typ)
	}
	return &AssessmentTool{
		ID:        toolID,
		Name:      name,
		Title:     strings.TrimSpace(title),
		Type:      typ,
		Active:    true,
		CreatedAt: now,
	}, nil
}
