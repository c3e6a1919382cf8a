package importer

import (
	"time"

	"complyhub/internal/catalog/models"
	"complyhub/internal/costing"
	id "complyhub/pkg/domain"
)

// Document is one catalog file. Records refer to each other by code or name
// because identifiers are only assigned on import.
type Document struct {
	Tools     []Tool     `yaml:"tools,omitempty"`
	Standards []Standard `yaml:"standards"`
}

type Tool struct {
	Name   string          `yaml:"name"`
	Title  string          `yaml:"title,omitempty"`
	Type   models.ToolType `yaml:"tool_type"`
	Vendor string          `yaml:"vendor,omitempty"`
	URL    string          `yaml:"tool_url,omitempty"`
}

type Standard struct {
	Name            string              `yaml:"name"`
	Title           string              `yaml:"title,omitempty"`
	Version         string              `yaml:"version"`
	Type            models.StandardType `yaml:"standard_type,omitempty"`
	IssuingBody     string              `yaml:"issuing_body,omitempty"`
	PublicationDate time.Time           `yaml:"publication_date,omitempty"`
	EffectiveDate   time.Time           `yaml:"effective_date,omitempty"`
	ExpiryDate      time.Time           `yaml:"expiry_date,omitempty"`
	Activate        bool                `yaml:"activate,omitempty"`

	Zones        []Zone        `yaml:"zones,omitempty"`
	Domains      []Domain      `yaml:"domains,omitempty"`
	Requirements []Requirement `yaml:"requirements,omitempty"`
}

func (s Standard) request() *models.CreateStandardRequest {
	return &models.CreateStandardRequest{
		Name:            s.Name,
		Title:           s.Title,
		Version:         s.Version,
		Type:            s.Type,
		IssuingBody:     s.IssuingBody,
		PublicationDate: s.PublicationDate,
		EffectiveDate:   s.EffectiveDate,
		ExpiryDate:      s.ExpiryDate,
	}
}

type Zone struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Domain nests its sub-domains under Children. Zone is a zone code of the
// same standard.
type Domain struct {
	Name     string    `yaml:"name"`
	Code     string    `yaml:"code,omitempty"`
	Zone     string    `yaml:"zone,omitempty"`
	Controls []Control `yaml:"controls,omitempty"`
	Children []Domain  `yaml:"children,omitempty"`
}

type Requirement struct {
	Name      string        `yaml:"name"`
	Code      string        `yaml:"code,omitempty"`
	Questions []Question    `yaml:"questions,omitempty"`
	Children  []Requirement `yaml:"children,omitempty"`
}

type Question struct {
	Question         string `yaml:"question"`
	ExpectedEvidence string `yaml:"expected_evidence,omitempty"`
}

// Control lists its assessment tools by name.
type Control struct {
	Name                  string            `yaml:"name"`
	Reference             string            `yaml:"reference,omitempty"`
	Description           string            `yaml:"description,omitempty"`
	ControlType           string            `yaml:"control_type,omitempty"`
	Priority              models.Priority   `yaml:"priority,omitempty"`
	OwnerID               id.ActorID        `yaml:"owner_id,omitempty"`
	ImplementationMinutes float64           `yaml:"implementation_time,omitempty"`
	ImplementationCost    float64           `yaml:"implementation_cost,omitempty"`
	MaintenanceMinutes    float64           `yaml:"maintenance_time,omitempty"`
	AutomatedTestSeconds  float64           `yaml:"automated_test_timing,omitempty"`
	HourlyRate            float64           `yaml:"hourly_rate,omitempty"`
	Frequency             costing.Frequency `yaml:"test_frequency,omitempty"`
	AutomatedAssessment   bool              `yaml:"automated_assessment,omitempty"`
	Tools                 []string          `yaml:"tools,omitempty"`
}

func (c Control) request(standardID id.StandardID, domainID id.DomainID, tools []id.AssessmentToolID) *models.CreateControlRequest {
	return &models.CreateControlRequest{
		StandardID:            standardID,
		DomainID:              domainID,
		Name:                  c.Name,
		Reference:             c.Reference,
		Description:           c.Description,
		ControlType:           c.ControlType,
		Priority:              c.Priority,
		OwnerID:               c.OwnerID,
		ImplementationMinutes: c.ImplementationMinutes,
		ImplementationCost:    c.ImplementationCost,
		MaintenanceMinutes:    c.MaintenanceMinutes,
		AutomatedTestSeconds:  c.AutomatedTestSeconds,
		HourlyRate:            c.HourlyRate,
		Frequency:             c.Frequency,
		AutomatedAssessment:   c.AutomatedAssessment,
		ToolIDs:               tools,
	}
}
