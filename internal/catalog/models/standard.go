package models

import (
	"strings"
	"time"

	"complyhub/internal/aggregation"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// StandardState is the publication status of a standard.
type StandardState string

const (
	StandardDraft      StandardState = "draft"
	StandardActive     StandardState = "active"
	StandardSuperseded StandardState = "superseded"
	StandardRetired    StandardState = "retired"
)

func (s StandardState) IsValid() bool {
	switch s {
	case StandardDraft, StandardActive, StandardSuperseded, StandardRetired:
		return true
	}
	return false
}

// StandardType classifies the issuing regime of a standard.
type StandardType string

const (
	StandardTypeISO        StandardType = "iso"
	StandardTypeRegulation StandardType = "regulation"
	StandardTypeFramework  StandardType = "framework"
	StandardTypeInternal   StandardType = "internal"
	StandardTypeOther      StandardType = "other"
)

func (t StandardType) IsValid() bool {
	switch t {
	case StandardTypeISO, StandardTypeRegulation, StandardTypeFramework, StandardTypeInternal, StandardTypeOther:
		return true
	}
	return false
}

// Standard is a regulatory or management-system standard such as ISO 9001.
//
// Invariants:
//   - Name and Version are non-empty; Code is always "name:version"
//   - PublicationDate <= EffectiveDate <= ExpiryDate for every date that is set
//   - SupersededBy never forms a cycle
//   - Parent (when set) is another standard; positions are maintained by the hierarchy store
type Standard struct {
	ID              id.StandardID          `json:"id"`
	Name            string                 `json:"name"`
	Title           string                 `json:"title"`
	Version         string                 `json:"version"`
	Code            string                 `json:"code"`
	Type            StandardType           `json:"standard_type"`
	IssuingBody     string                 `json:"issuing_body"`
	PublicationDate time.Time              `json:"publication_date,omitzero"`
	EffectiveDate   time.Time              `json:"effective_date,omitzero"`
	ExpiryDate      time.Time              `json:"expiry_date,omitzero"`
	CategoryID      id.CategoryID          `json:"category_id,omitzero"`
	ParentID        id.StandardID          `json:"parent_id,omitzero"`
	Sequence        int                    `json:"sequence"`
	Position        hierarchy.Position     `json:"position"`
	SupersededBy    id.StandardID          `json:"superseded_by,omitzero"`
	State           StandardState          `json:"state"`
	Active          bool                   `json:"active"`
	Statistics      aggregation.Statistics `json:"statistics"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// StandardCode derives the unique code of a standard.
func StandardCode(name, version string) string {
	return strings.TrimSpace(name) + ":" + strings.TrimSpace(version)
}

func NewStandard(standardID id.StandardID, name, title, version string, typ StandardType, now time.Time) (*Standard, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "standard name cannot be empty")
	}
	if version == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "standard version cannot be empty")
	}
	if typ == "" {
		typ = StandardTypeISO
	}
	if !typ.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown standard type %q", typ)
	}
	return &Standard{
		ID:        standardID,
		Name:      name,
		Title:     strings.TrimSpace(title),
		Version:   version,
		Code:      StandardCode(name, version),
		Type:      typ,
		State:     StandardDraft,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateDates checks publication <= effective <= expiry, skipping unset dates.
func (s *Standard) ValidateDates() error {
	dates := []struct {
		name string
		at   time.Time
	}{
		{"publication_date", s.PublicationDate},
		{"effective_date", s.EffectiveDate},
		{"expiry_date", s.ExpiryDate},
	}
	var prev string
	var prevAt time.Time
	for _, d := range dates {
		if d.at.IsZero() {
			continue
		}
		if !prevAt.IsZero() && d.at.Before(prevAt) {
			return dErrors.Newf(dErrors.CodeValidation, "%s cannot be before %s", d.name, prev)
		}
		prev, prevAt = d.name, d.at
	}
	return nil
}

// HierarchyNode is the standard's parent-pointer view. Standards are unscoped.
func (s *Standard) HierarchyNode() hierarchy.Node[id.StandardID] {
	return hierarchy.Node[id.StandardID]{ID: s.ID, Parent: s.ParentID, Sequence: s.Sequence}
}

// CanSupersede checks that s may be replaced by successor. chain follows the
// SupersededBy edges starting at successor; it must never lead back to s.
func (s *Standard) CanSupersede(successor id.StandardID, chain func(id.StandardID) id.StandardID) error {
	if successor.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "successor standard is required")
	}
	if successor == s.ID {
		return dErrors.New(dErrors.CodeCycleDetected, "a standard cannot supersede itself")
	}
	if s.State == StandardRetired {
		return dErrors.New(dErrors.CodeInvariantViolation, "a retired standard cannot be superseded")
	}
	seen := map[id.StandardID]bool{}
	for next := successor; !next.IsNil(); next = chain(next) {
		if next == s.ID {
			return dErrors.New(dErrors.CodeCycleDetected, "supersession chain would loop back to this standard")
		}
		if seen[next] {
			break
		}
		seen[next] = true
	}
	return nil
}

// ApplySupersede records the successor and marks s superseded.
func (s *Standard) ApplySupersede(successor id.StandardID, now time.Time) {
	s.SupersededBy = successor
	s.State = StandardSuperseded
	s.UpdatedAt = now
}

// Archive deactivates the standard. Reports false when it was already archived.
func (s *Standard) Archive(now time.Time) bool {
	if !s.Active {
		return false
	}
	s.Active = false
	s.UpdatedAt = now
	return true
}
