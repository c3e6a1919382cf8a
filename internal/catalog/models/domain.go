package models

import (
	"slices"
	"strings"
	"time"

	"complyhub/internal/aggregation"
	"complyhub/internal/hierarchy"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// Domain is a clause grouping inside one standard.
//
// Invariants:
//   - StandardID is immutable after construction
//   - ParentID (when set) belongs to the same standard
//   - ControlIDs holds no duplicates
type Domain struct {
	ID         id.DomainID            `json:"id"`
	StandardID id.StandardID          `json:"standard_id"`
	Name       string                 `json:"name"`
	Code       string                 `json:"code"`
	ParentID   id.DomainID            `json:"parent_id,omitzero"`
	ZoneID     id.ZoneID              `json:"zone_id,omitzero"`
	Sequence   int                    `json:"sequence"`
	Position   hierarchy.Position     `json:"position"`
	State      lifecycle.State        `json:"state"`
	ControlIDs []id.ControlID         `json:"control_ids"`
	Statistics aggregation.Statistics `json:"statistics"`
	Active     bool                   `json:"active"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func NewDomain(domainID id.DomainID, standardID id.StandardID, name, code string, now time.Time) (*Domain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "domain name cannot be empty")
	}
	if standardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "domain requires a standard")
	}
	return &Domain{
		ID:         domainID,
		StandardID: standardID,
		Name:       name,
		Code:       strings.TrimSpace(code),
		State:      lifecycle.StateDraft,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HierarchyNode scopes the domain to its standard so cross-standard parents are rejected.
func (d *Domain) HierarchyNode() hierarchy.Node[id.DomainID] {
	return hierarchy.Node[id.DomainID]{ID: d.ID, Parent: d.ParentID, Scope: d.StandardID.String(), Sequence: d.Sequence}
}

// LinkControl adds controlID to the domain. Reports false when it was already linked.
func (d *Domain) LinkControl(controlID id.ControlID, now time.Time) bool {
	if slices.Contains(d.ControlIDs, controlID) {
		return false
	}
	d.ControlIDs = append(d.ControlIDs, controlID)
	d.UpdatedAt = now
	return true
}

// UnlinkControl removes controlID. Reports false when it was not linked.
func (d *Domain) UnlinkControl(controlID id.ControlID, now time.Time) bool {
	i := slices.Index(d.ControlIDs, controlID)
	if i < 0 {
		return false
	}
	d.ControlIDs = slices.Delete(d.ControlIDs, i, i+1)
	d.UpdatedAt = now
	return true
}

// CanTransitionTo applies the structural workflow edges to the domain's own state.
func (d *Domain) CanTransitionTo(to lifecycle.State) error {
	if !lifecycle.Allowed(d.State, to) {
		return dErrors.Newf(dErrors.CodeTransitionDenied, "domain transition %s -> %s is not allowed", d.State, to)
	}
	return nil
}

// Archive deactivates the domain. Reports false when it was already archived.
func (d *Domain) Archive(now time.Time) bool {
	if !d.Active {
		return false
	}
	d.Active = false
	d.UpdatedAt = now
	return true
}
