// Package aggregation rolls control-level facts up to domains and standards.
//
// All functions are pure: callers load the facts and the domain forest, call
// into this package, and persist the returned Statistics in the same
// transaction as the write that made them stale.
package aggregation

import (
	"cmp"
	"slices"

	"complyhub/internal/costing"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
)

// ControlFacts is everything the engine needs to know about one control.
type ControlFacts struct {
	ID                 id.ControlID
	StandardID         id.StandardID
	Implemented        bool
	ImplementationCost float64
	Figures            costing.Figures
}

// Statistics is the stored roll-up of a domain or standard.
// Times are hours, amounts share the control currency.
type Statistics struct {
	ControlCount                   int     `json:"control_count"`
	ImplementedCount               int     `json:"implemented_control_count"`
	ComplianceScore                float64 `json:"compliance_score"`
	ChildDomainCount               int     `json:"child_domain_count"`
	ImplementationHours            float64 `json:"total_implementation_time"`
	ImplementationCost             float64 `json:"total_implementation_cost"`
	AnnualMaintenanceHours         float64 `json:"total_annual_maintenance_time"`
	AnnualMaintenanceHoursCombined float64 `json:"total_annual_maintenance_time_combined"`
	MaintenanceCost                float64 `json:"total_maintenance_cost"`
	MaintenanceCostCombined        float64 `json:"total_maintenance_cost_combined"`
	FirstYearCost                  float64 `json:"total_first_year_cost"`

	RequirementCount           int     `json:"requirement_count,omitempty"`
	CompliantRequirementCount  int     `json:"compliant_requirement_count,omitempty"`
	RequirementComplianceScore float64 `json:"requirement_compliance_score"`
}

// RequirementFacts is the part of a requirement the standard roll-up reads.
type RequirementFacts struct {
	ID         id.RequirementID
	StandardID id.StandardID
	Compliant  bool
}

// Summarize deduplicates facts by control ID and sums them in ID order, so the
// same control set always produces bit-identical totals.
func Summarize(facts []ControlFacts) Statistics {
	seen := make(map[id.ControlID]struct{}, len(facts))
	unique := make([]ControlFacts, 0, len(facts))
	for _, f := range facts {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		unique = append(unique, f)
	}
	slices.SortFunc(unique, func(a, b ControlFacts) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	var s Statistics
	for _, f := range unique {
		s.ControlCount++
		if f.Implemented {
			s.ImplementedCount++
		}
		s.ImplementationHours += f.Figures.ImplementationHours
		s.ImplementationCost += f.ImplementationCost
		s.AnnualMaintenanceHours += f.Figures.AnnualMaintenanceHours
		s.AnnualMaintenanceHoursCombined += f.Figures.AnnualMaintenanceHoursCombined
		s.MaintenanceCost += f.Figures.MaintenanceCost
		s.MaintenanceCostCombined += f.Figures.MaintenanceCostCombined
		s.FirstYearCost += f.Figures.FirstYearCost
	}
	s.ComplianceScore = ComplianceScore(s.ImplementedCount, s.ControlCount)
	return s
}

// ComplianceScore is implemented / total × 100, or 0 for an empty set.
func ComplianceScore(implemented, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(implemented) / float64(total) * 100
}

// Links maps a domain to the controls linked to it directly. Every live domain
// has an entry, even with no controls; archived domains have none.
type Links map[id.DomainID][]id.ControlID

// DomainStatistics sums the controls linked to domain and to every descendant
// domain in the same standard. Unknown control IDs in links are skipped, and
// domains absent from links count neither their controls nor as children.
func DomainStatistics(
	forest *hierarchy.Forest[id.DomainID],
	domain id.DomainID,
	links Links,
	controls map[id.ControlID]ControlFacts,
) (Statistics, error) {
	descendants, err := forest.DescendantsOf(domain)
	if err != nil {
		return Statistics{}, err
	}
	scope := append([]id.DomainID{domain}, descendants...)

	var facts []ControlFacts
	for _, d := range scope {
		for _, cid := range links[d] {
			if f, ok := controls[cid]; ok {
				facts = append(facts, f)
			}
		}
	}
	stats := Summarize(facts)
	for _, child := range forest.Children(domain) {
		if _, live := links[child]; live {
			stats.ChildDomainCount++
		}
	}
	return stats, nil
}

// StandardStatistics sums every control owned by standard, independent of
// domain membership.
func StandardStatistics(standard id.StandardID, controls []ControlFacts) Statistics {
	var owned []ControlFacts
	for _, c := range controls {
		if c.StandardID == standard {
			owned = append(owned, c)
		}
	}
	return Summarize(owned)
}

// WithRequirements sets the requirement roll-up of standard on stats: the share
// of the standard's requirements whose compliance status is compliant.
func (s Statistics) WithRequirements(standard id.StandardID, reqs []RequirementFacts) Statistics {
	seen := make(map[id.RequirementID]struct{}, len(reqs))
	s.RequirementCount, s.CompliantRequirementCount = 0, 0
	for _, r := range reqs {
		if r.StandardID != standard {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		s.RequirementCount++
		if r.Compliant {
			s.CompliantRequirementCount++
		}
	}
	s.RequirementComplianceScore = ComplianceScore(s.CompliantRequirementCount, s.RequirementCount)
	return s
}
