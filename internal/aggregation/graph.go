package aggregation

import (
	"cmp"
	"slices"

	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
)

// Field is one node of the recomputation dependency graph.
type Field string

const (
	ControlInputs        Field = "control.inputs"
	ControlFigures       Field = "control.figures"
	ControlState         Field = "control.state"
	ControlImplemented   Field = "control.implemented"
	ControlEffectiveness Field = "control.effectiveness"
	ControlMembership    Field = "control.membership"
	DomainParent         Field = "domain.parent"
	DomainActive         Field = "domain.active"
	DomainPosition       Field = "domain.position"
	DomainStats          Field = "domain.statistics"
	StandardStats        Field = "standard.statistics"
	RequirementParent    Field = "requirement.parent"
	RequirementStatus    Field = "requirement.compliance_status"
	RequirementActive    Field = "requirement.active"
	RequirementPosition  Field = "requirement.position"
	RequirementCode      Field = "requirement.complete_code"
	CategoryParent       Field = "category.parent"
	CategoryPosition     Field = "category.position"
	CategoryName         Field = "category.complete_name"
)

// fieldOrder is a topological order of the graph; Affected returns fields in it.
var fieldOrder = []Field{
	ControlInputs, ControlState, ControlMembership,
	DomainParent, DomainActive, RequirementParent, RequirementStatus, RequirementActive, CategoryParent,
	ControlFigures, ControlImplemented, ControlEffectiveness,
	DomainPosition, RequirementPosition, CategoryPosition,
	RequirementCode, CategoryName,
	DomainStats, StandardStats,
}

// dependents lists, for each field, the fields derived from it.
var dependents = map[Field][]Field{
	ControlInputs:       {ControlFigures},
	ControlFigures:      {DomainStats, StandardStats},
	ControlState:        {ControlImplemented, ControlEffectiveness},
	ControlImplemented:  {ControlEffectiveness, DomainStats, StandardStats},
	ControlMembership:   {DomainStats, StandardStats},
	DomainParent:        {DomainPosition},
	DomainPosition:      {DomainStats},
	DomainActive:        {DomainStats},
	RequirementStatus:   {StandardStats},
	RequirementActive:   {StandardStats},
	RequirementParent:   {RequirementPosition},
	RequirementPosition: {RequirementCode},
	CategoryParent:      {CategoryPosition},
	CategoryPosition:    {CategoryName},
}

// Affected returns changed plus every field transitively derived from it,
// ordered so that each field comes after everything it depends on.
func Affected(changed ...Field) []Field {
	reached := make(map[Field]bool)
	queue := slices.Clone(changed)
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if reached[f] {
			continue
		}
		reached[f] = true
		queue = append(queue, dependents[f]...)
	}
	var out []Field
	for _, f := range fieldOrder {
		if reached[f] {
			out = append(out, f)
		}
	}
	return out
}

// Change describes one write: which fields it touched and which domains and
// standards it touched them on. For membership or parent changes both the old
// and new domain belong in Domains.
type Change struct {
	Fields    []Field
	Domains   []id.DomainID
	Standards []id.StandardID
}

// Plan is the set of entities whose statistics must be recomputed.
type Plan struct {
	Fields    []Field
	Domains   []id.DomainID // deepest first
	Standards []id.StandardID
}

// Empty reports whether nothing needs recomputing.
func (p Plan) Empty() bool {
	return len(p.Domains) == 0 && len(p.Standards) == 0
}

// PlanFor resolves changes to concrete domains (each touched domain plus all of its
// ancestors) and standards. Every entity appears once, so one pass over the plan
// reaches the fixed point.
func PlanFor(forest *hierarchy.Forest[id.DomainID], changes ...Change) (Plan, error) {
	var changed []Field
	for _, c := range changes {
		changed = append(changed, c.Fields...)
	}
	plan := Plan{Fields: Affected(changed...)}

	if slices.Contains(plan.Fields, DomainStats) {
		domains := make(map[id.DomainID]struct{})
		for _, c := range changes {
			for _, d := range c.Domains {
				if d.IsNil() || !forest.Has(d) {
					continue
				}
				domains[d] = struct{}{}
				ancestors, err := forest.Ancestors(d)
				if err != nil {
					return Plan{}, err
				}
				for _, a := range ancestors {
					domains[a] = struct{}{}
				}
			}
		}
		for d := range domains {
			plan.Domains = append(plan.Domains, d)
		}
		slices.SortFunc(plan.Domains, func(a, b id.DomainID) int {
			pa, _ := forest.Position(a)
			pb, _ := forest.Position(b)
			if c := cmp.Compare(pb.Level, pa.Level); c != 0 {
				return c
			}
			return cmp.Compare(pa.Left, pb.Left)
		})
	}

	if slices.Contains(plan.Fields, StandardStats) {
		seen := make(map[id.StandardID]struct{})
		for _, c := range changes {
			for _, s := range c.Standards {
				if s.IsNil() {
					continue
				}
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				plan.Standards = append(plan.Standards, s)
			}
		}
		slices.SortFunc(plan.Standards, func(a, b id.StandardID) int {
			return cmp.Compare(a.String(), b.String())
		})
	}
	return plan, nil
}
