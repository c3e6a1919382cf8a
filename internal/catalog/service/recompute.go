package service

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"complyhub/internal/aggregation"
	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
)

// recompute refreshes every statistic made stale by changes. It must run in the
// same transaction as the write that produced the changes.
func (s *Service) recompute(ctx context.Context, uow *unitOfWork, changes ...aggregation.Change) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "catalog.recompute")
	defer span.End()

	var standards []id.StandardID
	for _, c := range changes {
		for _, sid := range c.Standards {
			if !sid.IsNil() && !slices.Contains(standards, sid) {
				standards = append(standards, sid)
			}
		}
	}
	if len(standards) == 0 {
		return nil
	}

	// Each standard's domain forest is built on its own, so a broken tree in
	// one standard never blocks writes in another.
	var domainCount, standardCount int
	for _, sid := range standards {
		stdDomains, err := s.domains.ListByStandard(ctx, sid)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		forest, err := domainForest(stdDomains)
		if err != nil {
			return err
		}
		plan, err := aggregation.PlanFor(forest, changes...)
		if err != nil {
			return err
		}
		if !slices.Contains(plan.Standards, sid) && len(plan.Domains) == 0 {
			continue
		}

		controls, err := s.controls.ListByStandard(ctx, sid)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		facts := make(map[id.ControlID]aggregation.ControlFacts, len(controls))
		factList := make([]aggregation.ControlFacts, 0, len(controls))
		for _, c := range controls {
			if !c.Active {
				continue
			}
			f := c.Facts()
			facts[c.ID] = f
			factList = append(factList, f)
		}

		links := aggregation.Links{}
		var live []*models.Domain
		for _, d := range stdDomains {
			if d.Active {
				links[d.ID] = d.ControlIDs
				live = append(live, d)
			}
		}

		for _, did := range plan.Domains {
			stats, err := aggregation.DomainStatistics(forest, did, links, facts)
			if err != nil {
				return err
			}
			if err := s.domains.UpdateStatistics(ctx, did, stats); err != nil {
				return wrapStoreErr(err, "domain")
			}
			uow.domains = append(uow.domains, did)
			domainCount++
		}
		if len(plan.Domains) > 0 {
			if err := s.recountZones(ctx, sid, live); err != nil {
				return err
			}
		}

		if slices.Contains(plan.Standards, sid) {
			reqs, err := s.requirementFacts(ctx, sid)
			if err != nil {
				return err
			}
			stats := aggregation.StandardStatistics(sid, factList).WithRequirements(sid, reqs)
			if err := s.standards.UpdateStatistics(ctx, sid, stats); err != nil {
				return wrapStoreErr(err, "standard")
			}
			uow.standards = append(uow.standards, sid)
			standardCount++
		}
	}

	span.SetAttributes(
		attribute.Int("recompute.domains", domainCount),
		attribute.Int("recompute.standards", standardCount),
	)
	if s.metrics != nil {
		s.metrics.ObserveRecompute(start, domainCount, standardCount)
	}
	return nil
}

func (s *Service) requirementFacts(ctx context.Context, standardID id.StandardID) ([]aggregation.RequirementFacts, error) {
	reqs, err := s.requirements.ListByStandard(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "requirement")
	}
	out := make([]aggregation.RequirementFacts, 0, len(reqs))
	for _, r := range reqs {
		if !r.Active {
			continue
		}
		out = append(out, aggregation.RequirementFacts{
			ID:         r.ID,
			StandardID: r.StandardID,
			Compliant:  r.ComplianceStatus == models.ComplianceCompliant,
		})
	}
	return out, nil
}

func (s *Service) recountZones(ctx context.Context, standardID id.StandardID, domains []*models.Domain) error {
	zones, err := s.zones.ListByStandard(ctx, standardID)
	if err != nil {
		return wrapStoreErr(err, "zone")
	}
	for _, z := range zones {
		before := *z
		z.Recount(domains)
		if z.DomainCount == before.DomainCount && z.ControlCount == before.ControlCount {
			continue
		}
		if err := s.zones.Update(ctx, z); err != nil {
			return wrapStoreErr(err, "zone")
		}
	}
	return nil
}

func domainForest(domains []*models.Domain) (*hierarchy.Forest[id.DomainID], error) {
	nodes := make([]hierarchy.Node[id.DomainID], 0, len(domains))
	for _, d := range domains {
		nodes = append(nodes, d.HierarchyNode())
	}
	return hierarchy.Build(nodes)
}
