package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"complyhub/internal/aggregation"
	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

// HierarchyKind names one of the maintained trees.
type HierarchyKind string

const (
	KindStandard    HierarchyKind = "standards"
	KindCategory    HierarchyKind = "categories"
	KindDomain      HierarchyKind = "domains"
	KindRequirement HierarchyKind = "requirements"
)

func (k HierarchyKind) IsValid() bool {
	switch k {
	case KindStandard, KindCategory, KindDomain, KindRequirement:
		return true
	}
	return false
}

func (s *Service) standardTree() tree[id.StandardID, *models.Standard] {
	return tree[id.StandardID, *models.Standard]{
		kind:            "standard",
		list:            s.standards.ListAll,
		node:            (*models.Standard).HierarchyNode,
		position:        func(m *models.Standard) hierarchy.Position { return m.Position },
		setPosition:     func(m *models.Standard, p hierarchy.Position) { m.Position = p },
		updatePositions: s.standards.UpdatePositions,
	}
}

func (s *Service) categoryTree() tree[id.CategoryID, *models.Category] {
	return tree[id.CategoryID, *models.Category]{
		kind:            "category",
		list:            s.categories.ListAll,
		node:            (*models.Category).HierarchyNode,
		position:        func(m *models.Category) hierarchy.Position { return m.Position },
		setPosition:     func(m *models.Category, p hierarchy.Position) { m.Position = p },
		updatePositions: s.categories.UpdatePositions,
	}
}

// domainTree loads the domains of standard, or every domain for the nil ID.
// Positions are numbered per standard, so both views agree.
func (s *Service) domainTree(standard id.StandardID) tree[id.DomainID, *models.Domain] {
	list := s.domains.ListAll
	if !standard.IsNil() {
		list = func(ctx context.Context) ([]*models.Domain, error) {
			return s.domains.ListByStandard(ctx, standard)
		}
	}
	return tree[id.DomainID, *models.Domain]{
		kind:            "domain",
		list:            list,
		node:            (*models.Domain).HierarchyNode,
		position:        func(m *models.Domain) hierarchy.Position { return m.Position },
		setPosition:     func(m *models.Domain, p hierarchy.Position) { m.Position = p },
		updatePositions: s.domains.UpdatePositions,
	}
}

func (s *Service) requirementTree(standard id.StandardID) tree[id.RequirementID, *models.Requirement] {
	list := s.requirements.ListAll
	if !standard.IsNil() {
		list = func(ctx context.Context) ([]*models.Requirement, error) {
			return s.requirements.ListByStandard(ctx, standard)
		}
	}
	return tree[id.RequirementID, *models.Requirement]{
		kind:            "requirement",
		list:            list,
		node:            (*models.Requirement).HierarchyNode,
		position:        func(m *models.Requirement) hierarchy.Position { return m.Position },
		setPosition:     func(m *models.Requirement, p hierarchy.Position) { m.Position = p },
		updatePositions: s.requirements.UpdatePositions,
	}
}

// AttachDomain re-parents a domain (nil parent makes it a root) and refreshes the
// statistics of both the old and the new ancestor chains.
func (s *Service) AttachDomain(ctx context.Context, domainID, parentID id.DomainID) (*models.Domain, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.attach_domain")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Domain
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		current, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		if !current.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "domain is archived")
		}
		if !parentID.IsNil() {
			if _, err := s.liveDomain(ctx, parentID, current.StandardID); err != nil {
				return err
			}
		}
		t := s.domainTree(current.StandardID)
		snap, err := t.load(ctx)
		if err != nil {
			return err
		}
		d, ok := snap.byID[domainID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		next, err := snap.forest.Attach(domainID, parentID)
		if err != nil {
			return err
		}
		oldParent := d.ParentID
		if err := t.persist(ctx, snap, t.drift(snap, next), domainID); err != nil {
			return err
		}
		d.ParentID = parentID
		d.UpdatedAt = requestcontext.Now(ctx)
		if err := s.domains.Update(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		if err := s.recompute(ctx, uow, aggregation.Change{
			Fields:    []aggregation.Field{aggregation.DomainParent},
			Domains:   []id.DomainID{domainID, oldParent, parentID},
			Standards: []id.StandardID{d.StandardID},
		}); err != nil {
			return err
		}
		out = d
		return s.emit(ctx, moveEvent(ctx, audit.ActionDomainMoved, actor.ID, "domain", domainID.String(), oldParent.String(), parentID.String()))
	})
	if err != nil {
		return nil, err
	}
	d, err := s.domains.FindByID(ctx, out.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "domain")
	}
	return d, nil
}

// AttachRequirement re-parents a requirement and recomputes the complete code of
// the moved subtree.
func (s *Service) AttachRequirement(ctx context.Context, requirementID, parentID id.RequirementID) (*models.Requirement, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.attach_requirement")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Requirement
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		current, err := s.requirements.FindByID(ctx, requirementID)
		if err != nil {
			return wrapStoreErr(err, "requirement")
		}
		if !current.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "requirement is archived")
		}
		if !parentID.IsNil() {
			if _, err := s.liveRequirement(ctx, parentID, current.StandardID); err != nil {
				return err
			}
		}
		t := s.requirementTree(current.StandardID)
		snap, err := t.load(ctx)
		if err != nil {
			return err
		}
		r, ok := snap.byID[requirementID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "requirement not found")
		}
		next, err := snap.forest.Attach(requirementID, parentID)
		if err != nil {
			return err
		}
		oldParent := r.ParentID
		if err := t.persist(ctx, snap, t.drift(snap, next), requirementID); err != nil {
			return err
		}
		r.ParentID = parentID
		r.UpdatedAt = requestcontext.Now(ctx)
		if err := s.requirements.Update(ctx, r); err != nil {
			return wrapStoreErr(err, "requirement")
		}
		moved, err := subtree(next, requirementID)
		if err != nil {
			return err
		}
		if err := s.refreshCompleteCodes(ctx, snap.byID, moved); err != nil {
			return err
		}
		out = r
		return s.emit(ctx, moveEvent(ctx, audit.ActionRequirementMoved, actor.ID, "requirement", requirementID.String(), oldParent.String(), parentID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttachCategory re-parents a category and recomputes complete names below it.
func (s *Service) AttachCategory(ctx context.Context, categoryID, parentID id.CategoryID) (*models.Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.attach_category")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Category
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		t := s.categoryTree()
		snap, err := t.load(ctx)
		if err != nil {
			return err
		}
		c, ok := snap.byID[categoryID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		next, err := snap.forest.Attach(categoryID, parentID)
		if err != nil {
			return err
		}
		oldParent := c.ParentID
		if err := t.persist(ctx, snap, t.drift(snap, next), categoryID); err != nil {
			return err
		}
		c.ParentID = parentID
		c.UpdatedAt = requestcontext.Now(ctx)
		if err := s.categories.Update(ctx, c); err != nil {
			return wrapStoreErr(err, "category")
		}
		moved, err := subtree(next, categoryID)
		if err != nil {
			return err
		}
		if err := s.refreshCompleteNames(ctx, snap.byID, moved); err != nil {
			return err
		}
		out = c
		return s.emit(ctx, moveEvent(ctx, audit.ActionCategoryMoved, actor.ID, "category", categoryID.String(), oldParent.String(), parentID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttachStandard nests a standard under another one.
func (s *Service) AttachStandard(ctx context.Context, standardID, parentID id.StandardID) (*models.Standard, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.attach_standard")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Standard
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		t := s.standardTree()
		snap, err := t.load(ctx)
		if err != nil {
			return err
		}
		std, ok := snap.byID[standardID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "standard not found")
		}
		next, err := snap.forest.Attach(standardID, parentID)
		if err != nil {
			return err
		}
		oldParent := std.ParentID
		if err := t.persist(ctx, snap, t.drift(snap, next), standardID); err != nil {
			return err
		}
		std.ParentID = parentID
		std.UpdatedAt = requestcontext.Now(ctx)
		if err := s.standards.Update(ctx, std); err != nil {
			return wrapStoreErr(err, "standard")
		}
		out = std
		return s.emit(ctx, moveEvent(ctx, audit.ActionStandardMoved, actor.ID, "standard", standardID.String(), oldParent.String(), parentID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DescendantDomains returns every active domain below domainID in the same
// standard, in tree order.
func (s *Service) DescendantDomains(ctx context.Context, domainID id.DomainID) ([]*models.Domain, error) {
	d, err := s.domains.FindByID(ctx, domainID)
	if err != nil {
		return nil, wrapStoreErr(err, "domain")
	}
	snap, err := s.domainTree(d.StandardID).load(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := snap.forest.DescendantsOf(domainID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Domain, 0, len(ids))
	for _, did := range ids {
		if desc := snap.byID[did]; desc.Active {
			out = append(out, desc)
		}
	}
	return out, nil
}

// DescendantRequirements returns every active requirement below requirementID, in tree order.
func (s *Service) DescendantRequirements(ctx context.Context, requirementID id.RequirementID) ([]*models.Requirement, error) {
	r, err := s.requirements.FindByID(ctx, requirementID)
	if err != nil {
		return nil, wrapStoreErr(err, "requirement")
	}
	snap, err := s.requirementTree(r.StandardID).load(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := snap.forest.DescendantsByPath(requirementID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Requirement, 0, len(ids))
	for _, rid := range ids {
		if desc := snap.byID[rid]; desc.Active {
			out = append(out, desc)
		}
	}
	return out, nil
}

// RebuildResult reports how many stored positions a rebuild corrected.
type RebuildResult struct {
	Kind    HierarchyKind `json:"kind"`
	Nodes   int           `json:"nodes"`
	Changed int           `json:"changed"`
}

// RebuildHierarchy renumbers a whole tree from parent pointers alone. It runs as
// one transaction: either every drifted position is corrected or none is.
func (s *Service) RebuildHierarchy(ctx context.Context, kind HierarchyKind) (*RebuildResult, error) {
	if !kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown hierarchy %q", kind)
	}
	ctx, span := s.tracer.Start(ctx, "catalog.rebuild_hierarchy")
	defer span.End()
	span.SetAttributes(attribute.String("hierarchy.kind", string(kind)))
	if _, err := s.currentActor(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	result := &RebuildResult{Kind: kind}
	err := s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		var err error
		switch kind {
		case KindStandard:
			result.Nodes, result.Changed, err = rebuildTree(ctx, s.standardTree(), nil)
		case KindCategory:
			result.Nodes, result.Changed, err = rebuildTree(ctx, s.categoryTree(),
				func(ctx context.Context, snap *snapshot[id.CategoryID, *models.Category]) error {
					return s.refreshCompleteNames(ctx, snap.byID, nodeIDs(snap.forest))
				})
		case KindRequirement:
			result.Nodes, result.Changed, err = rebuildTree(ctx, s.requirementTree(id.StandardID{}),
				func(ctx context.Context, snap *snapshot[id.RequirementID, *models.Requirement]) error {
					return s.refreshCompleteCodes(ctx, snap.byID, nodeIDs(snap.forest))
				})
		case KindDomain:
			result.Nodes, result.Changed, err = rebuildTree(ctx, s.domainTree(id.StandardID{}),
				func(ctx context.Context, snap *snapshot[id.DomainID, *models.Domain]) error {
					return s.recompute(ctx, uow, allDomainsChange(snap.byID))
				})
		}
		if err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:        audit.ActionHierarchyRebuilt,
			ActorID:       requestcontext.ActorID(ctx),
			SubjectType:   "hierarchy",
			SubjectID:     string(kind),
			RequestID:     requestcontext.RequestID(ctx),
			ClientSummary: requestcontext.ClientSummary(ctx),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveRebuild(string(kind), start)
	}
	s.logger.InfoContext(ctx, "hierarchy rebuilt",
		"kind", kind,
		"nodes", result.Nodes,
		"changed", result.Changed,
	)
	return result, nil
}

func rebuildTree[K hierarchy.Key, T any](
	ctx context.Context,
	t tree[K, T],
	after func(ctx context.Context, snap *snapshot[K, T]) error,
) (nodes, changed int, err error) {
	snap, err := t.load(ctx)
	if err != nil {
		return 0, 0, err
	}
	var zero K
	drift := t.drift(snap, snap.forest)
	if err := t.persist(ctx, snap, drift, zero); err != nil {
		return 0, 0, err
	}
	if after != nil {
		if err := after(ctx, snap); err != nil {
			return 0, 0, err
		}
	}
	return snap.forest.Len(), len(drift), nil
}

func nodeIDs[K hierarchy.Key](f *hierarchy.Forest[K]) []K {
	nodes := f.Nodes()
	out := make([]K, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func allDomainsChange(byID map[id.DomainID]*models.Domain) aggregation.Change {
	change := aggregation.Change{Fields: []aggregation.Field{aggregation.DomainPosition}}
	seen := map[id.StandardID]bool{}
	for did, d := range byID {
		change.Domains = append(change.Domains, did)
		if !seen[d.StandardID] {
			seen[d.StandardID] = true
			change.Standards = append(change.Standards, d.StandardID)
		}
	}
	return change
}

// refreshCompleteCodes walks ids (parents before children) and stores every
// requirement whose complete code changed.
func (s *Service) refreshCompleteCodes(ctx context.Context, byID map[id.RequirementID]*models.Requirement, ids []id.RequirementID) error {
	for _, rid := range ids {
		r := byID[rid]
		parentCode := ""
		if p, ok := byID[r.ParentID]; ok {
			parentCode = p.CompleteCode
		}
		code := models.CompleteCode(parentCode, r.Code)
		if code == r.CompleteCode {
			continue
		}
		r.CompleteCode = code
		if err := s.requirements.Update(ctx, r); err != nil {
			return wrapStoreErr(err, "requirement")
		}
	}
	return nil
}

// refreshCompleteNames is refreshCompleteCodes for category display paths.
func (s *Service) refreshCompleteNames(ctx context.Context, byID map[id.CategoryID]*models.Category, ids []id.CategoryID) error {
	for _, cid := range ids {
		c := byID[cid]
		name := c.Name
		if p, ok := byID[c.ParentID]; ok {
			name = models.JoinCompleteName([]string{p.CompleteName, c.Name})
		}
		if name == c.CompleteName {
			continue
		}
		c.CompleteName = name
		if err := s.categories.Update(ctx, c); err != nil {
			return wrapStoreErr(err, "category")
		}
	}
	return nil
}

func moveEvent(ctx context.Context, action audit.Action, actor id.ActorID, subjectType, subjectID, from, to string) audit.Event {
	event := newEvent(ctx, action, actor, subjectType, subjectID)
	event.From = from
	event.To = to
	return event
}
