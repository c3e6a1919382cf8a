package service

import (
	"context"

	"complyhub/internal/aggregation"
	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

// Archiving deactivates a record instead of deleting it. Domains, requirements
// and categories take their whole subtree with them; archived records stay
// readable but accept no further writes and drop out of statistics.
// Archiving an archived record is a no-op.

// ArchiveStandard deactivates a standard. Its domains, requirements and controls
// are kept as they are, but nothing new can be added to it.
func (s *Service) ArchiveStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.archive_standard")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Standard
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		std, err := s.standards.FindByID(ctx, standardID)
		if err != nil {
			return wrapStoreErr(err, "standard")
		}
		out = std
		if !std.Archive(requestcontext.Now(ctx)) {
			return nil
		}
		if err := s.standards.Update(ctx, std); err != nil {
			return wrapStoreErr(err, "standard")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionStandardArchived, actor.ID, "standard", std.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ArchiveCategory deactivates a category and every category below it.
func (s *Service) ArchiveCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.archive_category")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Category
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		snap, err := s.categoryTree().load(ctx)
		if err != nil {
			return err
		}
		root, ok := snap.byID[categoryID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		out = root
		ids, err := subtree(snap.forest, categoryID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		for _, cid := range ids {
			c := snap.byID[cid]
			if !c.Archive(now) {
				continue
			}
			if err := s.categories.Update(ctx, c); err != nil {
				return wrapStoreErr(err, "category")
			}
			if err := s.emit(ctx, newEvent(ctx, audit.ActionCategoryArchived, actor.ID, "category", cid.String())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ArchiveDomain deactivates a domain and its descendants, then recomputes the
// statistics of the archived domains and of every ancestor in the same
// transaction.
func (s *Service) ArchiveDomain(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.archive_domain")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		snap, err := s.domainTree(d.StandardID).load(ctx)
		if err != nil {
			return err
		}
		ids, err := subtree(snap.forest, domainID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		var archived []id.DomainID
		for _, did := range ids {
			desc := snap.byID[did]
			if !desc.Archive(now) {
				continue
			}
			if err := s.domains.Update(ctx, desc); err != nil {
				return wrapStoreErr(err, "domain")
			}
			archived = append(archived, did)
		}
		if len(archived) == 0 {
			return nil
		}
		if err := s.recompute(ctx, uow, aggregation.Change{
			Fields:    []aggregation.Field{aggregation.DomainActive},
			Domains:   archived,
			Standards: []id.StandardID{d.StandardID},
		}); err != nil {
			return err
		}
		for _, did := range archived {
			if err := s.emit(ctx, newEvent(ctx, audit.ActionDomainArchived, actor.ID, "domain", did.String())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDomain(ctx, domainID)
}

// ArchiveRequirement deactivates a requirement and its descendants and refreshes
// the requirement compliance score of the standard.
func (s *Service) ArchiveRequirement(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.archive_requirement")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		r, err := s.requirements.FindByID(ctx, requirementID)
		if err != nil {
			return wrapStoreErr(err, "requirement")
		}
		snap, err := s.requirementTree(r.StandardID).load(ctx)
		if err != nil {
			return err
		}
		ids, err := subtree(snap.forest, requirementID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		changed := false
		for _, rid := range ids {
			desc := snap.byID[rid]
			if !desc.Archive(now) {
				continue
			}
			if err := s.requirements.Update(ctx, desc); err != nil {
				return wrapStoreErr(err, "requirement")
			}
			if err := s.emit(ctx, newEvent(ctx, audit.ActionRequirementArchived, actor.ID, "requirement", rid.String())); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			return nil
		}
		return s.recompute(ctx, uow, requirementChange(r.StandardID, aggregation.RequirementActive))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRequirement(ctx, requirementID)
}
