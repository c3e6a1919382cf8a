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

// CreateStandard stores a new standard. The code "name:version" must be unused.
func (s *Service) CreateStandard(ctx context.Context, req *models.CreateStandardRequest) (*models.Standard, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	std, err := models.NewStandard(id.NewStandardID(), req.Name, req.Title, req.Version, req.Type, now)
	if err != nil {
		return nil, err
	}
	std.IssuingBody = req.IssuingBody
	std.PublicationDate = req.PublicationDate
	std.EffectiveDate = req.EffectiveDate
	std.ExpiryDate = req.ExpiryDate
	std.CategoryID = req.CategoryID
	std.ParentID = req.ParentID
	std.Sequence = req.Sequence
	if err := std.ValidateDates(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		existing, err := s.standards.ListAll(ctx)
		if err != nil {
			return wrapStoreErr(err, "standard")
		}
		for _, other := range existing {
			if other.Code == std.Code {
				return dErrors.Newf(dErrors.CodeConflict, "standard %s already exists", std.Code)
			}
		}
		if !std.CategoryID.IsNil() {
			cat, err := s.categories.FindByID(ctx, std.CategoryID)
			if err != nil {
				return wrapStoreErr(err, "category")
			}
			if !cat.Active {
				return dErrors.New(dErrors.CodeInvariantViolation, "category is archived")
			}
		}
		if err := s.standardTree().insert(ctx, std); err != nil {
			return err
		}
		if err := s.standards.Create(ctx, std); err != nil {
			return wrapStoreErr(err, "standard")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionStandardCreated, actor.ID, "standard", std.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "standard created", "standard_id", std.ID, "code", std.Code)
	return std, nil
}

func (s *Service) GetStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	std, err := s.standards.FindByID(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "standard")
	}
	return std, nil
}

func (s *Service) ListStandards(ctx context.Context) ([]*models.Standard, error) {
	out, err := s.standards.ListAll(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, "standard")
	}
	return out, nil
}

// ActivateStandard publishes a draft standard.
func (s *Service) ActivateStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	if _, err := s.currentActor(ctx); err != nil {
		return nil, err
	}
	var out *models.Standard
	err := s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		std, err := s.standards.FindByID(ctx, standardID)
		if err != nil {
			return wrapStoreErr(err, "standard")
		}
		if std.State != models.StandardDraft {
			return dErrors.Newf(dErrors.CodeTransitionDenied, "standard in state %s cannot be activated", std.State)
		}
		std.State = models.StandardActive
		std.UpdatedAt = requestcontext.Now(ctx)
		if err := s.standards.Update(ctx, std); err != nil {
			return wrapStoreErr(err, "standard")
		}
		out = std
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SupersedeStandard records that successorID replaces standardID. The
// supersession chain must stay acyclic.
func (s *Service) SupersedeStandard(ctx context.Context, standardID, successorID id.StandardID) (*models.Standard, error) {
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Standard
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		all, err := s.standards.ListAll(ctx)
		if err != nil {
			return wrapStoreErr(err, "standard")
		}
		edges := make(map[id.StandardID]id.StandardID, len(all))
		var std *models.Standard
		for _, candidate := range all {
			edges[candidate.ID] = candidate.SupersededBy
			if candidate.ID == standardID {
				std = candidate
			}
		}
		if std == nil {
			return dErrors.New(dErrors.CodeNotFound, "standard not found")
		}
		if _, ok := edges[successorID]; !ok && !successorID.IsNil() {
			return dErrors.New(dErrors.CodeNotFound, "successor standard not found")
		}
		chain := func(sid id.StandardID) id.StandardID { return edges[sid] }
		if err := std.CanSupersede(successorID, chain); err != nil {
			return err
		}
		from := string(std.State)
		std.ApplySupersede(successorID, requestcontext.Now(ctx))
		if err := s.standards.Update(ctx, std); err != nil {
			return wrapStoreErr(err, "standard")
		}
		out = std
		event := newEvent(ctx, audit.ActionStandardSuperseded, actor.ID, "standard", std.ID.String())
		event.From = from
		event.To = string(std.State)
		event.Reason = "superseded by " + successorID.String()
		return s.emit(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StandardStatistics returns the stored statistics of a standard, through the
// cache when one is configured.
func (s *Service) StandardStatistics(ctx context.Context, standardID id.StandardID) (aggregation.Statistics, error) {
	return s.cachedStatistics(ctx, StandardStatsKey(standardID), func(ctx context.Context) (aggregation.Statistics, error) {
		std, err := s.standards.FindByID(ctx, standardID)
		if err != nil {
			return aggregation.Statistics{}, wrapStoreErr(err, "standard")
		}
		return std.Statistics, nil
	})
}

// DomainStatistics returns the stored statistics of a domain and its descendants.
func (s *Service) DomainStatistics(ctx context.Context, domainID id.DomainID) (aggregation.Statistics, error) {
	return s.cachedStatistics(ctx, DomainStatsKey(domainID), func(ctx context.Context) (aggregation.Statistics, error) {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return aggregation.Statistics{}, wrapStoreErr(err, "domain")
		}
		return d.Statistics, nil
	})
}

func (s *Service) cachedStatistics(
	ctx context.Context,
	key string,
	load func(ctx context.Context) (aggregation.Statistics, error),
) (aggregation.Statistics, error) {
	if s.cache == nil {
		return load(ctx)
	}
	stats, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "statistics cache read failed", "key", key, "error", err)
	}
	if ok {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		return stats, nil
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
	gen, genErr := s.cache.Generation(ctx, key)
	stats, err = load(ctx)
	if err != nil {
		return aggregation.Statistics{}, err
	}
	if genErr != nil {
		s.logger.WarnContext(ctx, "statistics cache generation read failed", "key", key, "error", genErr)
		return stats, nil
	}
	stored, err := s.cache.Set(ctx, key, gen, stats)
	if err != nil {
		s.logger.WarnContext(ctx, "statistics cache write failed", "key", key, "error", err)
	} else if !stored {
		s.logger.DebugContext(ctx, "statistics cache write skipped after invalidation", "key", key)
	}
	return stats, nil
}

func newEvent(ctx context.Context, action audit.Action, actor id.ActorID, subjectType, subjectID string) audit.Event {
	return audit.Event{
		Action:        action,
		ActorID:       actor,
		SubjectType:   subjectType,
		SubjectID:     subjectID,
		RequestID:     requestcontext.RequestID(ctx),
		ClientSummary: requestcontext.ClientSummary(ctx),
	}
}
