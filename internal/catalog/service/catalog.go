package service

import (
	"context"

	"complyhub/internal/aggregation"
	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

func (s *Service) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := models.NewCategory(id.NewCategoryID(), req.Name, req.ParentID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	c.Sequence = req.Sequence

	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		if !c.ParentID.IsNil() {
			parent, err := s.categories.FindByID(ctx, c.ParentID)
			if err != nil {
				return wrapStoreErr(err, "parent category")
			}
			if !parent.Active {
				return dErrors.New(dErrors.CodeInvariantViolation, "parent category is archived")
			}
			c.CompleteName = models.JoinCompleteName([]string{parent.CompleteName, c.Name})
		}
		if err := s.categoryTree().insert(ctx, c); err != nil {
			return err
		}
		if err := s.categories.Create(ctx, c); err != nil {
			return wrapStoreErr(err, "category")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionCategoryCreated, actor.ID, "category", c.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateDomain adds a domain to a standard, optionally under a parent domain of
// the same standard.
func (s *Service) CreateDomain(ctx context.Context, req *models.CreateDomainRequest) (*models.Domain, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	d, err := models.NewDomain(id.NewDomainID(), req.StandardID, req.Name, req.Code, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	d.ParentID = req.ParentID
	d.ZoneID = req.ZoneID
	d.Sequence = req.Sequence

	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		if _, err := s.liveStandard(ctx, d.StandardID); err != nil {
			return err
		}
		if !d.ParentID.IsNil() {
			if _, err := s.liveDomain(ctx, d.ParentID, d.StandardID); err != nil {
				return err
			}
		}
		if err := s.checkZone(ctx, d.ZoneID, d.StandardID); err != nil {
			return err
		}
		if err := s.domainTree(d.StandardID).insert(ctx, d); err != nil {
			return err
		}
		if err := s.domains.Create(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		if err := s.recompute(ctx, uow, aggregation.Change{
			Fields:    []aggregation.Field{aggregation.DomainParent},
			Domains:   []id.DomainID{d.ID},
			Standards: []id.StandardID{d.StandardID},
		}); err != nil {
			return err
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionDomainCreated, actor.ID, "domain", d.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return s.GetDomain(ctx, d.ID)
}

func (s *Service) GetDomain(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	d, err := s.domains.FindByID(ctx, domainID)
	if err != nil {
		return nil, wrapStoreErr(err, "domain")
	}
	return d, nil
}

// liveStandard loads a standard that new records may be added to.
func (s *Service) liveStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	std, err := s.standards.FindByID(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "standard")
	}
	if !std.Active {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "standard is archived")
	}
	return std, nil
}

// liveDomain loads an active domain of standardID.
func (s *Service) liveDomain(ctx context.Context, domainID id.DomainID, standardID id.StandardID) (*models.Domain, error) {
	d, err := s.domains.FindByID(ctx, domainID)
	if err != nil {
		return nil, wrapStoreErr(err, "domain")
	}
	if d.StandardID != standardID {
		return nil, dErrors.New(dErrors.CodeScopeViolation, "domain belongs to a different standard")
	}
	if !d.Active {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "domain is archived")
	}
	return d, nil
}

func (s *Service) checkZone(ctx context.Context, zoneID id.ZoneID, standardID id.StandardID) error {
	if zoneID.IsNil() {
		return nil
	}
	z, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		return wrapStoreErr(err, "zone")
	}
	if z.StandardID != standardID {
		return dErrors.New(dErrors.CodeScopeViolation, "zone belongs to another standard")
	}
	return nil
}

// TransitionDomain moves a domain along the structural workflow edges.
func (s *Service) TransitionDomain(ctx context.Context, domainID id.DomainID, to lifecycle.State) (*models.Domain, error) {
	if !to.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown state %q", to)
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Domain
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		if !d.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "domain is archived")
		}
		if err := d.CanTransitionTo(to); err != nil {
			return err
		}
		from := d.State
		d.State = to
		d.UpdatedAt = requestcontext.Now(ctx)
		if err := s.domains.Update(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		out = d
		return s.emit(ctx, moveEvent(ctx, audit.ActionDomainTransitioned, actor.ID, "domain", d.ID.String(), string(from), string(to)))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssignDomainZone places a domain in a zone of its own standard (nil zone clears it)
// and recounts the zones.
func (s *Service) AssignDomainZone(ctx context.Context, domainID id.DomainID, zoneID id.ZoneID) (*models.Domain, error) {
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Domain
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		if !d.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "domain is archived")
		}
		if err := s.checkZone(ctx, zoneID, d.StandardID); err != nil {
			return err
		}
		from := d.ZoneID
		d.ZoneID = zoneID
		d.UpdatedAt = requestcontext.Now(ctx)
		if err := s.domains.Update(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		domains, err := s.domains.ListByStandard(ctx, d.StandardID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		if err := s.recountZones(ctx, d.StandardID, activeDomains(domains)); err != nil {
			return err
		}
		out = d
		return s.emit(ctx, moveEvent(ctx, audit.ActionZoneAssigned, actor.ID, "domain", d.ID.String(), from.String(), zoneID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LinkControl attaches a control to a domain of the same standard. A control
// without a primary domain takes this one.
func (s *Service) LinkControl(ctx context.Context, domainID id.DomainID, controlID id.ControlID) (*models.Domain, error) {
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		c, err := s.controls.FindByID(ctx, controlID)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		if c.StandardID != d.StandardID {
			return dErrors.New(dErrors.CodeScopeViolation, "control and domain belong to different standards")
		}
		if !d.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "cannot link a control to an archived domain")
		}
		if !c.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "cannot link an archived control")
		}
		now := requestcontext.Now(ctx)
		if !d.LinkControl(controlID, now) {
			return nil
		}
		if err := s.domains.Update(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		if c.DomainID.IsNil() {
			c.DomainID = domainID
			c.UpdatedAt = now
			if err := s.controls.Update(ctx, c); err != nil {
				return wrapStoreErr(err, "control")
			}
		}
		if err := s.recompute(ctx, uow, membershipChange(d.StandardID, domainID)); err != nil {
			return err
		}
		event := newEvent(ctx, audit.ActionDomainControlLinked, actor.ID, "domain", domainID.String())
		event.To = controlID.String()
		return s.emit(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDomain(ctx, domainID)
}

// UnlinkControl detaches a control from a domain. Unlinking a control that is not
// linked is a no-op.
func (s *Service) UnlinkControl(ctx context.Context, domainID id.DomainID, controlID id.ControlID) (*models.Domain, error) {
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		d, err := s.domains.FindByID(ctx, domainID)
		if err != nil {
			return wrapStoreErr(err, "domain")
		}
		now := requestcontext.Now(ctx)
		if !d.UnlinkControl(controlID, now) {
			return nil
		}
		if err := s.domains.Update(ctx, d); err != nil {
			return wrapStoreErr(err, "domain")
		}
		c, err := s.controls.FindByID(ctx, controlID)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		if c.DomainID == domainID {
			c.DomainID = id.DomainID{}
			c.UpdatedAt = now
			if err := s.controls.Update(ctx, c); err != nil {
				return wrapStoreErr(err, "control")
			}
		}
		if err := s.recompute(ctx, uow, membershipChange(d.StandardID, domainID)); err != nil {
			return err
		}
		event := newEvent(ctx, audit.ActionControlUnlinked, actor.ID, "domain", domainID.String())
		event.From = controlID.String()
		return s.emit(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDomain(ctx, domainID)
}

func activeDomains(domains []*models.Domain) []*models.Domain {
	out := make([]*models.Domain, 0, len(domains))
	for _, d := range domains {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

func membershipChange(standardID id.StandardID, domains ...id.DomainID) aggregation.Change {
	return aggregation.Change{
		Fields:    []aggregation.Field{aggregation.ControlMembership},
		Domains:   domains,
		Standards: []id.StandardID{standardID},
	}
}

// CreateRequirement adds a clause to a standard. Its complete code is derived from
// the parent's.
func (s *Service) CreateRequirement(ctx context.Context, req *models.CreateRequirementRequest) (*models.Requirement, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	r, err := models.NewRequirement(id.NewRequirementID(), req.StandardID, req.Name, req.Code, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	r.ParentID = req.ParentID
	r.Sequence = req.Sequence

	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		if _, err := s.liveStandard(ctx, r.StandardID); err != nil {
			return err
		}
		if !r.ParentID.IsNil() {
			parent, err := s.liveRequirement(ctx, r.ParentID, r.StandardID)
			if err != nil {
				return err
			}
			r.CompleteCode = models.CompleteCode(parent.CompleteCode, r.Code)
		}
		if err := s.requirementTree(r.StandardID).insert(ctx, r); err != nil {
			return err
		}
		if err := s.requirements.Create(ctx, r); err != nil {
			return wrapStoreErr(err, "requirement")
		}
		if err := s.recompute(ctx, uow, requirementChange(r.StandardID, aggregation.RequirementActive)); err != nil {
			return err
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionRequirementCreated, actor.ID, "requirement", r.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// liveRequirement loads an active requirement of standardID.
func (s *Service) liveRequirement(ctx context.Context, requirementID id.RequirementID, standardID id.StandardID) (*models.Requirement, error) {
	r, err := s.requirements.FindByID(ctx, requirementID)
	if err != nil {
		return nil, wrapStoreErr(err, "requirement")
	}
	if r.StandardID != standardID {
		return nil, dErrors.New(dErrors.CodeScopeViolation, "requirement belongs to a different standard")
	}
	if !r.Active {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requirement is archived")
	}
	return r, nil
}

func requirementChange(standardID id.StandardID, field aggregation.Field) aggregation.Change {
	return aggregation.Change{
		Fields:    []aggregation.Field{field},
		Standards: []id.StandardID{standardID},
	}
}

func (s *Service) GetRequirement(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error) {
	r, err := s.requirements.FindByID(ctx, requirementID)
	if err != nil {
		return nil, wrapStoreErr(err, "requirement")
	}
	return r, nil
}

// SetComplianceStatus records the operator's assessment of a requirement and
// refreshes the requirement compliance score of its standard.
func (s *Service) SetComplianceStatus(ctx context.Context, requirementID id.RequirementID, status models.ComplianceStatus) (*models.Requirement, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown compliance status %q", status)
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.Requirement
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		r, err := s.requirements.FindByID(ctx, requirementID)
		if err != nil {
			return wrapStoreErr(err, "requirement")
		}
		if !r.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "requirement is archived")
		}
		from := r.ComplianceStatus
		if from == status {
			out = r
			return nil
		}
		r.ComplianceStatus = status
		r.UpdatedAt = requestcontext.Now(ctx)
		if err := s.requirements.Update(ctx, r); err != nil {
			return wrapStoreErr(err, "requirement")
		}
		if err := s.recompute(ctx, uow, requirementChange(r.StandardID, aggregation.RequirementStatus)); err != nil {
			return err
		}
		out = r
		return s.emit(ctx, moveEvent(ctx, audit.ActionComplianceStatusSet, actor.ID, "requirement", r.ID.String(), string(from), string(status)))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateZone adds a zone to a standard. Codes are unique per standard.
func (s *Service) CreateZone(ctx context.Context, req *models.CreateZoneRequest) (*models.Zone, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	z, err := models.NewZone(id.NewZoneID(), req.StandardID, req.Name, req.Code, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		if _, err := s.liveStandard(ctx, z.StandardID); err != nil {
			return err
		}
		if err := s.zones.Create(ctx, z); err != nil {
			return wrapStoreErr(err, "zone")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionZoneCreated, actor.ID, "zone", z.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return z, nil
}

func (s *Service) ListZones(ctx context.Context, standardID id.StandardID) ([]*models.Zone, error) {
	out, err := s.zones.ListByStandard(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "zone")
	}
	return out, nil
}

// CreateAuditQuestion adds a question to a requirement; the standard is taken
// from the requirement.
func (s *Service) CreateAuditQuestion(ctx context.Context, req *models.CreateAuditQuestionRequest) (*models.AuditQuestion, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	var out *models.AuditQuestion
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		r, err := s.requirements.FindByID(ctx, req.RequirementID)
		if err != nil {
			return wrapStoreErr(err, "requirement")
		}
		if !r.Active {
			return dErrors.New(dErrors.CodeInvariantViolation, "requirement is archived")
		}
		q, err := models.NewAuditQuestion(id.NewAuditQuestionID(), r, req.Question, req.ExpectedEvidence, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		existing, err := s.questions.ListByRequirement(ctx, r.ID)
		if err != nil {
			return wrapStoreErr(err, "audit question")
		}
		q.Sequence = len(existing)
		if err := s.questions.Create(ctx, q); err != nil {
			return wrapStoreErr(err, "audit question")
		}
		out = q
		return s.emit(ctx, newEvent(ctx, audit.ActionAuditQuestionCreated, actor.ID, "audit_question", q.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListAuditQuestions(ctx context.Context, requirementID id.RequirementID) ([]*models.AuditQuestion, error) {
	out, err := s.questions.ListByRequirement(ctx, requirementID)
	if err != nil {
		return nil, wrapStoreErr(err, "audit question")
	}
	return out, nil
}

func (s *Service) CreateAssessmentTool(ctx context.Context, req *models.CreateAssessmentToolRequest) (*models.AssessmentTool, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	tool, err := models.NewAssessmentTool(id.NewAssessmentToolID(), req.Name, req.Title, req.Type, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	tool.Vendor = req.Vendor
	tool.URL = req.URL
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		if err := s.tools.Create(ctx, tool); err != nil {
			return wrapStoreErr(err, "assessment tool")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionToolCreated, actor.ID, "assessment_tool", tool.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return tool, nil
}
