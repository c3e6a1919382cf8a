package service

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"complyhub/internal/aggregation"
	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	"complyhub/internal/costing"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

// CreateControl stores a draft control and links it to its primary domain when one is given.
func (s *Service) CreateControl(ctx context.Context, req *models.CreateControlRequest) (*models.Control, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c, err := models.NewControl(id.NewControlID(), req.StandardID, req.Name, now)
	if err != nil {
		return nil, err
	}
	req.Patch().ApplyFields(c, now)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		if _, err := s.liveStandard(ctx, c.StandardID); err != nil {
			return err
		}
		if err := s.checkTools(ctx, c.ToolIDs); err != nil {
			return err
		}
		if err := s.controls.Create(ctx, c); err != nil {
			return wrapStoreErr(err, "control")
		}
		change := aggregation.Change{
			Fields:    []aggregation.Field{aggregation.ControlInputs},
			Standards: []id.StandardID{c.StandardID},
		}
		if !c.DomainID.IsNil() {
			if err := s.linkPrimary(ctx, c, now); err != nil {
				return err
			}
			change.Fields = append(change.Fields, aggregation.ControlMembership)
			change.Domains = []id.DomainID{c.DomainID}
		}
		if err := s.recompute(ctx, uow, change); err != nil {
			return err
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionControlCreated, actor.ID, "control", c.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "control created",
		"control_id", c.ID,
		"standard_id", c.StandardID,
	)
	return c, nil
}

func (s *Service) GetControl(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	c, err := s.controls.FindByID(ctx, controlID)
	if err != nil {
		return nil, wrapStoreErr(err, "control")
	}
	return c, nil
}

func (s *Service) ListControls(ctx context.Context, standardID id.StandardID) ([]*models.Control, error) {
	out, err := s.controls.ListByStandard(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "control")
	}
	return out, nil
}

// UpdateControl applies a generic field update. A state change in the patch is
// authorized by the lifecycle guard against the patched record; when anything is
// rejected the stored control is left untouched.
func (s *Service) UpdateControl(ctx context.Context, controlID id.ControlID, patch models.ControlPatch) (*models.Control, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_control")
	defer span.End()
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Control
	var transitioned bool
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		current, err := s.controls.FindByID(ctx, controlID)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		if !current.Active {
			if patch.IsEmpty() {
				out = current
				return nil
			}
			return dErrors.New(dErrors.CodeInvariantViolation, "cannot update an archived control")
		}
		now := requestcontext.Now(ctx)
		next := current.Clone()
		patch.ApplyFields(next, now)

		var effect *lifecycle.Effect
		if patch.State != nil && *patch.State != current.State {
			eff, err := next.CanTransition(*patch.State, actor, now)
			if err != nil {
				s.recordTransition(*patch.State, err)
				return err
			}
			next.ApplyTransition(eff)
			effect = &eff
			transitioned = true
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if patch.ToolIDs != nil {
			if err := s.checkTools(ctx, next.ToolIDs); err != nil {
				return err
			}
		}
		if err := s.controls.Update(ctx, next); err != nil {
			return wrapStoreErr(err, "control")
		}

		change := aggregation.Change{Standards: []id.StandardID{next.StandardID}}
		if patch.TouchesInputs() {
			change.Fields = append(change.Fields, aggregation.ControlInputs)
		}
		if effect != nil {
			change.Fields = append(change.Fields, aggregation.ControlState)
		}
		if next.DomainID != current.DomainID {
			if err := s.relinkPrimary(ctx, current, next, now); err != nil {
				return err
			}
			change.Fields = append(change.Fields, aggregation.ControlMembership)
			change.Domains = append(change.Domains, current.DomainID, next.DomainID)
		}
		if len(change.Fields) > 0 {
			linked, err := s.linkedDomains(ctx, next)
			if err != nil {
				return err
			}
			change.Domains = append(change.Domains, linked...)
			if err := s.recompute(ctx, uow, change); err != nil {
				return err
			}
		}

		if err := s.emit(ctx, newEvent(ctx, audit.ActionControlUpdated, actor.ID, "control", next.ID.String())); err != nil {
			return err
		}
		if effect != nil {
			if err := s.emit(ctx, transitionEvent(ctx, next.ID, *effect)); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.recordTransition(out.State, nil)
	}
	return out, nil
}

// Transition moves a control to a new lifecycle state on behalf of the current actor.
func (s *Service) Transition(ctx context.Context, controlID id.ControlID, to lifecycle.State) (*models.Control, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.transition")
	defer span.End()
	span.SetAttributes(attribute.String("control.to", string(to)))
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.Control
	err = s.runInTx(ctx, func(ctx context.Context, uow *unitOfWork) error {
		now := requestcontext.Now(ctx)
		var effect lifecycle.Effect
		c, err := s.controls.Execute(ctx, controlID,
			func(c *models.Control) error {
				eff, err := c.CanTransition(to, actor, now)
				if err != nil {
					return err
				}
				effect = eff
				return nil
			},
			func(c *models.Control) {
				c.ApplyTransition(effect)
			},
		)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		linked, err := s.linkedDomains(ctx, c)
		if err != nil {
			return err
		}
		if err := s.recompute(ctx, uow, aggregation.Change{
			Fields:    []aggregation.Field{aggregation.ControlState},
			Domains:   linked,
			Standards: []id.StandardID{c.StandardID},
		}); err != nil {
			return err
		}
		out = c
		return s.emit(ctx, transitionEvent(ctx, c.ID, effect))
	})
	s.recordTransition(to, err)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "control transitioned",
		"control_id", controlID,
		"to", to,
		"actor_id", actor.ID,
	)
	return out, nil
}

func (s *Service) SubmitForReview(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateReview)
}

func (s *Service) Approve(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateApproved)
}

func (s *Service) StartImplementation(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateImplementing)
}

func (s *Service) MarkImplemented(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateImplemented)
}

func (s *Service) StartTesting(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateTesting)
}

func (s *Service) MarkVerified(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateVerified)
}

func (s *Service) MarkIneffective(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateIneffective)
}

// Retire archives a control. It stops counting toward any statistics.
func (s *Service) Retire(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return s.Transition(ctx, controlID, lifecycle.StateRetired)
}

// RecordTest stores a completed test run. A zero testedAt means now; an empty
// result leaves the automated check untouched.
func (s *Service) RecordTest(ctx context.Context, controlID id.ControlID, testedAt time.Time, result costing.CheckResult) (*models.Control, error) {
	if !result.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown check result %q", result)
	}
	actor, err := s.currentActor(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if testedAt.IsZero() {
		testedAt = now
	}
	if testedAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "test date cannot be in the future")
	}

	var out *models.Control
	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		c, err := s.controls.Execute(ctx, controlID,
			func(c *models.Control) error {
				if !c.Active {
					return dErrors.New(dErrors.CodeInvariantViolation, "cannot record a test on an archived control")
				}
				return nil
			},
			func(c *models.Control) {
				c.ApplyTestResult(testedAt, result, now)
			},
		)
		if err != nil {
			return wrapStoreErr(err, "control")
		}
		out = c
		event := newEvent(ctx, audit.ActionControlTested, actor.ID, "control", c.ID.String())
		event.To = string(result)
		return s.emit(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DueForTesting lists active implemented controls whose next test is due on or before day.
func (s *Service) DueForTesting(ctx context.Context, day time.Time) ([]*models.Control, error) {
	candidates, err := s.controls.ListDue(ctx, day)
	if err != nil {
		return nil, wrapStoreErr(err, "control")
	}
	out := make([]*models.Control, 0, len(candidates))
	for _, c := range candidates {
		if c.IsDueForTest(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

// linkedDomains returns every domain of the control's standard that links it.
func (s *Service) linkedDomains(ctx context.Context, c *models.Control) ([]id.DomainID, error) {
	domains, err := s.domains.ListByStandard(ctx, c.StandardID)
	if err != nil {
		return nil, wrapStoreErr(err, "domain")
	}
	var out []id.DomainID
	for _, d := range domains {
		if slices.Contains(d.ControlIDs, c.ID) {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

// linkPrimary links c to c.DomainID, which must be a live domain of the control's standard.
func (s *Service) linkPrimary(ctx context.Context, c *models.Control, now time.Time) error {
	d, err := s.liveDomain(ctx, c.DomainID, c.StandardID)
	if err != nil {
		return err
	}
	if !d.LinkControl(c.ID, now) {
		return nil
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return wrapStoreErr(err, "domain")
	}
	return nil
}

// relinkPrimary moves the control's primary link from the previous domain to the new one.
func (s *Service) relinkPrimary(ctx context.Context, prev, next *models.Control, now time.Time) error {
	if !next.DomainID.IsNil() {
		if err := s.linkPrimary(ctx, next, now); err != nil {
			return err
		}
	}
	if prev.DomainID.IsNil() {
		return nil
	}
	old, err := s.domains.FindByID(ctx, prev.DomainID)
	if err != nil {
		return wrapStoreErr(err, "domain")
	}
	if !old.UnlinkControl(prev.ID, now) {
		return nil
	}
	if err := s.domains.Update(ctx, old); err != nil {
		return wrapStoreErr(err, "domain")
	}
	return nil
}

func (s *Service) checkTools(ctx context.Context, toolIDs []id.AssessmentToolID) error {
	for _, tid := range toolIDs {
		if _, err := s.tools.FindByID(ctx, tid); err != nil {
			return wrapStoreErr(err, "assessment tool")
		}
	}
	return nil
}

func (s *Service) recordTransition(to lifecycle.State, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.IncrementTransition(string(to), outcome)
}

func transitionEvent(ctx context.Context, controlID id.ControlID, e lifecycle.Effect) audit.Event {
	event := moveEvent(ctx, audit.ActionControlTransitioned, e.By, "control", controlID.String(), string(e.From), string(e.To))
	event.Timestamp = e.At
	return event
}
