package service

import (
	"context"

	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

// CreateCertification records a benchmark recommendation under a live standard.
// The control and domain it points at, when given, must be active and belong to
// the same standard.
func (s *Service) CreateCertification(ctx context.Context, req *models.CreateCertificationRequest) (*models.Certification, error) {
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
	cert := models.NewCertification(id.NewCertificationID(), *req, requestcontext.Now(ctx))

	err = s.runInTx(ctx, func(ctx context.Context, _ *unitOfWork) error {
		if _, err := s.liveStandard(ctx, cert.StandardID); err != nil {
			return err
		}
		if !cert.ControlID.IsNil() {
			c, err := s.controls.FindByID(ctx, cert.ControlID)
			if err != nil {
				return wrapStoreErr(err, "control")
			}
			if c.StandardID != cert.StandardID {
				return dErrors.New(dErrors.CodeScopeViolation, "control belongs to a different standard")
			}
			if !c.Active {
				return dErrors.New(dErrors.CodeInvariantViolation, "control is archived")
			}
		}
		if !cert.DomainID.IsNil() {
			if _, err := s.liveDomain(ctx, cert.DomainID, cert.StandardID); err != nil {
				return err
			}
		}
		if err := s.certs.Create(ctx, cert); err != nil {
			return wrapStoreErr(err, "certification")
		}
		return s.emit(ctx, newEvent(ctx, audit.ActionCertificationCreated, actor.ID, "certification", cert.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "certification created",
		"certification_id", cert.ID,
		"standard_id", cert.StandardID,
	)
	return cert, nil
}

func (s *Service) GetCertification(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		return nil, wrapStoreErr(err, "certification")
	}
	return cert, nil
}

// ListCertifications returns the certifications of a standard in sequence order.
func (s *Service) ListCertifications(ctx context.Context, standardID id.StandardID) ([]*models.Certification, error) {
	if _, err := s.standards.FindByID(ctx, standardID); err != nil {
		return nil, wrapStoreErr(err, "standard")
	}
	out, err := s.certs.ListByStandard(ctx, standardID)
	if err != nil {
		return nil, wrapStoreErr(err, "certification")
	}
	return out, nil
}
