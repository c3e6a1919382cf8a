package service

import (
	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// =============================================================================
// Certifications
// =============================================================================

func (s *ServiceSuite) TestCreateCertification() {
	std := s.createStandard("CIS Ubuntu 22.04")
	d := s.createDomain(std.ID, id.DomainID{}, "Filesystem")
	c := s.createControl(std.ID, d.ID, "Partitioning")
	ctx := s.asManager()

	cert, err := s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
		StandardID:           std.ID,
		ControlID:            c.ID,
		DomainID:             d.ID,
		Name:                 "  Ensure /tmp is a separate partition ",
		Title:                "Separate /tmp",
		RecommendationNumber: "1.1.2.1",
		AssessmentStatus:     models.AssessmentAutomated,
		Level:                models.BenchmarkLevel1,
		Sequence:             20,
	})
	s.Require().NoError(err)
	s.Equal("1.1.2.1 - Ensure /tmp is a separate partition", cert.DisplayName())
	s.Equal(models.CertificationDraft, cert.State)
	s.True(cert.Active)

	_, err = s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
		StandardID: std.ID,
		Name:       "Ensure auditd is installed",
		Title:      "auditd",
		Sequence:   10,
	})
	s.Require().NoError(err)

	list, err := s.service.ListCertifications(ctx, std.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Ensure auditd is installed", list[0].Name)

	got, err := s.service.GetCertification(ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ControlID)

	events, err := s.trail.ListBySubject(ctx, "certification", cert.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCertificationCreated, events[0].Action)
}

func (s *ServiceSuite) TestCreateCertificationChecksScope() {
	std := s.createStandard("CIS Ubuntu 22.04")
	other := s.createStandard("CIS RHEL 9")
	foreignControl := s.createControl(other.ID, id.DomainID{}, "Partitioning")
	foreignDomain := s.createDomain(other.ID, id.DomainID{}, "Filesystem")
	ctx := s.asManager()

	s.Run("control of another standard", func() {
		_, err := s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
			StandardID: std.ID, ControlID: foreignControl.ID, Name: "Ensure /tmp", Title: "tmp",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	s.Run("domain of another standard", func() {
		_, err := s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
			StandardID: std.ID, DomainID: foreignDomain.ID, Name: "Ensure /tmp", Title: "tmp",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	s.Run("invalid percentage", func() {
		_, err := s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
			StandardID: std.ID, Name: "Ensure /tmp", Title: "tmp", CompliancePercentage: 120,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("archived standard", func() {
		_, err := s.service.ArchiveStandard(ctx, other.ID)
		s.Require().NoError(err)
		_, err = s.service.CreateCertification(ctx, &models.CreateCertificationRequest{
			StandardID: other.ID, Name: "Ensure /tmp", Title: "tmp",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown certification", func() {
		_, err := s.service.GetCertification(ctx, id.NewCertificationID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
