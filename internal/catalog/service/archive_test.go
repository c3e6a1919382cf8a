package service

import (
	"context"

	"complyhub/internal/audit"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// =============================================================================
// Archiving
// =============================================================================

func (s *ServiceSuite) countEvents(subjectType, subjectID string, action audit.Action) int {
	events, err := s.trail.ListBySubject(context.Background(), subjectType, subjectID)
	s.Require().NoError(err)
	var n int
	for _, e := range events {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) TestArchiveDomain() {
	std := s.createStandard("ISO 27001")
	root := s.createDomain(std.ID, id.DomainID{}, "Annex A")
	child := s.createDomain(std.ID, root.ID, "A.5")
	grandchild := s.createDomain(std.ID, child.ID, "A.5.1")
	sibling := s.createDomain(std.ID, root.ID, "A.6")
	s.createControl(std.ID, root.ID, "Policy")
	s.createControl(std.ID, child.ID, "Roles")
	s.createControl(std.ID, grandchild.ID, "Segregation")
	spare := s.createControl(std.ID, sibling.ID, "Screening")

	before, err := s.service.DomainStatistics(s.asManager(), root.ID)
	s.Require().NoError(err)
	s.Equal(4, before.ControlCount)
	s.Equal(2, before.ChildDomainCount)

	archived, err := s.service.ArchiveDomain(s.asManager(), child.ID)
	s.Require().NoError(err)
	s.False(archived.Active)

	s.Run("subtree is archived", func() {
		g, _ := s.service.GetDomain(s.asManager(), grandchild.ID)
		s.False(g.Active)
		sib, _ := s.service.GetDomain(s.asManager(), sibling.ID)
		s.True(sib.Active)
	})

	s.Run("ancestors drop the archived subtree in the same write", func() {
		stats, err := s.service.DomainStatistics(s.asManager(), root.ID)
		s.Require().NoError(err)
		s.Equal(2, stats.ControlCount)
		s.Equal(1, stats.ChildDomainCount)

		gone, err := s.service.DomainStatistics(s.asManager(), child.ID)
		s.Require().NoError(err)
		s.Zero(gone.ControlCount)
	})

	s.Run("descendants skip archived domains", func() {
		desc, err := s.service.DescendantDomains(s.asManager(), root.ID)
		s.Require().NoError(err)
		s.Require().Len(desc, 1)
		s.Equal(sibling.ID, desc[0].ID)
	})

	s.Run("archived domains take no writes", func() {
		_, err := s.service.CreateDomain(s.asManager(), &models.CreateDomainRequest{StandardID: std.ID, ParentID: child.ID, Name: "A.5.2"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = s.service.LinkControl(s.asManager(), grandchild.ID, spare.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = s.service.AttachDomain(s.asManager(), sibling.ID, child.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = s.service.CreateControl(s.asManager(), &models.CreateControlRequest{StandardID: std.ID, DomainID: child.ID, Name: "Late"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("archive is audited once per domain", func() {
		_, err := s.service.ArchiveDomain(s.asManager(), child.ID)
		s.Require().NoError(err)
		s.Equal(1, s.countEvents("domain", child.ID.String(), audit.ActionDomainArchived))
		s.Equal(1, s.countEvents("domain", grandchild.ID.String(), audit.ActionDomainArchived))
	})
}

func (s *ServiceSuite) TestArchiveStandardBlocksNewRecords() {
	std := s.createStandard("ISO 27001")
	d := s.createDomain(std.ID, id.DomainID{}, "Annex A")

	out, err := s.service.ArchiveStandard(s.asManager(), std.ID)
	s.Require().NoError(err)
	s.False(out.Active)

	ctx := s.asManager()
	_, err = s.service.CreateDomain(ctx, &models.CreateDomainRequest{StandardID: std.ID, Name: "Clause 4"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, Name: "Context", Code: "4"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.CreateControl(ctx, &models.CreateControlRequest{StandardID: std.ID, Name: "Backups"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.CreateZone(ctx, &models.CreateZoneRequest{StandardID: std.ID, Name: "Perimeter", Code: "Z1"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	kept, err := s.service.GetDomain(ctx, d.ID)
	s.Require().NoError(err)
	s.True(kept.Active)

	_, err = s.service.ArchiveStandard(ctx, std.ID)
	s.Require().NoError(err)
	s.Equal(1, s.countEvents("standard", std.ID.String(), audit.ActionStandardArchived))
}

func (s *ServiceSuite) TestArchiveCategorySubtree() {
	ctx := s.asManager()
	parent, err := s.service.CreateCategory(ctx, &models.CreateCategoryRequest{Name: "Security"})
	s.Require().NoError(err)
	child, err := s.service.CreateCategory(ctx, &models.CreateCategoryRequest{Name: "Cloud", ParentID: parent.ID})
	s.Require().NoError(err)

	_, err = s.service.ArchiveCategory(ctx, parent.ID)
	s.Require().NoError(err)

	stored, err := s.db.Categories.FindByID(context.Background(), child.ID)
	s.Require().NoError(err)
	s.False(stored.Active)

	_, err = s.service.CreateCategory(ctx, &models.CreateCategoryRequest{Name: "Edge", ParentID: child.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.CreateStandard(ctx, &models.CreateStandardRequest{Name: "CSA CCM", Version: "4", CategoryID: child.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = s.service.ArchiveCategory(ctx, id.NewCategoryID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Requirement compliance score
// =============================================================================

func (s *ServiceSuite) TestRequirementComplianceScore() {
	std := s.createStandard("ISO 9001")
	ctx := s.asManager()
	four, err := s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, Name: "Context", Code: "4"})
	s.Require().NoError(err)
	_, err = s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, Name: "Leadership", Code: "5"})
	s.Require().NoError(err)

	stats, err := s.service.StandardStatistics(ctx, std.ID)
	s.Require().NoError(err)
	s.Equal(2, stats.RequirementCount)
	s.Zero(stats.RequirementComplianceScore)

	_, err = s.service.SetComplianceStatus(ctx, four.ID, models.ComplianceCompliant)
	s.Require().NoError(err)
	stats, err = s.service.StandardStatistics(ctx, std.ID)
	s.Require().NoError(err)
	s.Equal(1, stats.CompliantRequirementCount)
	s.InDelta(50.0, stats.RequirementComplianceScore, 1e-9)

	s.Run("new requirement widens the denominator", func() {
		six, err := s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, Name: "Planning", Code: "6"})
		s.Require().NoError(err)
		stats, err := s.service.StandardStatistics(ctx, std.ID)
		s.Require().NoError(err)
		s.InDelta(100.0/3, stats.RequirementComplianceScore, 1e-9)

		_, err = s.service.ArchiveRequirement(ctx, six.ID)
		s.Require().NoError(err)
		stats, err = s.service.StandardStatistics(ctx, std.ID)
		s.Require().NoError(err)
		s.Equal(2, stats.RequirementCount)
		s.InDelta(50.0, stats.RequirementComplianceScore, 1e-9)

		_, err = s.service.SetComplianceStatus(ctx, six.ID, models.ComplianceCompliant)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unchanged status is a no-op", func() {
		_, err := s.service.SetComplianceStatus(ctx, four.ID, models.ComplianceCompliant)
		s.Require().NoError(err)
		s.Equal(1, s.countEvents("requirement", four.ID.String(), audit.ActionComplianceStatusSet))
	})
}

func (s *ServiceSuite) TestArchiveRequirementSubtree() {
	std := s.createStandard("ISO 9001")
	ctx := s.asManager()
	four, err := s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, Name: "Context", Code: "4"})
	s.Require().NoError(err)
	one, err := s.service.CreateRequirement(ctx, &models.CreateRequirementRequest{StandardID: std.ID, ParentID: four.ID, Name: "Understanding", Code: "1"})
	s.Require().NoError(err)

	_, err = s.service.ArchiveRequirement(ctx, four.ID)
	s.Require().NoError(err)
	child, err := s.service.GetRequirement(ctx, one.ID)
	s.Require().NoError(err)
	s.False(child.Active)

	_, err = s.service.CreateAuditQuestion(ctx, &models.CreateAuditQuestionRequest{RequirementID: one.ID, Question: "Is the scope documented?"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	stats, err := s.service.StandardStatistics(ctx, std.ID)
	s.Require().NoError(err)
	s.Zero(stats.RequirementCount)
}
