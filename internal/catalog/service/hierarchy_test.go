package service

import (
	"context"

	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

func (s *ServiceSuite) positions(ids ...id.DomainID) map[id.DomainID]hierarchy.Position {
	out := make(map[id.DomainID]hierarchy.Position, len(ids))
	for _, did := range ids {
		d, err := s.db.Domains.FindByID(context.Background(), did)
		s.Require().NoError(err)
		out[did] = d.Position
	}
	return out
}

func (s *ServiceSuite) TestStoredCycleIsContainedToItsStandard() {
	broken := s.createStandard("ISO 27001")
	healthy := s.createStandard("SOC 2")
	a := s.createDomain(broken.ID, id.DomainID{}, "A")
	b := s.createDomain(broken.ID, id.DomainID{}, "B")
	cc := s.createDomain(healthy.ID, id.DomainID{}, "CC6")
	cc1 := s.createDomain(healthy.ID, cc.ID, "CC6.1")

	// Write a parent cycle straight into the store, bypassing the service checks.
	ctx := context.Background()
	storedA, _ := s.db.Domains.FindByID(ctx, a.ID)
	storedB, _ := s.db.Domains.FindByID(ctx, b.ID)
	storedA.ParentID = b.ID
	storedB.ParentID = a.ID
	s.Require().NoError(s.db.Domains.Update(ctx, storedA))
	s.Require().NoError(s.db.Domains.Update(ctx, storedB))
	before := s.positions(a.ID, b.ID, cc.ID, cc1.ID)

	s.Run("rebuild reports the cycle and writes nothing", func() {
		_, err := s.service.RebuildHierarchy(s.asManager(), KindDomain)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
		s.Equal(before, s.positions(a.ID, b.ID, cc.ID, cc1.ID))
	})

	s.Run("writes in the broken standard fail", func() {
		_, err := s.service.CreateControl(s.asManager(), &models.CreateControlRequest{StandardID: broken.ID, DomainID: a.ID, Name: "Backups"})
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
	})

	s.Run("writes in another standard still succeed", func() {
		c := s.createControl(healthy.ID, cc1.ID, "Logical access")
		stats, err := s.service.DomainStatistics(s.asManager(), cc.ID)
		s.Require().NoError(err)
		s.Equal(1, stats.ControlCount)

		extra := s.createDomain(healthy.ID, cc.ID, "CC6.2")
		_, err = s.service.LinkControl(s.asManager(), extra.ID, c.ID)
		s.Require().NoError(err)

		desc, err := s.service.DescendantDomains(s.asManager(), cc.ID)
		s.Require().NoError(err)
		s.Len(desc, 2)
	})
}

func (s *ServiceSuite) TestPositionsAreNumberedPerStandard() {
	iso := s.createStandard("ISO 27001")
	soc := s.createStandard("SOC 2")
	isoRoot := s.createDomain(iso.ID, id.DomainID{}, "Annex A")
	socRoot := s.createDomain(soc.ID, id.DomainID{}, "CC6")

	s.Equal(1, isoRoot.Position.Left)
	s.Equal(1, socRoot.Position.Left)

	result, err := s.service.RebuildHierarchy(s.asManager(), KindDomain)
	s.Require().NoError(err)
	s.Zero(result.Changed)
}
