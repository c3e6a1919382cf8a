package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"complyhub/internal/catalog/models"
	"complyhub/internal/costing"
	"complyhub/internal/hierarchy"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	"complyhub/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
	now time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.db = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newStandard(name string) *models.Standard {
	std, err := models.NewStandard(id.NewStandardID(), name, "", "1", "", s.now)
	s.Require().NoError(err)
	return std
}

func (s *StoreSuite) TestStandards() {
	s.Run("create and find", func() {
		std := s.newStandard("ISO 9001")
		s.Require().NoError(s.db.Standards.Create(s.ctx, std))

		found, err := s.db.Standards.FindByID(s.ctx, std.ID)
		s.Require().NoError(err)
		s.Equal(std.Code, found.Code)
	})

	s.Run("duplicate code", func() {
		err := s.db.Standards.Create(s.ctx, s.newStandard("ISO 9001"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown id", func() {
		_, err := s.db.Standards.FindByID(s.ctx, id.NewStandardID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestRecordsAreCloned() {
	std := s.newStandard("ISO 14001")
	s.Require().NoError(s.db.Standards.Create(s.ctx, std))
	d, err := models.NewDomain(id.NewDomainID(), std.ID, "Planning", "6", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Domains.Create(s.ctx, d))

	d.LinkControl(id.NewControlID(), s.now)
	found, err := s.db.Domains.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Empty(found.ControlIDs)

	found.Name = "changed"
	again, err := s.db.Domains.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal("Planning", again.Name)
}

func (s *StoreSuite) TestUpdatePositionsIsAllOrNothing() {
	std := s.newStandard("ISO 22301")
	s.Require().NoError(s.db.Standards.Create(s.ctx, std))

	err := s.db.Standards.UpdatePositions(s.ctx, map[id.StandardID]hierarchy.Position{
		std.ID:              {Left: 1, Right: 2, Level: 1},
		id.NewStandardID(): {Left: 3, Right: 4, Level: 1},
	})
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.db.Standards.FindByID(s.ctx, std.ID)
	s.Require().NoError(err)
	s.Zero(found.Position)
}

func (s *StoreSuite) TestZoneCodeUniquePerStandard() {
	a, b := id.NewStandardID(), id.NewStandardID()
	z1, _ := models.NewZone(id.NewZoneID(), a, "Perimeter", "Z1", s.now)
	z2, _ := models.NewZone(id.NewZoneID(), a, "Core", "Z1", s.now)
	z3, _ := models.NewZone(id.NewZoneID(), b, "Perimeter", "Z1", s.now)

	s.Require().NoError(s.db.Zones.Create(s.ctx, z1))
	s.ErrorIs(s.db.Zones.Create(s.ctx, z2), sentinel.ErrAlreadyUsed)
	s.NoError(s.db.Zones.Create(s.ctx, z3))
}

func (s *StoreSuite) TestExecute() {
	c, err := models.NewControl(id.NewControlID(), id.NewStandardID(), "Backups", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Controls.Create(s.ctx, c))

	s.Run("rejected validation leaves the record", func() {
		_, err := s.db.Controls.Execute(s.ctx, c.ID,
			func(*models.Control) error { return errors.New("no") },
			func(c *models.Control) { c.Name = "mutated" },
		)
		s.Error(err)
		found, _ := s.db.Controls.FindByID(s.ctx, c.ID)
		s.Equal("Backups", found.Name)
	})

	s.Run("mutation is persisted", func() {
		out, err := s.db.Controls.Execute(s.ctx, c.ID,
			func(*models.Control) error { return nil },
			func(c *models.Control) { c.Name = "Offsite backups" },
		)
		s.Require().NoError(err)
		s.Equal("Offsite backups", out.Name)
		found, _ := s.db.Controls.FindByID(s.ctx, c.ID)
		s.Equal("Offsite backups", found.Name)
	})
}

func (s *StoreSuite) TestListDue() {
	std := id.NewStandardID()
	due, _ := models.NewControl(id.NewControlID(), std, "Due", s.now)
	due.State = lifecycle.StateImplemented
	due.Frequency = costing.FrequencyMonthly
	due.LastTestDate = s.now.AddDate(0, 0, -31)
	due.Recompute()

	later := due.Clone()
	later.ID = id.NewControlID()
	later.LastTestDate = s.now.AddDate(0, 0, -5)
	later.Recompute()

	draft, _ := models.NewControl(id.NewControlID(), std, "Draft", s.now)
	draft.Frequency = costing.FrequencyMonthly
	draft.LastTestDate = s.now.AddDate(0, -6, 0)
	draft.Recompute()

	for _, c := range []*models.Control{due, later, draft} {
		s.Require().NoError(s.db.Controls.Create(s.ctx, c))
	}
	out, err := s.db.Controls.ListDue(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(due.ID, out[0].ID)
}

func (s *StoreSuite) TestRunInTxRollsBack() {
	std := s.newStandard("ISO 45001")
	err := s.db.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.db.Standards.Create(ctx, std))
		return errors.New("abort")
	})
	s.Error(err)
	_, err = s.db.Standards.FindByID(s.ctx, std.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.db.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.db.Standards.Create(ctx, std)
	}))
	_, err = s.db.Standards.FindByID(s.ctx, std.ID)
	s.NoError(err)
}

func (s *StoreSuite) TestRunInTxHidesUncommittedWrites() {
	std := s.newStandard("ISO 50001")
	s.Require().NoError(s.db.Standards.Create(s.ctx, std))
	original := std.Title

	seen := make(chan string, 1)
	err := s.db.RunInTx(s.ctx, func(ctx context.Context) error {
		changed := *std
		changed.Title = "uncommitted"
		s.Require().NoError(s.db.Standards.Update(ctx, &changed))

		go func() {
			found, err := s.db.Standards.FindByID(context.Background(), std.ID)
			if err != nil {
				seen <- err.Error()
				return
			}
			seen <- found.Title
		}()

		select {
		case title := <-seen:
			s.Failf("read finished inside the transaction", "saw title %q", title)
		case <-time.After(50 * time.Millisecond):
		}

		inside, err := s.db.Standards.FindByID(ctx, std.ID)
		s.Require().NoError(err)
		s.Equal("uncommitted", inside.Title)
		return errors.New("abort")
	})
	s.Error(err)

	select {
	case title := <-seen:
		s.Equal(original, title)
	case <-time.After(time.Second):
		s.Fail("reader never finished after rollback")
	}
}

func (s *StoreSuite) TestRunInTxJoinsRunningTransaction() {
	std := s.newStandard("ISO 37001")
	err := s.db.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.db.RunInTx(ctx, func(ctx context.Context) error {
			return s.db.Standards.Create(ctx, std)
		})
	})
	s.Require().NoError(err)
	_, err = s.db.Standards.FindByID(s.ctx, std.ID)
	s.NoError(err)
}

func (s *StoreSuite) TestCertificationsOrderedBySequence() {
	std := id.NewStandardID()
	mk := func(name string, seq int) *models.Certification {
		return models.NewCertification(id.NewCertificationID(), models.CreateCertificationRequest{
			StandardID: std, Name: name, Title: name, Sequence: seq, State: models.CertificationDraft,
		}, s.now)
	}
	late, early, other := mk("Audit logging", 20), mk("Password policy", 10), mk("Firewall", 10)
	for _, c := range []*models.Certification{late, early, other} {
		s.Require().NoError(s.db.Certs.Create(s.ctx, c))
	}
	s.Require().NoError(s.db.Certs.Create(s.ctx, models.NewCertification(id.NewCertificationID(),
		models.CreateCertificationRequest{StandardID: id.NewStandardID(), Name: "Elsewhere", Title: "x"}, s.now)))

	out, err := s.db.Certs.ListByStandard(s.ctx, std)
	s.Require().NoError(err)
	s.Require().Len(out, 3)
	s.Equal([]id.CertificationID{other.ID, early.ID, late.ID}, []id.CertificationID{out[0].ID, out[1].ID, out[2].ID})
}
