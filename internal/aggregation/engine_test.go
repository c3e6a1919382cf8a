package aggregation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"complyhub/internal/costing"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
)

type EngineSuite struct {
	suite.Suite
	standard id.StandardID
	domainA  id.DomainID
	domainB  id.DomainID
	c1, c2   ControlFacts
	forest   *hierarchy.Forest[id.DomainID]
	links    Links
	controls map[id.ControlID]ControlFacts
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// SetupTest builds standard S with domain A (root) and B (child of A);
// A links implemented control c1, B links draft control c2.
func (s *EngineSuite) SetupTest() {
	s.standard = id.NewStandardID()
	s.domainA, s.domainB = id.NewDomainID(), id.NewDomainID()
	scope := s.standard.String()

	forest, err := hierarchy.Build([]hierarchy.Node[id.DomainID]{
		{ID: s.domainA, Scope: scope},
		{ID: s.domainB, Parent: s.domainA, Scope: scope},
	})
	s.Require().NoError(err)
	s.forest = forest

	s.c1 = ControlFacts{
		ID:                 id.NewControlID(),
		StandardID:         s.standard,
		Implemented:        true,
		ImplementationCost: 100,
		Figures:            costing.Compute(costing.Inputs{ImplementationCost: 100, MaintenanceMinutes: 10, Frequency: costing.FrequencyQuarterly, HourlyRate: 60}),
	}
	s.c2 = ControlFacts{
		ID:         id.NewControlID(),
		StandardID: s.standard,
		Figures:    costing.Compute(costing.Inputs{MaintenanceMinutes: 5, Frequency: costing.FrequencyMonthly, HourlyRate: 60}),
	}
	s.links = Links{
		s.domainA: {s.c1.ID},
		s.domainB: {s.c2.ID},
	}
	s.controls = map[id.ControlID]ControlFacts{s.c1.ID: s.c1, s.c2.ID: s.c2}
}

func (s *EngineSuite) TestDomainStatisticsIncludesDescendants() {
	a, err := DomainStatistics(s.forest, s.domainA, s.links, s.controls)
	s.Require().NoError(err)
	s.Equal(2, a.ControlCount)
	s.Equal(1, a.ImplementedCount)
	s.InDelta(50.0, a.ComplianceScore, 1e-9)
	s.Equal(1, a.ChildDomainCount)
	s.InDelta(40.0+60.0, a.MaintenanceCost, 1e-9)
	s.InDelta(100.0, a.ImplementationCost, 1e-9)

	b, err := DomainStatistics(s.forest, s.domainB, s.links, s.controls)
	s.Require().NoError(err)
	s.Equal(1, b.ControlCount)
	s.Equal(0, b.ImplementedCount)
	s.Zero(b.ComplianceScore)
	s.Zero(b.ChildDomainCount)
}

func (s *EngineSuite) TestSharedControlCountedOnce() {
	s.links[s.domainB] = append(s.links[s.domainB], s.c1.ID)
	a, err := DomainStatistics(s.forest, s.domainA, s.links, s.controls)
	s.Require().NoError(err)
	s.Equal(2, a.ControlCount)
}

func (s *EngineSuite) TestEmptyDomainScoresZero() {
	stats, err := DomainStatistics(s.forest, s.domainB, Links{}, s.controls)
	s.Require().NoError(err)
	s.Equal(Statistics{}, stats)
}

func (s *EngineSuite) TestArchivedChildDropsOut() {
	delete(s.links, s.domainB)
	a, err := DomainStatistics(s.forest, s.domainA, s.links, s.controls)
	s.Require().NoError(err)
	s.Equal(1, a.ControlCount)
	s.Equal(1, a.ImplementedCount)
	s.Zero(a.ChildDomainCount)

	b, err := DomainStatistics(s.forest, s.domainB, s.links, s.controls)
	s.Require().NoError(err)
	s.Equal(Statistics{}, b)
}

func (s *EngineSuite) TestRequirementCompliance() {
	reqs := []RequirementFacts{
		{ID: id.NewRequirementID(), StandardID: s.standard, Compliant: true},
		{ID: id.NewRequirementID(), StandardID: s.standard},
		{ID: id.NewRequirementID(), StandardID: s.standard},
		{ID: id.NewRequirementID(), StandardID: s.standard, Compliant: true},
		{ID: id.NewRequirementID(), StandardID: id.NewStandardID(), Compliant: true},
	}
	std := StandardStatistics(s.standard, []ControlFacts{s.c1, s.c2}).WithRequirements(s.standard, reqs)
	s.Equal(4, std.RequirementCount)
	s.Equal(2, std.CompliantRequirementCount)
	s.InDelta(50.0, std.RequirementComplianceScore, 1e-9)
	s.Equal(2, std.ControlCount, "control figures are untouched")

	empty := Statistics{}.WithRequirements(s.standard, nil)
	s.Zero(empty.RequirementComplianceScore)
}

func (s *EngineSuite) TestUnknownDomain() {
	_, err := DomainStatistics(s.forest, id.NewDomainID(), s.links, s.controls)
	s.Error(err)
}

func (s *EngineSuite) TestStandardStatisticsMatchesDomainRollup() {
	other := ControlFacts{ID: id.NewControlID(), StandardID: id.NewStandardID(), Implemented: true}
	std := StandardStatistics(s.standard, []ControlFacts{s.c1, s.c2, other})

	root, err := DomainStatistics(s.forest, s.domainA, s.links, s.controls)
	s.Require().NoError(err)
	root.ChildDomainCount = 0
	s.Equal(root, std)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var facts []ControlFacts
	for i := 0; i < 200; i++ {
		facts = append(facts, ControlFacts{
			ID:                 id.NewControlID(),
			Implemented:        rng.Intn(2) == 0,
			ImplementationCost: rng.Float64() * 1000,
			Figures: costing.Compute(costing.Inputs{
				ImplementationMinutes: rng.Float64() * 600,
				MaintenanceMinutes:    rng.Float64() * 90,
				AutomatedTestSeconds:  rng.Float64() * 300,
				Frequency:             costing.FrequencyMonthly,
				HourlyRate:            rng.Float64() * 150,
			}),
		})
	}
	want := Summarize(facts)
	for i := 0; i < 10; i++ {
		shuffled := append([]ControlFacts(nil), facts...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Summarize(shuffled))
	}
}

func TestComplianceScore(t *testing.T) {
	assert.Zero(t, ComplianceScore(0, 0))
	assert.InDelta(t, 100.0, ComplianceScore(3, 3), 1e-9)
	assert.InDelta(t, 25.0, ComplianceScore(1, 4), 1e-9)
}
