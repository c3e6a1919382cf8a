package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"

	"complyhub/internal/aggregation"
	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
)

const (
	tableStandards    = "catalog_standards"
	tableCategories   = "catalog_categories"
	tableDomains      = "catalog_domains"
	tableRequirements = "catalog_requirements"
	tableControls     = "catalog_controls"
	tableQuestions    = "catalog_audit_questions"
	tableTools        = "catalog_assessment_tools"
	tableZones        = "catalog_zones"
	tableCerts        = "catalog_certifications"
)

func positionColumns(p hierarchy.Position) []column {
	return []column{
		{"parent_left", p.Left},
		{"parent_right", p.Right},
		{"path_level", p.Level},
		{"parent_path", p.Path},
	}
}

func withColumns(base []column, more ...column) []column {
	return append(base, more...)
}

type StandardStore struct{ s *Store }

func (st *StandardStore) Create(ctx context.Context, std *models.Standard) error {
	cols := withColumns(positionColumns(std.Position), column{"code", std.Code}, column{"created_at", std.CreatedAt})
	return insertDoc(ctx, st.s, tableStandards, std.ID.String(), std, cols...)
}

func (st *StandardStore) Update(ctx context.Context, std *models.Standard) error {
	cols := withColumns(positionColumns(std.Position), column{"code", std.Code})
	return updateDoc(ctx, st.s, tableStandards, std.ID.String(), std, cols...)
}

func (st *StandardStore) FindByID(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	return findDoc[models.Standard](ctx, st.s, tableStandards, standardID.String(), false)
}

func (st *StandardStore) ListAll(ctx context.Context) ([]*models.Standard, error) {
	return listDocs[models.Standard](ctx, st.s, tableStandards, "")
}

func (st *StandardStore) UpdatePositions(ctx context.Context, positions map[id.StandardID]hierarchy.Position) error {
	return setPositions(ctx, st.s, tableStandards, positions)
}

func (st *StandardStore) UpdateStatistics(ctx context.Context, standardID id.StandardID, stats aggregation.Statistics) error {
	return setStatistics(ctx, st.s, tableStandards, standardID.String(), stats)
}

type CategoryStore struct{ s *Store }

func (st *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	cols := withColumns(positionColumns(c.Position), column{"created_at", c.CreatedAt})
	return insertDoc(ctx, st.s, tableCategories, c.ID.String(), c, cols...)
}

func (st *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	return updateDoc(ctx, st.s, tableCategories, c.ID.String(), c, positionColumns(c.Position)...)
}

func (st *CategoryStore) FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	return findDoc[models.Category](ctx, st.s, tableCategories, categoryID.String(), false)
}

func (st *CategoryStore) ListAll(ctx context.Context) ([]*models.Category, error) {
	return listDocs[models.Category](ctx, st.s, tableCategories, "")
}

func (st *CategoryStore) UpdatePositions(ctx context.Context, positions map[id.CategoryID]hierarchy.Position) error {
	return setPositions(ctx, st.s, tableCategories, positions)
}

type DomainStore struct{ s *Store }

func controlIDArray(ids []id.ControlID) any {
	out := make([]string, len(ids))
	for i, cid := range ids {
		out[i] = cid.String()
	}
	return pq.Array(out)
}

func (st *DomainStore) Create(ctx context.Context, d *models.Domain) error {
	cols := withColumns(positionColumns(d.Position),
		column{"standard_id", d.StandardID.String()},
		column{"control_ids", controlIDArray(d.ControlIDs)},
		column{"created_at", d.CreatedAt},
	)
	return insertDoc(ctx, st.s, tableDomains, d.ID.String(), d, cols...)
}

func (st *DomainStore) Update(ctx context.Context, d *models.Domain) error {
	cols := withColumns(positionColumns(d.Position), column{"control_ids", controlIDArray(d.ControlIDs)})
	return updateDoc(ctx, st.s, tableDomains, d.ID.String(), d, cols...)
}

func (st *DomainStore) FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	return findDoc[models.Domain](ctx, st.s, tableDomains, domainID.String(), false)
}

func (st *DomainStore) ListAll(ctx context.Context) ([]*models.Domain, error) {
	return listDocs[models.Domain](ctx, st.s, tableDomains, "")
}

func (st *DomainStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Domain, error) {
	return listDocs[models.Domain](ctx, st.s, tableDomains, "standard_id = $1", standardID.String())
}

func (st *DomainStore) UpdatePositions(ctx context.Context, positions map[id.DomainID]hierarchy.Position) error {
	return setPositions(ctx, st.s, tableDomains, positions)
}

func (st *DomainStore) UpdateStatistics(ctx context.Context, domainID id.DomainID, stats aggregation.Statistics) error {
	return setStatistics(ctx, st.s, tableDomains, domainID.String(), stats)
}

type RequirementStore struct{ s *Store }

func (st *RequirementStore) Create(ctx context.Context, r *models.Requirement) error {
	cols := withColumns(positionColumns(r.Position),
		column{"standard_id", r.StandardID.String()},
		column{"created_at", r.CreatedAt},
	)
	return insertDoc(ctx, st.s, tableRequirements, r.ID.String(), r, cols...)
}

func (st *RequirementStore) Update(ctx context.Context, r *models.Requirement) error {
	return updateDoc(ctx, st.s, tableRequirements, r.ID.String(), r, positionColumns(r.Position)...)
}

func (st *RequirementStore) FindByID(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error) {
	return findDoc[models.Requirement](ctx, st.s, tableRequirements, requirementID.String(), false)
}

func (st *RequirementStore) ListAll(ctx context.Context) ([]*models.Requirement, error) {
	return listDocs[models.Requirement](ctx, st.s, tableRequirements, "")
}

func (st *RequirementStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Requirement, error) {
	return listDocs[models.Requirement](ctx, st.s, tableRequirements, "standard_id = $1", standardID.String())
}

func (st *RequirementStore) UpdatePositions(ctx context.Context, positions map[id.RequirementID]hierarchy.Position) error {
	return setPositions(ctx, st.s, tableRequirements, positions)
}

type ControlStore struct{ s *Store }

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (st *ControlStore) columns(c *models.Control) []column {
	return []column{
		{"active", c.Active},
		{"next_test_date", nullTime(c.NextTestDate)},
	}
}

func (st *ControlStore) Create(ctx context.Context, c *models.Control) error {
	cols := withColumns(st.columns(c),
		column{"standard_id", c.StandardID.String()},
		column{"created_at", c.CreatedAt},
	)
	return insertDoc(ctx, st.s, tableControls, c.ID.String(), c, cols...)
}

func (st *ControlStore) Update(ctx context.Context, c *models.Control) error {
	return updateDoc(ctx, st.s, tableControls, c.ID.String(), c, st.columns(c)...)
}

func (st *ControlStore) FindByID(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return findDoc[models.Control](ctx, st.s, tableControls, controlID.String(), false)
}

func (st *ControlStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Control, error) {
	return listDocs[models.Control](ctx, st.s, tableControls, "standard_id = $1", standardID.String())
}

// ListDue narrows by the indexed columns and applies the full due check on the
// decoded record.
func (st *ControlStore) ListDue(ctx context.Context, day time.Time) ([]*models.Control, error) {
	candidates, err := listDocs[models.Control](ctx, st.s, tableControls, "active AND next_test_date <= $1", day)
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, c := range candidates {
		if c.IsDueForTest(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Execute locks the row for the rest of the transaction.
func (st *ControlStore) Execute(ctx context.Context, controlID id.ControlID, validate func(*models.Control) error, mutate func(*models.Control)) (*models.Control, error) {
	var out *models.Control
	err := st.s.RunInTx(ctx, func(ctx context.Context) error {
		c, err := findDoc[models.Control](ctx, st.s, tableControls, controlID.String(), true)
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		if err := st.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type QuestionStore struct{ s *Store }

func (st *QuestionStore) Create(ctx context.Context, q *models.AuditQuestion) error {
	return insertDoc(ctx, st.s, tableQuestions, q.ID.String(), q,
		column{"requirement_id", q.RequirementID.String()},
		column{"created_at", q.CreatedAt},
	)
}

func (st *QuestionStore) ListByRequirement(ctx context.Context, requirementID id.RequirementID) ([]*models.AuditQuestion, error) {
	return listDocs[models.AuditQuestion](ctx, st.s, tableQuestions, "requirement_id = $1", requirementID.String())
}

type ToolStore struct{ s *Store }

func (st *ToolStore) Create(ctx context.Context, t *models.AssessmentTool) error {
	return insertDoc(ctx, st.s, tableTools, t.ID.String(), t, column{"created_at", t.CreatedAt})
}

func (st *ToolStore) FindByID(ctx context.Context, toolID id.AssessmentToolID) (*models.AssessmentTool, error) {
	return findDoc[models.AssessmentTool](ctx, st.s, tableTools, toolID.String(), false)
}

type ZoneStore struct{ s *Store }

// Create fails with sentinel.ErrAlreadyUsed when the code is taken within the standard.
func (st *ZoneStore) Create(ctx context.Context, z *models.Zone) error {
	return insertDoc(ctx, st.s, tableZones, z.ID.String(), z,
		column{"standard_id", z.StandardID.String()},
		column{"code", z.Code},
		column{"created_at", z.CreatedAt},
	)
}

func (st *ZoneStore) Update(ctx context.Context, z *models.Zone) error {
	return updateDoc(ctx, st.s, tableZones, z.ID.String(), z, column{"code", z.Code})
}

func (st *ZoneStore) FindByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error) {
	return findDoc[models.Zone](ctx, st.s, tableZones, zoneID.String(), false)
}

func (st *ZoneStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Zone, error) {
	return listDocs[models.Zone](ctx, st.s, tableZones, "standard_id = $1", standardID.String())
}

type CertificationStore struct{ s *Store }

func (st *CertificationStore) Create(ctx context.Context, c *models.Certification) error {
	return insertDoc(ctx, st.s, tableCerts, c.ID.String(), c,
		column{"standard_id", c.StandardID.String()},
		column{"sequence", c.Sequence},
		column{"created_at", c.CreatedAt},
	)
}

func (st *CertificationStore) FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	return findDoc[models.Certification](ctx, st.s, tableCerts, certID.String(), false)
}

// ListByStandard returns the certifications of a standard by sequence, then name.
func (st *CertificationStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Certification, error) {
	out, err := listDocs[models.Certification](ctx, st.s, tableCerts, "standard_id = $1", standardID.String())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *models.Certification) int {
		if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
