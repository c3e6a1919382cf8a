// Package memory keeps the catalog in process. Records are cloned on the way in
// and out so callers never share state with the store.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"complyhub/internal/aggregation"
	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	"complyhub/pkg/platform/sentinel"
)

// table is one keyed collection of records.
type table[K hierarchy.Key, V any] struct {
	rows    map[K]*V
	clone   func(*V) *V
	created func(*V) time.Time
}

func newTable[K hierarchy.Key, V any](clone func(*V) *V, created func(*V) time.Time) *table[K, V] {
	if clone == nil {
		clone = func(v *V) *V {
			c := *v
			return &c
		}
	}
	return &table[K, V]{rows: make(map[K]*V), clone: clone, created: created}
}

func (t *table[K, V]) get(k K) (*V, error) {
	v, ok := t.rows[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.clone(v), nil
}

func (t *table[K, V]) insert(k K, v *V) error {
	if _, exists := t.rows[k]; exists {
		return sentinel.ErrAlreadyUsed
	}
	t.rows[k] = t.clone(v)
	return nil
}

func (t *table[K, V]) replace(k K, v *V) error {
	if _, ok := t.rows[k]; !ok {
		return sentinel.ErrNotFound
	}
	t.rows[k] = t.clone(v)
	return nil
}

// list returns clones of the rows accepted by keep, oldest first.
func (t *table[K, V]) list(keep func(*V) bool) []*V {
	type entry struct {
		key K
		row *V
	}
	entries := make([]entry, 0, len(t.rows))
	for k, v := range t.rows {
		if keep == nil || keep(v) {
			entries = append(entries, entry{k, v})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := t.created(a.row).Compare(t.created(b.row)); c != 0 {
			return c
		}
		return cmp.Compare(a.key.String(), b.key.String())
	})
	out := make([]*V, 0, len(entries))
	for _, e := range entries {
		out = append(out, t.clone(e.row))
	}
	return out
}

func (t *table[K, V]) copyRows() map[K]*V {
	out := make(map[K]*V, len(t.rows))
	for k, v := range t.rows {
		out[k] = t.clone(v)
	}
	return out
}

// DB holds every catalog table behind one lock. The exported sub-stores satisfy
// the service store interfaces.
//
// txMu isolates transactions: RunInTx holds it exclusively for the whole of fn,
// and every access from outside a transaction holds it shared, so uncommitted
// rows are never visible to other callers.
type DB struct {
	mu   sync.RWMutex
	txMu sync.RWMutex

	standards    *table[id.StandardID, models.Standard]
	categories   *table[id.CategoryID, models.Category]
	domains      *table[id.DomainID, models.Domain]
	requirements *table[id.RequirementID, models.Requirement]
	controls     *table[id.ControlID, models.Control]
	questions    *table[id.AuditQuestionID, models.AuditQuestion]
	tools        *table[id.AssessmentToolID, models.AssessmentTool]
	zones        *table[id.ZoneID, models.Zone]
	certs        *table[id.CertificationID, models.Certification]

	Standards    *StandardStore
	Categories   *CategoryStore
	Domains      *DomainStore
	Requirements *RequirementStore
	Controls     *ControlStore
	Questions    *QuestionStore
	Tools        *ToolStore
	Zones        *ZoneStore
	Certs        *CertificationStore
}

func New() *DB {
	db := &DB{
		standards:    newTable[id.StandardID](nil, func(s *models.Standard) time.Time { return s.CreatedAt }),
		categories:   newTable[id.CategoryID](nil, func(c *models.Category) time.Time { return c.CreatedAt }),
		domains:      newTable[id.DomainID](cloneDomain, func(d *models.Domain) time.Time { return d.CreatedAt }),
		requirements: newTable[id.RequirementID](nil, func(r *models.Requirement) time.Time { return r.CreatedAt }),
		controls:     newTable[id.ControlID]((*models.Control).Clone, func(c *models.Control) time.Time { return c.CreatedAt }),
		questions:    newTable[id.AuditQuestionID](nil, func(q *models.AuditQuestion) time.Time { return q.CreatedAt }),
		tools:        newTable[id.AssessmentToolID](nil, func(t *models.AssessmentTool) time.Time { return t.CreatedAt }),
		zones:        newTable[id.ZoneID](nil, func(z *models.Zone) time.Time { return z.CreatedAt }),
		certs:        newTable[id.CertificationID](nil, func(c *models.Certification) time.Time { return c.CreatedAt }),
	}
	db.Standards = &StandardStore{db: db}
	db.Categories = &CategoryStore{db: db}
	db.Domains = &DomainStore{db: db}
	db.Requirements = &RequirementStore{db: db}
	db.Controls = &ControlStore{db: db}
	db.Questions = &QuestionStore{db: db}
	db.Tools = &ToolStore{db: db}
	db.Zones = &ZoneStore{db: db}
	db.Certs = &CertificationStore{db: db}
	return db
}

func cloneDomain(d *models.Domain) *models.Domain {
	out := *d
	out.ControlIDs = slices.Clone(d.ControlIDs)
	return &out
}

type txKey struct{}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// RunInTx serializes transactions and restores every table when fn fails.
// A call made with the context of a running transaction joins it.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if db.inTx(ctx) {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	restore := db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		restore()
		return err
	}
	return nil
}

// view runs fn under the read lock. Outside a transaction it also waits for
// any running transaction to finish.
func view[T any](ctx context.Context, db *DB, fn func() (T, error)) (T, error) {
	if !db.inTx(ctx) {
		db.txMu.RLock()
		defer db.txMu.RUnlock()
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn()
}

// update runs fn under the write lock. Outside a transaction the write is
// applied once no transaction is running.
func (db *DB) update(ctx context.Context, fn func() error) error {
	if !db.inTx(ctx) {
		db.txMu.RLock()
		defer db.txMu.RUnlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

func (db *DB) snapshot() func() {
	db.mu.RLock()
	standards := db.standards.copyRows()
	categories := db.categories.copyRows()
	domains := db.domains.copyRows()
	requirements := db.requirements.copyRows()
	controls := db.controls.copyRows()
	questions := db.questions.copyRows()
	tools := db.tools.copyRows()
	zones := db.zones.copyRows()
	certs := db.certs.copyRows()
	db.mu.RUnlock()

	return func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.standards.rows = standards
		db.categories.rows = categories
		db.domains.rows = domains
		db.requirements.rows = requirements
		db.controls.rows = controls
		db.questions.rows = questions
		db.tools.rows = tools
		db.zones.rows = zones
		db.certs.rows = certs
	}
}

type StandardStore struct{ db *DB }

func (s *StandardStore) Create(ctx context.Context, std *models.Standard) error {
	return s.db.update(ctx, func() error {
		for _, other := range s.db.standards.rows {
			if other.Code == std.Code {
				return sentinel.ErrAlreadyUsed
			}
		}
		return s.db.standards.insert(std.ID, std)
	})
}

func (s *StandardStore) Update(ctx context.Context, std *models.Standard) error {
	return s.db.update(ctx, func() error {
		return s.db.standards.replace(std.ID, std)
	})
}

func (s *StandardStore) FindByID(ctx context.Context, standardID id.StandardID) (*models.Standard, error) {
	return view(ctx, s.db, func() (*models.Standard, error) {
		return s.db.standards.get(standardID)
	})
}

func (s *StandardStore) ListAll(ctx context.Context) ([]*models.Standard, error) {
	return view(ctx, s.db, func() ([]*models.Standard, error) {
		return s.db.standards.list(nil), nil
	})
}

func (s *StandardStore) UpdatePositions(ctx context.Context, positions map[id.StandardID]hierarchy.Position) error {
	return s.db.update(ctx, func() error {
		return setPositions(s.db.standards, positions, func(std *models.Standard, p hierarchy.Position) { std.Position = p })
	})
}

func (s *StandardStore) UpdateStatistics(ctx context.Context, standardID id.StandardID, stats aggregation.Statistics) error {
	return s.db.update(ctx, func() error {
		std, ok := s.db.standards.rows[standardID]
		if !ok {
			return sentinel.ErrNotFound
		}
		std.Statistics = stats
		return nil
	})
}

type CategoryStore struct{ db *DB }

func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	return s.db.update(ctx, func() error {
		return s.db.categories.insert(c.ID, c)
	})
}

func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	return s.db.update(ctx, func() error {
		return s.db.categories.replace(c.ID, c)
	})
}

func (s *CategoryStore) FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	return view(ctx, s.db, func() (*models.Category, error) {
		return s.db.categories.get(categoryID)
	})
}

func (s *CategoryStore) ListAll(ctx context.Context) ([]*models.Category, error) {
	return view(ctx, s.db, func() ([]*models.Category, error) {
		return s.db.categories.list(nil), nil
	})
}

func (s *CategoryStore) UpdatePositions(ctx context.Context, positions map[id.CategoryID]hierarchy.Position) error {
	return s.db.update(ctx, func() error {
		return setPositions(s.db.categories, positions, func(c *models.Category, p hierarchy.Position) { c.Position = p })
	})
}

type DomainStore struct{ db *DB }

func (s *DomainStore) Create(ctx context.Context, d *models.Domain) error {
	return s.db.update(ctx, func() error {
		return s.db.domains.insert(d.ID, d)
	})
}

func (s *DomainStore) Update(ctx context.Context, d *models.Domain) error {
	return s.db.update(ctx, func() error {
		return s.db.domains.replace(d.ID, d)
	})
}

func (s *DomainStore) FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	return view(ctx, s.db, func() (*models.Domain, error) {
		return s.db.domains.get(domainID)
	})
}

func (s *DomainStore) ListAll(ctx context.Context) ([]*models.Domain, error) {
	return view(ctx, s.db, func() ([]*models.Domain, error) {
		return s.db.domains.list(nil), nil
	})
}

func (s *DomainStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Domain, error) {
	return view(ctx, s.db, func() ([]*models.Domain, error) {
		return s.db.domains.list(func(d *models.Domain) bool { return d.StandardID == standardID }), nil
	})
}

func (s *DomainStore) UpdatePositions(ctx context.Context, positions map[id.DomainID]hierarchy.Position) error {
	return s.db.update(ctx, func() error {
		return setPositions(s.db.domains, positions, func(d *models.Domain, p hierarchy.Position) { d.Position = p })
	})
}

func (s *DomainStore) UpdateStatistics(ctx context.Context, domainID id.DomainID, stats aggregation.Statistics) error {
	return s.db.update(ctx, func() error {
		d, ok := s.db.domains.rows[domainID]
		if !ok {
			return sentinel.ErrNotFound
		}
		d.Statistics = stats
		return nil
	})
}

type RequirementStore struct{ db *DB }

func (s *RequirementStore) Create(ctx context.Context, r *models.Requirement) error {
	return s.db.update(ctx, func() error {
		return s.db.requirements.insert(r.ID, r)
	})
}

func (s *RequirementStore) Update(ctx context.Context, r *models.Requirement) error {
	return s.db.update(ctx, func() error {
		return s.db.requirements.replace(r.ID, r)
	})
}

func (s *RequirementStore) FindByID(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error) {
	return view(ctx, s.db, func() (*models.Requirement, error) {
		return s.db.requirements.get(requirementID)
	})
}

func (s *RequirementStore) ListAll(ctx context.Context) ([]*models.Requirement, error) {
	return view(ctx, s.db, func() ([]*models.Requirement, error) {
		return s.db.requirements.list(nil), nil
	})
}

func (s *RequirementStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Requirement, error) {
	return view(ctx, s.db, func() ([]*models.Requirement, error) {
		return s.db.requirements.list(func(r *models.Requirement) bool { return r.StandardID == standardID }), nil
	})
}

func (s *RequirementStore) UpdatePositions(ctx context.Context, positions map[id.RequirementID]hierarchy.Position) error {
	return s.db.update(ctx, func() error {
		return setPositions(s.db.requirements, positions, func(r *models.Requirement, p hierarchy.Position) { r.Position = p })
	})
}

type ControlStore struct{ db *DB }

func (s *ControlStore) Create(ctx context.Context, c *models.Control) error {
	return s.db.update(ctx, func() error {
		return s.db.controls.insert(c.ID, c)
	})
}

func (s *ControlStore) Update(ctx context.Context, c *models.Control) error {
	return s.db.update(ctx, func() error {
		return s.db.controls.replace(c.ID, c)
	})
}

func (s *ControlStore) FindByID(ctx context.Context, controlID id.ControlID) (*models.Control, error) {
	return view(ctx, s.db, func() (*models.Control, error) {
		return s.db.controls.get(controlID)
	})
}

func (s *ControlStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Control, error) {
	return view(ctx, s.db, func() ([]*models.Control, error) {
		return s.db.controls.list(func(c *models.Control) bool { return c.StandardID == standardID }), nil
	})
}

// ListDue returns active implemented controls with a next test date on or before day.
func (s *ControlStore) ListDue(ctx context.Context, day time.Time) ([]*models.Control, error) {
	return view(ctx, s.db, func() ([]*models.Control, error) {
		return s.db.controls.list(func(c *models.Control) bool { return c.IsDueForTest(day) }), nil
	})
}

func (s *ControlStore) Execute(ctx context.Context, controlID id.ControlID, validate func(*models.Control) error, mutate func(*models.Control)) (*models.Control, error) {
	var out *models.Control
	err := s.db.update(ctx, func() error {
		c, err := s.db.controls.get(controlID)
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		s.db.controls.rows[controlID] = c.Clone()
		out = c
		return nil
	})
	return out, err
}

type QuestionStore struct{ db *DB }

func (s *QuestionStore) Create(ctx context.Context, q *models.AuditQuestion) error {
	return s.db.update(ctx, func() error {
		return s.db.questions.insert(q.ID, q)
	})
}

func (s *QuestionStore) ListByRequirement(ctx context.Context, requirementID id.RequirementID) ([]*models.AuditQuestion, error) {
	return view(ctx, s.db, func() ([]*models.AuditQuestion, error) {
		return s.db.questions.list(func(q *models.AuditQuestion) bool { return q.RequirementID == requirementID }), nil
	})
}

type ToolStore struct{ db *DB }

func (s *ToolStore) Create(ctx context.Context, t *models.AssessmentTool) error {
	return s.db.update(ctx, func() error {
		return s.db.tools.insert(t.ID, t)
	})
}

func (s *ToolStore) FindByID(ctx context.Context, toolID id.AssessmentToolID) (*models.AssessmentTool, error) {
	return view(ctx, s.db, func() (*models.AssessmentTool, error) {
		return s.db.tools.get(toolID)
	})
}

type ZoneStore struct{ db *DB }

// Create rejects a code already used by another zone of the same standard.
func (s *ZoneStore) Create(ctx context.Context, z *models.Zone) error {
	return s.db.update(ctx, func() error {
		for _, other := range s.db.zones.rows {
			if other.StandardID == z.StandardID && other.Code == z.Code {
				return sentinel.ErrAlreadyUsed
			}
		}
		return s.db.zones.insert(z.ID, z)
	})
}

func (s *ZoneStore) Update(ctx context.Context, z *models.Zone) error {
	return s.db.update(ctx, func() error {
		return s.db.zones.replace(z.ID, z)
	})
}

func (s *ZoneStore) FindByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error) {
	return view(ctx, s.db, func() (*models.Zone, error) {
		return s.db.zones.get(zoneID)
	})
}

func (s *ZoneStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Zone, error) {
	return view(ctx, s.db, func() ([]*models.Zone, error) {
		return s.db.zones.list(func(z *models.Zone) bool { return z.StandardID == standardID }), nil
	})
}

type CertificationStore struct{ db *DB }

func (s *CertificationStore) Create(ctx context.Context, c *models.Certification) error {
	return s.db.update(ctx, func() error {
		return s.db.certs.insert(c.ID, c)
	})
}

func (s *CertificationStore) FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	return view(ctx, s.db, func() (*models.Certification, error) {
		return s.db.certs.get(certID)
	})
}

// ListByStandard orders by sequence, then name.
func (s *CertificationStore) ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Certification, error) {
	return view(ctx, s.db, func() ([]*models.Certification, error) {
		out := s.db.certs.list(func(c *models.Certification) bool { return c.StandardID == standardID })
		slices.SortStableFunc(out, func(a, b *models.Certification) int {
			if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
		return out, nil
	})
}

// setPositions applies every position or none: unknown IDs fail before any write.
func setPositions[K hierarchy.Key, V any](t *table[K, V], positions map[K]hierarchy.Position, set func(*V, hierarchy.Position)) error {
	for k := range positions {
		if _, ok := t.rows[k]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for k, p := range positions {
		set(t.rows[k], p)
	}
	return nil
}
