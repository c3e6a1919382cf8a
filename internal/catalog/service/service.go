package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"complyhub/internal/aggregation"
	"complyhub/internal/audit"
	catalogmetrics "complyhub/internal/catalog/metrics"
	"complyhub/internal/catalog/models"
	"complyhub/internal/hierarchy"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/platform/sentinel"
)

type StandardStore interface {
	Create(ctx context.Context, s *models.Standard) error
	Update(ctx context.Context, s *models.Standard) error
	FindByID(ctx context.Context, standardID id.StandardID) (*models.Standard, error)
	ListAll(ctx context.Context) ([]*models.Standard, error)
	UpdatePositions(ctx context.Context, positions map[id.StandardID]hierarchy.Position) error
	UpdateStatistics(ctx context.Context, standardID id.StandardID, stats aggregation.Statistics) error
}

type CategoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)
	ListAll(ctx context.Context) ([]*models.Category, error)
	UpdatePositions(ctx context.Context, positions map[id.CategoryID]hierarchy.Position) error
}

type DomainStore interface {
	Create(ctx context.Context, d *models.Domain) error
	Update(ctx context.Context, d *models.Domain) error
	FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error)
	ListAll(ctx context.Context) ([]*models.Domain, error)
	ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Domain, error)
	UpdatePositions(ctx context.Context, positions map[id.DomainID]hierarchy.Position) error
	UpdateStatistics(ctx context.Context, domainID id.DomainID, stats aggregation.Statistics) error
}

type RequirementStore interface {
	Create(ctx context.Context, r *models.Requirement) error
	Update(ctx context.Context, r *models.Requirement) error
	FindByID(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error)
	ListAll(ctx context.Context) ([]*models.Requirement, error)
	ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Requirement, error)
	UpdatePositions(ctx context.Context, positions map[id.RequirementID]hierarchy.Position) error
}

type ControlStore interface {
	Create(ctx context.Context, c *models.Control) error
	Update(ctx context.Context, c *models.Control) error
	FindByID(ctx context.Context, controlID id.ControlID) (*models.Control, error)
	ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Control, error)
	ListDue(ctx context.Context, day time.Time) ([]*models.Control, error)
	// Execute loads the control, runs validate and, when it passes, applies
	// mutate and persists the result. The record is locked for the duration.
	Execute(ctx context.Context, controlID id.ControlID, validate func(*models.Control) error, mutate func(*models.Control)) (*models.Control, error)
}

type AuditQuestionStore interface {
	Create(ctx context.Context, q *models.AuditQuestion) error
	ListByRequirement(ctx context.Context, requirementID id.RequirementID) ([]*models.AuditQuestion, error)
}

type AssessmentToolStore interface {
	Create(ctx context.Context, t *models.AssessmentTool) error
	FindByID(ctx context.Context, toolID id.AssessmentToolID) (*models.AssessmentTool, error)
}

type ZoneStore interface {
	// Create fails with sentinel.ErrAlreadyUsed when the code is taken within the standard.
	Create(ctx context.Context, z *models.Zone) error
	Update(ctx context.Context, z *models.Zone) error
	FindByID(ctx context.Context, zoneID id.ZoneID) (*models.Zone, error)
	ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Zone, error)
}

type CertificationStore interface {
	Create(ctx context.Context, c *models.Certification) error
	FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	ListByStandard(ctx context.Context, standardID id.StandardID) ([]*models.Certification, error)
}

// StoreTx provides a transactional boundary for catalog mutations.
// Implementations may wrap a database transaction or, in memory, a snapshot.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles the record stores the service writes through.
type Stores struct {
	Standards    StandardStore
	Categories   CategoryStore
	Domains      DomainStore
	Requirements RequirementStore
	Controls     ControlStore
	Questions    AuditQuestionStore
	Tools        AssessmentToolStore
	Zones        ZoneStore
	Certs        CertificationStore
	Tx           StoreTx
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ActorProvider resolves who is performing the current request.
type ActorProvider interface {
	CurrentActor(ctx context.Context) (lifecycle.Actor, error)
}

// StatisticsCache is a read-through cache for stored statistics.
//
// Readers take Generation before loading from the store and pass it to Set;
// Set must not store when Invalidate ran for the key in between.
type StatisticsCache interface {
	Get(ctx context.Context, key string) (aggregation.Statistics, bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, generation int64, stats aggregation.Statistics) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

// Service is the only writer of hierarchy positions and derived statistics.
type Service struct {
	standards    StandardStore
	categories   CategoryStore
	domains      DomainStore
	requirements RequirementStore
	controls     ControlStore
	questions    AuditQuestionStore
	tools        AssessmentToolStore
	zones        ZoneStore
	certs        CertificationStore
	tx           StoreTx

	actors  ActorProvider
	cache   StatisticsCache
	audit   AuditPublisher
	logger  *slog.Logger
	metrics *catalogmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *catalogmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithActorProvider(p ActorProvider) Option {
	return func(s *Service) {
		s.actors = p
	}
}

func WithStatisticsCache(c StatisticsCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. Stores.Tx is required; everything else is optional.
func New(stores Stores, opts ...Option) (*Service, error) {
	if stores.Standards == nil || stores.Categories == nil || stores.Domains == nil ||
		stores.Requirements == nil || stores.Controls == nil || stores.Questions == nil ||
		stores.Tools == nil || stores.Zones == nil || stores.Certs == nil {
		return nil, errors.New("all catalog stores are required")
	}
	if stores.Tx == nil {
		return nil, errors.New("store transaction runner is required")
	}
	s := &Service{
		standards:    stores.Standards,
		categories:   stores.Categories,
		domains:      stores.Domains,
		requirements: stores.Requirements,
		controls:     stores.Controls,
		questions:    stores.Questions,
		tools:        stores.Tools,
		zones:        stores.Zones,
		certs:        stores.Certs,
		tx:           stores.Tx,
		actors:       ContextActorProvider{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("complyhub/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// unitOfWork collects what a transaction touched so caches are invalidated
// only after commit.
type unitOfWork struct {
	standards []id.StandardID
	domains   []id.DomainID
}

func (u *unitOfWork) cacheKeys() []string {
	keys := make([]string, 0, len(u.standards)+len(u.domains))
	for _, sid := range u.standards {
		keys = append(keys, StandardStatsKey(sid))
	}
	for _, did := range u.domains {
		keys = append(keys, DomainStatsKey(did))
	}
	return keys
}

func StandardStatsKey(standardID id.StandardID) string {
	return "stats:standard:" + standardID.String()
}

func DomainStatsKey(domainID id.DomainID) string {
	return "stats:domain:" + domainID.String()
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context, uow *unitOfWork) error) error {
	uow := &unitOfWork{}
	if err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, uow)
	}); err != nil {
		return err
	}
	if s.cache != nil {
		if keys := uow.cacheKeys(); len(keys) > 0 {
			if err := s.cache.Invalidate(ctx, keys...); err != nil {
				s.logger.WarnContext(ctx, "statistics cache invalidation failed", "keys", len(keys), "error", err)
			}
		}
	}
	return nil
}

func (s *Service) currentActor(ctx context.Context) (lifecycle.Actor, error) {
	actor, err := s.actors.CurrentActor(ctx)
	if err != nil {
		return lifecycle.Actor{}, err
	}
	if actor.ID.IsNil() {
		return lifecycle.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "an authenticated actor is required")
	}
	return actor, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Emit(ctx, event)
}

// wrapStoreErr maps store sentinels to domain errors for one entity kind.
func wrapStoreErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, entity+" already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
}
