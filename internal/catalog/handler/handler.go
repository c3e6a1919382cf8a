// Package handler exposes the catalog service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"complyhub/internal/aggregation"
	"complyhub/internal/catalog/models"
	"complyhub/internal/catalog/service"
	"complyhub/internal/costing"
	"complyhub/internal/lifecycle"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/platform/httputil"
	"complyhub/pkg/requestcontext"
)

// Service defines the catalog operations the handler calls.
type Service interface {
	CreateStandard(ctx context.Context, req *models.CreateStandardRequest) (*models.Standard, error)
	GetStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error)
	ListStandards(ctx context.Context) ([]*models.Standard, error)
	ActivateStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error)
	SupersedeStandard(ctx context.Context, standardID, successorID id.StandardID) (*models.Standard, error)
	AttachStandard(ctx context.Context, standardID, parentID id.StandardID) (*models.Standard, error)
	StandardStatistics(ctx context.Context, standardID id.StandardID) (aggregation.Statistics, error)
	ArchiveStandard(ctx context.Context, standardID id.StandardID) (*models.Standard, error)

	CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	AttachCategory(ctx context.Context, categoryID, parentID id.CategoryID) (*models.Category, error)
	ArchiveCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)

	CreateDomain(ctx context.Context, req *models.CreateDomainRequest) (*models.Domain, error)
	GetDomain(ctx context.Context, domainID id.DomainID) (*models.Domain, error)
	AttachDomain(ctx context.Context, domainID, parentID id.DomainID) (*models.Domain, error)
	DescendantDomains(ctx context.Context, domainID id.DomainID) ([]*models.Domain, error)
	DomainStatistics(ctx context.Context, domainID id.DomainID) (aggregation.Statistics, error)
	TransitionDomain(ctx context.Context, domainID id.DomainID, to lifecycle.State) (*models.Domain, error)
	AssignDomainZone(ctx context.Context, domainID id.DomainID, zoneID id.ZoneID) (*models.Domain, error)
	LinkControl(ctx context.Context, domainID id.DomainID, controlID id.ControlID) (*models.Domain, error)
	UnlinkControl(ctx context.Context, domainID id.DomainID, controlID id.ControlID) (*models.Domain, error)
	ArchiveDomain(ctx context.Context, domainID id.DomainID) (*models.Domain, error)

	CreateRequirement(ctx context.Context, req *models.CreateRequirementRequest) (*models.Requirement, error)
	GetRequirement(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error)
	AttachRequirement(ctx context.Context, requirementID, parentID id.RequirementID) (*models.Requirement, error)
	DescendantRequirements(ctx context.Context, requirementID id.RequirementID) ([]*models.Requirement, error)
	SetComplianceStatus(ctx context.Context, requirementID id.RequirementID, status models.ComplianceStatus) (*models.Requirement, error)
	CreateAuditQuestion(ctx context.Context, req *models.CreateAuditQuestionRequest) (*models.AuditQuestion, error)
	ListAuditQuestions(ctx context.Context, requirementID id.RequirementID) ([]*models.AuditQuestion, error)
	ArchiveRequirement(ctx context.Context, requirementID id.RequirementID) (*models.Requirement, error)

	CreateCertification(ctx context.Context, req *models.CreateCertificationRequest) (*models.Certification, error)
	GetCertification(ctx context.Context, certID id.CertificationID) (*models.Certification, error)
	ListCertifications(ctx context.Context, standardID id.StandardID) ([]*models.Certification, error)

	CreateZone(ctx context.Context, req *models.CreateZoneRequest) (*models.Zone, error)
	ListZones(ctx context.Context, standardID id.StandardID) ([]*models.Zone, error)
	CreateAssessmentTool(ctx context.Context, req *models.CreateAssessmentToolRequest) (*models.AssessmentTool, error)

	CreateControl(ctx context.Context, req *models.CreateControlRequest) (*models.Control, error)
	GetControl(ctx context.Context, controlID id.ControlID) (*models.Control, error)
	ListControls(ctx context.Context, standardID id.StandardID) ([]*models.Control, error)
	UpdateControl(ctx context.Context, controlID id.ControlID, patch models.ControlPatch) (*models.Control, error)
	Transition(ctx context.Context, controlID id.ControlID, to lifecycle.State) (*models.Control, error)
	RecordTest(ctx context.Context, controlID id.ControlID, testedAt time.Time, result costing.CheckResult) (*models.Control, error)
	DueForTesting(ctx context.Context, day time.Time) ([]*models.Control, error)

	RebuildHierarchy(ctx context.Context, kind service.HierarchyKind) (*service.RebuildResult, error)
}

// Handler wires catalog endpoints to the catalog service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a catalog handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the catalog endpoints. Callers put authentication in front.
func (h *Handler) Register(r chi.Router) {
	r.Route("/standards", func(r chi.Router) {
		r.Post("/", h.HandleCreateStandard)
		r.Get("/", h.HandleListStandards)
		r.Get("/{id}", h.HandleGetStandard)
		r.Get("/{id}/statistics", h.HandleStandardStatistics)
		r.Get("/{id}/zones", h.HandleListZones)
		r.Get("/{id}/controls", h.HandleListControls)
		r.Post("/{id}/activate", h.HandleActivateStandard)
		r.Post("/{id}/supersede", h.HandleSupersedeStandard)
		r.Put("/{id}/parent", h.HandleAttachStandard)
		r.Post("/{id}/archive", h.HandleArchiveStandard)
		r.Get("/{id}/certifications", h.HandleListCertifications)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.HandleCreateCategory)
		r.Put("/{id}/parent", h.HandleAttachCategory)
		r.Post("/{id}/archive", h.HandleArchiveCategory)
	})
	r.Route("/domains", func(r chi.Router) {
		r.Post("/", h.HandleCreateDomain)
		r.Get("/{id}", h.HandleGetDomain)
		r.Put("/{id}/parent", h.HandleAttachDomain)
		r.Get("/{id}/descendants", h.HandleDomainDescendants)
		r.Get("/{id}/statistics", h.HandleDomainStatistics)
		r.Post("/{id}/transitions", h.HandleTransitionDomain)
		r.Put("/{id}/zone", h.HandleAssignZone)
		r.Post("/{id}/controls/{controlID}", h.HandleLinkControl)
		r.Delete("/{id}/controls/{controlID}", h.HandleUnlinkControl)
		r.Post("/{id}/archive", h.HandleArchiveDomain)
	})
	r.Route("/requirements", func(r chi.Router) {
		r.Post("/", h.HandleCreateRequirement)
		r.Get("/{id}", h.HandleGetRequirement)
		r.Put("/{id}/parent", h.HandleAttachRequirement)
		r.Get("/{id}/descendants", h.HandleRequirementDescendants)
		r.Put("/{id}/compliance", h.HandleSetComplianceStatus)
		r.Get("/{id}/questions", h.HandleListQuestions)
		r.Post("/{id}/archive", h.HandleArchiveRequirement)
	})
	r.Post("/questions", h.HandleCreateQuestion)
	r.Post("/zones", h.HandleCreateZone)
	r.Post("/tools", h.HandleCreateTool)
	r.Route("/certifications", func(r chi.Router) {
		r.Post("/", h.HandleCreateCertification)
		r.Get("/{id}", h.HandleGetCertification)
	})
	r.Route("/controls", func(r chi.Router) {
		r.Post("/", h.HandleCreateControl)
		r.Get("/due", h.HandleDueControls)
		r.Get("/{id}", h.HandleGetControl)
		r.Patch("/{id}", h.HandleUpdateControl)
		r.Post("/{id}/transitions", h.HandleTransitionControl)
		r.Post("/{id}/tests", h.HandleRecordTest)
	})
}

// RegisterAdmin mounts maintenance endpoints. Callers guard them with the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/hierarchies/{kind}/rebuild", h.HandleRebuild)
}

// pathID parses the chi URL parameter name with parse.
func pathID[T any](w http.ResponseWriter, r *http.Request, name string, parse func(string) (T, error)) (T, bool) {
	v, err := parse(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, err)
		var zero T
		return zero, false
	}
	return v, true
}

// decode reads the body into a new T and runs its Validate when it has one.
func decode[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	req := new(T)
	if err := httputil.DecodeJSON(r, req); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	if v, ok := any(req).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			httputil.WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}

// respond writes v or the service error, logging failures that are not the caller's fault.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, status int, v any, err error) {
	if err != nil {
		ctx := r.Context()
		if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, op+" failed",
				"request_id", requestcontext.RequestID(ctx),
				"actor_id", requestcontext.ActorID(ctx).String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, v)
}
