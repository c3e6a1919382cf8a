package handler

import (
	"net/http"

	"complyhub/internal/catalog/models"
	"complyhub/internal/catalog/service"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// HandleCreateStandard handles POST /standards.
func (h *Handler) HandleCreateStandard(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateStandardRequest](w, r)
	if !ok {
		return
	}
	std, err := h.service.CreateStandard(r.Context(), req)
	h.respond(w, r, "create standard", http.StatusCreated, std, err)
}

func (h *Handler) HandleListStandards(w http.ResponseWriter, r *http.Request) {
	standards, err := h.service.ListStandards(r.Context())
	h.respond(w, r, "list standards", http.StatusOK, standards, err)
}

func (h *Handler) HandleGetStandard(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	std, err := h.service.GetStandard(r.Context(), standardID)
	h.respond(w, r, "get standard", http.StatusOK, std, err)
}

func (h *Handler) HandleStandardStatistics(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	stats, err := h.service.StandardStatistics(r.Context(), standardID)
	h.respond(w, r, "standard statistics", http.StatusOK, stats, err)
}

func (h *Handler) HandleActivateStandard(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	std, err := h.service.ActivateStandard(r.Context(), standardID)
	h.respond(w, r, "activate standard", http.StatusOK, std, err)
}

// HandleSupersedeStandard handles POST /standards/{id}/supersede.
func (h *Handler) HandleSupersedeStandard(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	req, ok := decode[SupersedeRequest](w, r)
	if !ok {
		return
	}
	std, err := h.service.SupersedeStandard(r.Context(), standardID, req.SuccessorID)
	h.respond(w, r, "supersede standard", http.StatusOK, std, err)
}

func (h *Handler) HandleAttachStandard(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	req, ok := decode[ParentRequest[id.StandardID]](w, r)
	if !ok {
		return
	}
	std, err := h.service.AttachStandard(r.Context(), standardID, req.ParentID)
	h.respond(w, r, "attach standard", http.StatusOK, std, err)
}

func (h *Handler) HandleListZones(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	zones, err := h.service.ListZones(r.Context(), standardID)
	h.respond(w, r, "list zones", http.StatusOK, zones, err)
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateCategoryRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req)
	h.respond(w, r, "create category", http.StatusCreated, c, err)
}

func (h *Handler) HandleAttachCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "id", id.ParseCategoryID)
	if !ok {
		return
	}
	req, ok := decode[ParentRequest[id.CategoryID]](w, r)
	if !ok {
		return
	}
	c, err := h.service.AttachCategory(r.Context(), categoryID, req.ParentID)
	h.respond(w, r, "attach category", http.StatusOK, c, err)
}

func (h *Handler) HandleCreateDomain(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateDomainRequest](w, r)
	if !ok {
		return
	}
	d, err := h.service.CreateDomain(r.Context(), req)
	h.respond(w, r, "create domain", http.StatusCreated, d, err)
}

func (h *Handler) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	d, err := h.service.GetDomain(r.Context(), domainID)
	h.respond(w, r, "get domain", http.StatusOK, d, err)
}

// HandleAttachDomain handles PUT /domains/{id}/parent.
func (h *Handler) HandleAttachDomain(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	req, ok := decode[ParentRequest[id.DomainID]](w, r)
	if !ok {
		return
	}
	d, err := h.service.AttachDomain(r.Context(), domainID, req.ParentID)
	h.respond(w, r, "attach domain", http.StatusOK, d, err)
}

func (h *Handler) HandleDomainDescendants(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	domains, err := h.service.DescendantDomains(r.Context(), domainID)
	h.respond(w, r, "domain descendants", http.StatusOK, domains, err)
}

func (h *Handler) HandleDomainStatistics(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	stats, err := h.service.DomainStatistics(r.Context(), domainID)
	h.respond(w, r, "domain statistics", http.StatusOK, stats, err)
}

func (h *Handler) HandleTransitionDomain(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	req, ok := decode[TransitionRequest](w, r)
	if !ok {
		return
	}
	to, err := req.State()
	if err != nil {
		h.respond(w, r, "transition domain", 0, nil, err)
		return
	}
	d, err := h.service.TransitionDomain(r.Context(), domainID, to)
	h.respond(w, r, "transition domain", http.StatusOK, d, err)
}

func (h *Handler) HandleAssignZone(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	req, ok := decode[ZoneAssignmentRequest](w, r)
	if !ok {
		return
	}
	d, err := h.service.AssignDomainZone(r.Context(), domainID, req.ZoneID)
	h.respond(w, r, "assign zone", http.StatusOK, d, err)
}

// HandleLinkControl handles POST /domains/{id}/controls/{controlID}.
func (h *Handler) HandleLinkControl(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	controlID, ok := pathID(w, r, "controlID", id.ParseControlID)
	if !ok {
		return
	}
	d, err := h.service.LinkControl(r.Context(), domainID, controlID)
	h.respond(w, r, "link control", http.StatusOK, d, err)
}

func (h *Handler) HandleUnlinkControl(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	controlID, ok := pathID(w, r, "controlID", id.ParseControlID)
	if !ok {
		return
	}
	d, err := h.service.UnlinkControl(r.Context(), domainID, controlID)
	h.respond(w, r, "unlink control", http.StatusOK, d, err)
}

func (h *Handler) HandleCreateRequirement(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateRequirementRequest](w, r)
	if !ok {
		return
	}
	rq, err := h.service.CreateRequirement(r.Context(), req)
	h.respond(w, r, "create requirement", http.StatusCreated, rq, err)
}

func (h *Handler) HandleGetRequirement(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	rq, err := h.service.GetRequirement(r.Context(), requirementID)
	h.respond(w, r, "get requirement", http.StatusOK, rq, err)
}

func (h *Handler) HandleAttachRequirement(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	req, ok := decode[ParentRequest[id.RequirementID]](w, r)
	if !ok {
		return
	}
	rq, err := h.service.AttachRequirement(r.Context(), requirementID, req.ParentID)
	h.respond(w, r, "attach requirement", http.StatusOK, rq, err)
}

func (h *Handler) HandleRequirementDescendants(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	reqs, err := h.service.DescendantRequirements(r.Context(), requirementID)
	h.respond(w, r, "requirement descendants", http.StatusOK, reqs, err)
}

func (h *Handler) HandleSetComplianceStatus(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	req, ok := decode[ComplianceStatusRequest](w, r)
	if !ok {
		return
	}
	rq, err := h.service.SetComplianceStatus(r.Context(), requirementID, req.Status)
	h.respond(w, r, "set compliance status", http.StatusOK, rq, err)
}

func (h *Handler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	qs, err := h.service.ListAuditQuestions(r.Context(), requirementID)
	h.respond(w, r, "list audit questions", http.StatusOK, qs, err)
}

func (h *Handler) HandleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateAuditQuestionRequest](w, r)
	if !ok {
		return
	}
	q, err := h.service.CreateAuditQuestion(r.Context(), req)
	h.respond(w, r, "create audit question", http.StatusCreated, q, err)
}

func (h *Handler) HandleCreateZone(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateZoneRequest](w, r)
	if !ok {
		return
	}
	z, err := h.service.CreateZone(r.Context(), req)
	h.respond(w, r, "create zone", http.StatusCreated, z, err)
}

func (h *Handler) HandleCreateTool(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateAssessmentToolRequest](w, r)
	if !ok {
		return
	}
	t, err := h.service.CreateAssessmentTool(r.Context(), req)
	h.respond(w, r, "create assessment tool", http.StatusCreated, t, err)
}

// HandleRebuild handles POST /hierarchies/{kind}/rebuild.
func (h *Handler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	kind := service.HierarchyKind(chiParam(r, "kind"))
	if !kind.IsValid() {
		h.respond(w, r, "rebuild hierarchy", 0, nil, dErrors.Newf(dErrors.CodeValidation, "unknown hierarchy %q", kind))
		return
	}
	result, err := h.service.RebuildHierarchy(r.Context(), kind)
	h.respond(w, r, "rebuild hierarchy", http.StatusOK, result, err)
}
