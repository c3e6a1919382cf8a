package handler

import (
	"net/http"

	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
)

// HandleArchiveStandard handles POST /standards/{id}/archive.
func (h *Handler) HandleArchiveStandard(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	std, err := h.service.ArchiveStandard(r.Context(), standardID)
	h.respond(w, r, "archive standard", http.StatusOK, std, err)
}

func (h *Handler) HandleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "id", id.ParseCategoryID)
	if !ok {
		return
	}
	c, err := h.service.ArchiveCategory(r.Context(), categoryID)
	h.respond(w, r, "archive category", http.StatusOK, c, err)
}

// HandleArchiveDomain handles POST /domains/{id}/archive. The domain's
// descendants are archived with it.
func (h *Handler) HandleArchiveDomain(w http.ResponseWriter, r *http.Request) {
	domainID, ok := pathID(w, r, "id", id.ParseDomainID)
	if !ok {
		return
	}
	d, err := h.service.ArchiveDomain(r.Context(), domainID)
	h.respond(w, r, "archive domain", http.StatusOK, d, err)
}

func (h *Handler) HandleArchiveRequirement(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id", id.ParseRequirementID)
	if !ok {
		return
	}
	req, err := h.service.ArchiveRequirement(r.Context(), requirementID)
	h.respond(w, r, "archive requirement", http.StatusOK, req, err)
}

// HandleCreateCertification handles POST /certifications.
func (h *Handler) HandleCreateCertification(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateCertificationRequest](w, r)
	if !ok {
		return
	}
	cert, err := h.service.CreateCertification(r.Context(), req)
	h.respond(w, r, "create certification", http.StatusCreated, cert, err)
}

func (h *Handler) HandleGetCertification(w http.ResponseWriter, r *http.Request) {
	certID, ok := pathID(w, r, "id", id.ParseCertificationID)
	if !ok {
		return
	}
	cert, err := h.service.GetCertification(r.Context(), certID)
	h.respond(w, r, "get certification", http.StatusOK, cert, err)
}

func (h *Handler) HandleListCertifications(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	certs, err := h.service.ListCertifications(r.Context(), standardID)
	h.respond(w, r, "list certifications", http.StatusOK, certs, err)
}
