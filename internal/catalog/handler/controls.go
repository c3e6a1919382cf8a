package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/requestcontext"
)

func chiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// HandleCreateControl handles POST /controls.
func (h *Handler) HandleCreateControl(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[models.CreateControlRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.CreateControl(r.Context(), req)
	h.respond(w, r, "create control", http.StatusCreated, c, err)
}

func (h *Handler) HandleGetControl(w http.ResponseWriter, r *http.Request) {
	controlID, ok := pathID(w, r, "id", id.ParseControlID)
	if !ok {
		return
	}
	c, err := h.service.GetControl(r.Context(), controlID)
	h.respond(w, r, "get control", http.StatusOK, c, err)
}

func (h *Handler) HandleListControls(w http.ResponseWriter, r *http.Request) {
	standardID, ok := pathID(w, r, "id", id.ParseStandardID)
	if !ok {
		return
	}
	cs, err := h.service.ListControls(r.Context(), standardID)
	h.respond(w, r, "list controls", http.StatusOK, cs, err)
}

// HandleUpdateControl handles PATCH /controls/{id}. A state in the body goes
// through the same guard as an explicit transition.
func (h *Handler) HandleUpdateControl(w http.ResponseWriter, r *http.Request) {
	controlID, ok := pathID(w, r, "id", id.ParseControlID)
	if !ok {
		return
	}
	req, ok := decode[UpdateControlRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.UpdateControl(r.Context(), controlID, req.Patch())
	h.respond(w, r, "update control", http.StatusOK, c, err)
}

// HandleTransitionControl handles POST /controls/{id}/transitions.
func (h *Handler) HandleTransitionControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	controlID, ok := pathID(w, r, "id", id.ParseControlID)
	if !ok {
		return
	}
	req, ok := decode[TransitionRequest](w, r)
	if !ok {
		return
	}
	to, err := req.State()
	if err != nil {
		h.respond(w, r, "transition control", 0, nil, err)
		return
	}
	c, err := h.service.Transition(ctx, controlID, to)
	if err == nil {
		h.logger.InfoContext(ctx, "control transitioned",
			"request_id", requestcontext.RequestID(ctx),
			"control_id", controlID.String(),
			"to", to,
		)
	}
	h.respond(w, r, "transition control", http.StatusOK, c, err)
}

// HandleRecordTest handles POST /controls/{id}/tests.
func (h *Handler) HandleRecordTest(w http.ResponseWriter, r *http.Request) {
	controlID, ok := pathID(w, r, "id", id.ParseControlID)
	if !ok {
		return
	}
	req, ok := decode[RecordTestRequest](w, r)
	if !ok {
		return
	}
	c, err := h.service.RecordTest(r.Context(), controlID, req.TestedAt, req.Result)
	h.respond(w, r, "record test", http.StatusOK, c, err)
}

// HandleDueControls handles GET /controls/due?day=YYYY-MM-DD. Without a day
// the request time is used.
func (h *Handler) HandleDueControls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := requestcontext.Now(ctx)
	if v := r.URL.Query().Get("day"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			h.respond(w, r, "due controls", 0, nil, dErrors.New(dErrors.CodeBadRequest, "day must be YYYY-MM-DD"))
			return
		}
		day = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	cs, err := h.service.DueForTesting(ctx, day)
	h.respond(w, r, "due controls", http.StatusOK, cs, err)
}
