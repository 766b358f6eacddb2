package formshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"epas/internal/domain/audit"
	"epas/internal/domain/auth"
	"epas/internal/domain/forms"
	"epas/internal/transport/http/api"
	"epas/internal/transport/http/middleware"
)

type Handler struct {
	Service *forms.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *forms.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFormsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermFormsRead, h.Perms)).Get("/{formID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Put("/{formID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{formID}/activate", h.handleActivate)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{formID}/deactivate", h.handleDeactivate)
		r.With(middleware.RequirePermission(auth.PermFormsRead, h.Perms)).Get("/{formID}/sections", h.handleListSections)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{formID}/sections", h.handleCreateSection)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{formID}/sections/reorder", h.handleReorderSections)
	})
	r.Route("/sections", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Put("/{sectionID}", h.handleUpdateSection)
		r.With(middleware.RequirePermission(auth.PermFormsRead, h.Perms)).Get("/{sectionID}/questions", h.handleListQuestions)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{sectionID}/questions", h.handleCreateQuestion)
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Post("/{sectionID}/questions/reorder", h.handleReorderQuestions)
	})
	r.Route("/questions", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFormsWrite, h.Perms)).Put("/{questionID}", h.handleUpdateQuestion)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	items, err := h.Service.ListForms(r.Context(), activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "forms_list_failed", "failed to list forms", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Form
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateForm(r.Context(), payload)
	if err != nil {
		h.failFromError(w, r, err, "form_create_failed", "failed to create form")
		return
	}

	h.recordAudit(r, user.ID, "form.create", "form", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	detail, err := h.Service.FormDetail(r.Context(), formID)
	if err != nil {
		h.failFromError(w, r, err, "form_get_failed", "failed to load form")
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Form
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	formID := chi.URLParam(r, "formID")
	if err := h.Service.UpdateForm(r.Context(), formID, payload); err != nil {
		h.failFromError(w, r, err, "form_update_failed", "failed to update form")
		return
	}

	h.recordAudit(r, user.ID, "form.update", "form", formID, payload)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true, "form.activate")
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false, "form.deactivate")
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool, action string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	formID := chi.URLParam(r, "formID")
	if err := h.Service.SetFormActive(r.Context(), formID, active); err != nil {
		h.failFromError(w, r, err, "form_update_failed", "failed to update form")
		return
	}

	h.recordAudit(r, user.ID, action, "form", formID, nil)
	api.Success(w, map[string]bool{"isActive": active}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSections(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	sections, err := h.Service.ListSections(r.Context(), formID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "sections_list_failed", "failed to list sections", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, sections, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Section
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.FormID = chi.URLParam(r, "formID")

	id, err := h.Service.CreateSection(r.Context(), payload)
	if err != nil {
		h.failFromError(w, r, err, "section_create_failed", "failed to create section")
		return
	}

	h.recordAudit(r, user.ID, "form.section.create", "form_section", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Section
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	sectionID := chi.URLParam(r, "sectionID")
	if err := h.Service.UpdateSection(r.Context(), sectionID, payload); err != nil {
		h.failFromError(w, r, err, "section_update_failed", "failed to update section")
		return
	}

	h.recordAudit(r, user.ID, "form.section.update", "form_section", sectionID, payload)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

type reorderPayload struct {
	OrderedIDs []string `json:"orderedIds"`
}

func (h *Handler) handleReorderSections(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	formID := chi.URLParam(r, "formID")
	if err := h.Service.ReorderSections(r.Context(), formID, payload.OrderedIDs); err != nil {
		h.failFromError(w, r, err, "reorder_failed", "failed to reorder sections")
		return
	}

	h.recordAudit(r, user.ID, "form.sections.reorder", "form", formID, payload)
	api.Success(w, map[string]string{"status": "reordered"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "sectionID")
	questions, err := h.Service.ListQuestions(r.Context(), sectionID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "questions_list_failed", "failed to list questions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, questions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Question
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.SectionID = chi.URLParam(r, "sectionID")

	id, err := h.Service.CreateQuestion(r.Context(), payload)
	if err != nil {
		h.failFromError(w, r, err, "question_create_failed", "failed to create question")
		return
	}

	h.recordAudit(r, user.ID, "form.question.create", "form_question", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload forms.Question
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	questionID := chi.URLParam(r, "questionID")
	if err := h.Service.UpdateQuestion(r.Context(), questionID, payload); err != nil {
		h.failFromError(w, r, err, "question_update_failed", "failed to update question")
		return
	}

	h.recordAudit(r, user.ID, "form.question.update", "form_question", questionID, payload)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReorderQuestions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	sectionID := chi.URLParam(r, "sectionID")
	if err := h.Service.ReorderQuestions(r.Context(), sectionID, payload.OrderedIDs); err != nil {
		h.failFromError(w, r, err, "reorder_failed", "failed to reorder questions")
		return
	}

	h.recordAudit(r, user.ID, "form.questions.reorder", "form_section", sectionID, payload)
	api.Success(w, map[string]string{"status": "reordered"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) recordAudit(r *http.Request, actorID, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, "",
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) failFromError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, forms.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "form not found", requestID)
	case errors.Is(err, forms.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.Is(err, forms.ErrReorderMismatch):
		api.Fail(w, http.StatusConflict, "reorder_mismatch", "ordered ids do not match existing items", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
