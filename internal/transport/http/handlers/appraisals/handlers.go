package appraisalshandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"epas/internal/domain/appraisal"
	"epas/internal/domain/audit"
	"epas/internal/domain/auth"
	"epas/internal/domain/directory"
	"epas/internal/domain/notifications"
	"epas/internal/requestctx"
	"epas/internal/transport/http/api"
	"epas/internal/transport/http/middleware"
	"epas/internal/transport/http/shared"
)

type Handler struct {
	Service   *appraisal.Service
	Directory *directory.Service
	Perms     middleware.PermissionStore
	Notify    *notifications.Service
	Audit     *audit.Service
}

func NewHandler(service *appraisal.Service, dir *directory.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Directory: dir, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAppraisalsApprove, h.Perms)).Get("/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/{appraisalID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/{appraisalID}/approvals", h.handleChain)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/{appraisalID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermAppraisalsApprove, h.Perms)).Post("/{appraisalID}/decision", h.handleDecision)
		r.With(middleware.RequirePermission(auth.PermAppraisalsApprove, h.Perms)).Post("/{appraisalID}/ratings", h.handleSaveRating)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/{appraisalID}/responses", h.handleListResponses)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Put("/{appraisalID}/responses", h.handleSaveResponse)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Put("/{appraisalID}/section-comments", h.handleSaveSectionComment)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Put("/{appraisalID}/overall-comments", h.handleSetOverallComments)
		r.With(middleware.RequirePermission(auth.PermAppraisalsManage, h.Perms)).Post("/{appraisalID}/cancel", h.handleCancel)
	})
}

type createPayload struct {
	EmployeeID string `json:"employeeId"`
	FormID     string `json:"formId"`
	PeriodFrom string `json:"periodFrom"`
	PeriodTo   string `json:"periodTo"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := strings.TrimSpace(payload.EmployeeID)
	if employeeID == "" || !isHR(user.Role) {
		employeeID = user.ID
	}

	v := shared.NewValidator()
	v.Required("formId", payload.FormID, "form id is required")
	periodFrom, periodTo := v.Period("periodFrom", payload.PeriodFrom, "periodTo", payload.PeriodTo)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateDraft(r.Context(), employeeID, payload.FormID, periodFrom, periodTo)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_create_failed", "failed to create appraisal")
		return
	}

	h.recordAudit(r, user.ID, "appraisal.create", id, "", nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	status := r.URL.Query().Get("status")

	if isHR(user.Role) && employeeID == "" {
		page := shared.ParsePagination(r, 100, 500)
		items, err := h.Service.ListByStatus(r.Context(), status, page.Limit, page.Offset)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "appraisal_list_failed", "failed to list appraisals", middleware.GetRequestID(r.Context()))
			return
		}
		api.Success(w, items, middleware.GetRequestID(r.Context()))
		return
	}

	if employeeID == "" || !isHR(user.Role) {
		employeeID = user.ID
	}
	items, err := h.Service.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "appraisal_list_failed", "failed to list appraisals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	items, err := h.Service.ListPendingForApprover(r.Context(), user.ID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "approval_list_failed", "failed to list pending approvals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Get(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_get_failed", "failed to load appraisal")
		return
	}

	allowed, err := h.canView(r, user, appr)
	if err != nil {
		slog.Warn("appraisal access check failed", "appraisalId", appraisalID, "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, appr, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Get(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_get_failed", "failed to load appraisal")
		return
	}
	allowed, err := h.canView(r, user, appr)
	if err != nil {
		slog.Warn("appraisal access check failed", "appraisalId", appraisalID, "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	levels, err := h.Service.Chain(r.Context(), appraisalID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "approval_chain_failed", "failed to load approval chain", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, levels, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	result, err := h.Service.Submit(r.Context(), appraisalID, user.ID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_submit_failed", "failed to submit appraisal")
		return
	}

	h.recordAudit(r, user.ID, "appraisal.submit", appraisalID, "", nil, map[string]any{"levels": len(result.Levels)})
	if h.Notify != nil && result.Level1Approver != "" {
		if err := h.Notify.Create(r.Context(), result.Level1Approver, notifications.TypeApprovalPending,
			"Appraisal awaiting your review", "An appraisal has been submitted and is awaiting your approval."); err != nil {
			slog.Warn("submit notification failed", "err", err)
		}
	}

	api.Success(w, map[string]any{
		"id":     result.AppraisalID,
		"status": appraisal.StatusSubmitted,
		"levels": result.Levels,
	}, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	decision := strings.ToLower(strings.TrimSpace(payload.Decision))
	if decision != appraisal.DecisionApprove && decision != appraisal.DecisionReject {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "decision must be approve or reject", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	result, err := h.Service.RecordDecision(r.Context(), appraisalID, user.ID, decision, payload.Comments)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_decision_failed", "failed to record decision")
		return
	}

	h.recordAudit(r, user.ID, "appraisal."+result.Decision, appraisalID, payload.Comments, nil, map[string]any{
		"level":  result.Level,
		"status": result.Status,
	})
	h.notifyDecision(r, result)

	api.Success(w, map[string]any{
		"id":         result.AppraisalID,
		"decision":   result.Decision,
		"level":      result.Level,
		"status":     result.Status,
		"totalScore": result.TotalScore,
		"grade":      result.Grade,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) notifyDecision(r *http.Request, result appraisal.DecisionResult) {
	if h.Notify == nil {
		return
	}
	ctx := r.Context()

	switch {
	case result.Decision == appraisal.DecisionReject:
		if err := h.Notify.Create(ctx, result.EmployeeID, notifications.TypeAppraisalRejected,
			"Appraisal returned", "Your appraisal was returned at approval level "+strconv.Itoa(result.Level)+". Revise and resubmit."); err != nil {
			slog.Warn("reject notification failed", "err", err)
		}
	case result.Status == appraisal.StatusCompleted:
		body := fmt.Sprintf("Your appraisal is complete with grade %s (score %.1f).", result.Grade, result.TotalScore)
		if err := h.Notify.Create(ctx, result.EmployeeID, notifications.TypeAppraisalCompleted, "Appraisal completed", body); err != nil {
			slog.Warn("completion notification failed", "err", err)
		}
	case result.NextApproverID != "":
		if err := h.Notify.Create(ctx, result.NextApproverID, notifications.TypeApprovalPending,
			"Appraisal awaiting your review", "An appraisal has reached your approval level."); err != nil {
			slog.Warn("next approver notification failed", "err", err)
		}
	}
}

type ratingPayload struct {
	QuestionID string `json:"questionId"`
	Response   string `json:"response"`
	Rating     *int   `json:"rating"`
	Comments   string `json:"comments"`
}

func (h *Handler) handleSaveRating(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload ratingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.QuestionID) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "question id required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	input := appraisal.ResponseInput{Response: payload.Response, Rating: payload.Rating, Comments: payload.Comments}
	if err := h.Service.SaveManagerRating(r.Context(), appraisalID, user.ID, payload.QuestionID, input); err != nil {
		h.failFromError(w, r, err, "rating_save_failed", "failed to save rating")
		return
	}

	api.Success(w, map[string]string{"status": "saved"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListResponses(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Get(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_get_failed", "failed to load appraisal")
		return
	}
	allowed, err := h.canView(r, user, appr)
	if err != nil {
		slog.Warn("appraisal access check failed", "appraisalId", appraisalID, "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	responses, err := h.Service.Responses(r.Context(), appraisalID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "responses_failed", "failed to load responses", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, responses, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveResponse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload ratingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.QuestionID) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "question id required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	input := appraisal.ResponseInput{Response: payload.Response, Rating: payload.Rating, Comments: payload.Comments}
	if err := h.Service.SaveEmployeeResponse(r.Context(), appraisalID, user.ID, payload.QuestionID, input); err != nil {
		h.failFromError(w, r, err, "response_save_failed", "failed to save response")
		return
	}

	api.Success(w, map[string]string{"status": "saved"}, middleware.GetRequestID(r.Context()))
}

type sectionCommentPayload struct {
	SectionID string `json:"sectionId"`
	Comment   string `json:"comment"`
}

func (h *Handler) handleSaveSectionComment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload sectionCommentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.SectionID) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "section id required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Get(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_get_failed", "failed to load appraisal")
		return
	}
	allowed, err := h.canView(r, user, appr)
	if err != nil {
		slog.Warn("appraisal access check failed", "appraisalId", appraisalID, "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.SaveSectionComment(r.Context(), appraisalID, payload.SectionID, payload.Comment); err != nil {
		api.Fail(w, http.StatusInternalServerError, "section_comment_failed", "failed to save section comment", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "saved"}, middleware.GetRequestID(r.Context()))
}

type overallCommentsPayload struct {
	Comments string `json:"comments"`
}

func (h *Handler) handleSetOverallComments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload overallCommentsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Get(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_get_failed", "failed to load appraisal")
		return
	}
	if appr.EmployeeID != user.ID && !isHR(user.Role) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.SetOverallComments(r.Context(), appraisalID, payload.Comments); err != nil {
		api.Fail(w, http.StatusInternalServerError, "comments_failed", "failed to save comments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "saved"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	appraisalID := chi.URLParam(r, "appraisalID")
	appr, err := h.Service.Cancel(r.Context(), appraisalID)
	if err != nil {
		h.failFromError(w, r, err, "appraisal_cancel_failed", "failed to cancel appraisal")
		return
	}

	h.recordAudit(r, user.ID, "appraisal.cancel", appraisalID, "", nil, nil)
	if h.Notify != nil {
		if err := h.Notify.Create(r.Context(), appr.EmployeeID, notifications.TypeAppraisalCancelled,
			"Appraisal cancelled", "Your appraisal has been cancelled by HR."); err != nil {
			slog.Warn("cancel notification failed", "err", err)
		}
	}

	api.Success(w, map[string]string{"status": appraisal.StatusCancelled}, middleware.GetRequestID(r.Context()))
}

// canView allows the owner, anyone on the approval chain, the owner's direct
// superior, and HR/admin.
func (h *Handler) canView(r *http.Request, user requestctx.User, appr appraisal.Appraisal) (bool, error) {
	if isHR(user.Role) {
		return true, nil
	}
	if appr.EmployeeID == user.ID {
		return true, nil
	}

	levels, err := h.Service.Chain(r.Context(), appr.ID)
	if err != nil {
		return false, err
	}
	for _, level := range levels {
		if level.ApproverID == user.ID {
			return true, nil
		}
	}

	return h.Directory.IsManagerOf(r.Context(), user.ID, appr.EmployeeID)
}

func isHR(role string) bool {
	return role == auth.RoleHR || role == auth.RoleAdmin
}

func (h *Handler) recordAudit(r *http.Request, actorID, action, entityID, note string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "appraisal", entityID, note,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) failFromError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, appraisal.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "appraisal not found", requestID)
	case errors.Is(err, appraisal.ErrNotAuthorized):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, appraisal.ErrRatingNotAllowed):
		api.Fail(w, http.StatusForbidden, "rating_not_allowed", "only the rating level approver may rate", requestID)
	case errors.Is(err, appraisal.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, appraisal.ErrPersistenceConflict):
		api.Fail(w, http.StatusConflict, "conflict", "the appraisal changed underneath this request, retry", requestID)
	case errors.Is(err, appraisal.ErrChainAlreadyBuilt):
		api.Fail(w, http.StatusConflict, "chain_exists", "approval chain already exists", requestID)
	case errors.Is(err, appraisal.ErrNoSupervisor):
		api.Fail(w, http.StatusUnprocessableEntity, "no_supervisor", "employee has no direct superior", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
