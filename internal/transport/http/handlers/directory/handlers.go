package directoryhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"epas/internal/domain/appraisal"
	"epas/internal/domain/auth"
	"epas/internal/domain/directory"
	"epas/internal/transport/http/api"
	"epas/internal/transport/http/middleware"
)

type Handler struct {
	Service   *directory.Service
	Appraisal *appraisal.Service
	Perms     middleware.PermissionStore
}

func NewHandler(service *directory.Service, appraisalSvc *appraisal.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Appraisal: appraisalSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/directory", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees", h.handleList)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/employees/{employeeID}/chain-preview", h.handleChainPreview)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/team", h.handleTeam)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employeeType := r.URL.Query().Get("employeeType")
	employees, err := h.Service.List(r.Context(), employeeType)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "directory_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	employee, err := h.Service.Get(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "directory_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

// handleChainPreview computes the approval chain the employee would get on
// submission, without persisting anything. Useful for HR to sanity check the
// reporting line before an appraisal round.
func (h *Handler) handleChainPreview(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	levels, err := h.Appraisal.PreviewChain(r.Context(), employeeID)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, appraisal.ErrNoSupervisor):
			api.Fail(w, http.StatusUnprocessableEntity, "no_supervisor", "employee has no direct superior", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "chain_preview_failed", "failed to compute chain", middleware.GetRequestID(r.Context()))
		}
		return
	}
	api.Success(w, levels, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	reports, err := h.Service.DirectReports(r.Context(), user.ID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "team_list_failed", "failed to list direct reports", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, reports, middleware.GetRequestID(r.Context()))
}
