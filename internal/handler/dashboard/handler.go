package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/service/readview"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

// Handler serves the filtered projections behind the admin, doctor, and
// patient dashboards.
type Handler struct {
	views *readview.Service
	auth  *middleware.AuthMiddleware
}

func NewHandler(views *readview.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{views: views, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dashboard := r.Group("/dashboard")
	dashboard.Use(h.auth.Authenticate())
	{
		dashboard.GET("/pending", h.auth.RequireRole("admin", "doctor"), h.Pending)
		dashboard.GET("/doctors/:id/requests", h.auth.RequireRole("admin", "doctor"), h.ForDoctor)
		dashboard.GET("/users/:id/requests", h.ForUser)
		dashboard.GET("/search", h.auth.RequireRole("admin", "doctor"), h.Search)
	}
}

func (h *Handler) Pending(c *gin.Context) {
	requests, err := h.views.Pending(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) ForDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	requests, err := h.views.ForDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) ForUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid user ID", err))
		return
	}

	requests, err := h.views.ForUser(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// Patients see their own queue without staff annotations.
	if c.GetString(middleware.ContextUserRole) == "user" {
		for i, req := range requests {
			requests[i] = req.ForPatient()
		}
	}
	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) Search(c *gin.Context) {
	requests, err := h.views.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}
