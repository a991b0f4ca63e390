package doctor

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/directory"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service *directory.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *directory.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	doctors.Use(h.auth.Authenticate())
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)

		admin := doctors.Group("", h.auth.RequireRole("admin"))
		{
			admin.POST("", h.CreateDoctor)
			admin.PUT("/:id", h.UpdateDoctor)
			admin.DELETE("/:id", h.DeleteDoctor)
			admin.POST("/:id/toggle-active", h.ToggleActive)
		}
	}
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	doctor, err := h.service.CreateDoctor(c.Request.Context(), &model.Doctor{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: req.Specialty,
		Phone:     req.Phone,
	}, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, doctor)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	doctor, err := h.service.GetDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.ListDoctors(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	var req model.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	doctor, err := h.service.UpdateDoctor(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	if err := h.service.DeleteDoctor(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) ToggleActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	doctor, err := h.service.ToggleDoctorActive(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}
