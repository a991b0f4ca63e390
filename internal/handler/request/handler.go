package request

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/lifecycle"
	"github.com/teleclinic/consult-api/internal/service/readview"
	"github.com/teleclinic/consult-api/internal/service/request"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service   *request.Service
	lifecycle *lifecycle.Service
	views     *readview.Service
	auth      *middleware.AuthMiddleware
}

func NewHandler(service *request.Service, lifecycle *lifecycle.Service, views *readview.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:   service,
		lifecycle: lifecycle,
		views:     views,
		auth:      auth,
	}
}

// RegisterPublicRoutes mounts the patient-facing submission endpoint.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/requests", h.CreateRequest)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	requests.Use(h.auth.Authenticate())
	{
		requests.GET("", h.auth.RequireRole("admin", "doctor"), h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.DELETE("/:id", h.auth.RequireRole("admin"), h.DeleteRequest)

		requests.POST("/:id/complete", h.auth.RequireRole("admin", "doctor"), h.CompleteRequest)
		requests.POST("/:id/cancel", h.auth.RequireRole("admin", "doctor"), h.CancelRequest)
		requests.PUT("/:id/notes", h.auth.RequireRole("admin", "doctor"), h.UpdateNotes)
		requests.PUT("/:id/assign", h.auth.RequireRole("admin"), h.AssignDoctor)
	}
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req model.CreateConsultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	details, err := model.DecodeDetails(req.Type, req.Details)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid details payload", err))
		return
	}

	created, err := h.service.CreateRequest(c.Request.Context(), &model.ConsultRequest{
		UserID:      req.UserID,
		DoctorID:    req.DoctorID,
		Type:        req.Type,
		Reason:      req.Reason,
		Date:        req.Date,
		Time:        req.Time,
		PatientName: req.PatientName,
		Email:       req.Email,
		Phone:       req.Phone,
		Notes:       req.Notes,
		Details:     details,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithCreated(c, created.ForPatient())
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	req, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// Doctor notes stay internal to staff.
	if c.GetString(middleware.ContextUserRole) == string(model.RoleUser) {
		httputil.RespondWithSuccess(c, req.ForPatient())
		return
	}
	httputil.RespondWithSuccess(c, req)
}

func (h *Handler) ListRequests(c *gin.Context) {
	filters := &model.RequestFilters{
		Status: model.RequestStatus(c.Query("status")),
		Email:  c.Query("email"),
	}
	if v := c.Query("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
			return
		}
		filters.DoctorID = &id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid user ID", err))
			return
		}
		filters.UserID = &id
	}

	requests, err := h.service.ListRequests(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) DeleteRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	force := c.Query("force") == "true"
	if err := h.service.DeleteRequest(c.Request.Context(), id, force); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

type completeRequest struct {
	DoctorNotes *string `json:"doctor_notes"`
}

func (h *Handler) CompleteRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	var body completeRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	req, err := h.lifecycle.Complete(c.Request.Context(), id, body.DoctorNotes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithSuccess(c, req)
}

type cancelRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) CancelRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	var body cancelRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	req, err := h.lifecycle.Cancel(c.Request.Context(), id, body.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithSuccess(c, req)
}

type updateNotesRequest struct {
	DoctorNotes string `json:"doctor_notes" binding:"required"`
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	var body updateNotesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	req, err := h.lifecycle.UpdateNotes(c.Request.Context(), id, body.DoctorNotes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithSuccess(c, req)
}

type assignDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
}

func (h *Handler) AssignDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request ID", err))
		return
	}

	var body assignDoctorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	req, err := h.lifecycle.AssignDoctor(c.Request.Context(), id, body.DoctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.views.Invalidate()
	httputil.RespondWithSuccess(c, req)
}
