package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/directory"
	"github.com/teleclinic/consult-api/pkg/auth"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	directory *directory.Service
	tokens    *auth.TokenManager
}

func NewHandler(directory *directory.Service, tokens *auth.TokenManager) *Handler {
	return &Handler{directory: directory, tokens: tokens}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/login", h.Login)
		group.POST("/doctor/login", h.DoctorLogin)
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	user, err := h.directory.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, loginResponse{Token: token, User: user})
}

func (h *Handler) DoctorLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	doctor, err := h.directory.AuthenticateDoctor(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	token, err := h.tokens.Generate(doctor.ID, doctor.Email, string(model.RoleDoctor))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, loginResponse{Token: token, User: doctor})
}
