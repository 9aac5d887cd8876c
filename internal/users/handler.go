package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/auth"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
	"research-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc    *Service
	Signer *auth.Signer
}

func NewHandler(svc *Service, signer *auth.Signer) *Handler {
	return &Handler{Svc: svc, Signer: signer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.signUp)
	rg.POST("/auth/signin", h.signIn)
	rg.POST("/auth/signout", h.signOut)
	rg.GET("/me", h.me)
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	user, err := h.Svc.SignUp(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			respond.Error(c, http.StatusBadRequest, "validation_error", verr.Message, gin.H{
				"rule":      verr.Rule,
				"checklist": verr.Checklist,
			})
		case errors.Is(err, ErrEmailTaken):
			respond.Error(c, http.StatusConflict, "email_taken", "An account with this email already exists.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create account", nil)
		}
		return
	}
	h.issue(c, http.StatusCreated, user)
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	user, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign in", nil)
		return
	}
	h.issue(c, http.StatusOK, user)
}

func (h *Handler) signOut(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.EndSession(c.Request.Context(), userID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign out", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	session, err := h.Svc.Session(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		return
	}
	respond.OK(c, session)
}

// issue signs a token for user and records the session slot.
func (h *Handler) issue(c *gin.Context, status int, user User) {
	token, err := h.Signer.Sign(auth.Claims{Sub: user.ID, Email: user.Email, Name: user.FullName})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}
	if err := h.Svc.StartSession(c.Request.Context(), user); err != nil {
		telemetry.Warn("users.session_write_failed", map[string]any{
			"user_id": user.ID,
			"error":   err,
		})
	}
	respond.JSON(c, status, authResponse{Token: token, User: user})
}
