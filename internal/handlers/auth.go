// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/middleware"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	authResponse, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.CreatedResponse(c, authResponse)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.SuccessResponse(c, authResponse)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sess); err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.MessageResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthLogoutSuccess))
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), sess)
	if err != nil {
		utils.ServiceErrorResponse(c, err, "user")
		return
	}

	utils.SuccessResponse(c, profile)
}

// actor returns the caller of an authenticated route.
func actor(c *gin.Context) (services.Actor, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	return services.ActorFromSession(sess), true
}
