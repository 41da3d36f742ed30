package handlers

import (
	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// Register creates an account.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	created(c, resp)
}

// Login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, resp)
}

// Logout is a no-op server side: tokens are stateless and the client drops its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	message(c, "Logged out successfully")
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, u)
}

// UpdateProfile
// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Auth.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, u)
}

// ============================================================================
// 2FA
// ============================================================================

func (h *AuthHandler) SetupTOTP(c *gin.Context) {
	resp, err := h.Auth.SetupTOTP(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, resp)
}

func (h *AuthHandler) VerifyTOTP(c *gin.Context) {
	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.VerifyTOTP(c.Request.Context(), middleware.GetUserID(c), req.Code); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "2FA enabled")
}

func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Auth.DisableTOTP(c.Request.Context(), middleware.GetUserID(c), req.Code); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "2FA disabled")
}
