// handlers/user.go

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Categories    *services.CategoryService
	Gamification  *services.GamificationService
	Notifications *services.NotificationService
}

// ============================================================================
// PROFILE MANAGEMENT
// ============================================================================

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, u)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
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
// CATEGORIES
// ============================================================================

func (h *UserHandler) ListCategories(c *gin.Context) {
	list, err := h.Categories.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, list)
}

func (h *UserHandler) GetCategory(c *gin.Context) {
	cat, err := h.Categories.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, cat)
}

func (h *UserHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.Categories.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	created(c, cat)
}

func (h *UserHandler) UpdateCategory(c *gin.Context) {
	var req models.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.Categories.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, cat)
}

func (h *UserHandler) DeleteCategory(c *gin.Context) {
	if err := h.Categories.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "Category deleted successfully")
}

// ============================================================================
// ACHIEVEMENTS & NOTIFICATIONS
// ============================================================================

func (h *UserHandler) Achievements(c *gin.Context) {
	list, err := h.Gamification.Achievements(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, list)
}

func (h *UserHandler) ListNotifications(c *gin.Context) {
	list, err := h.Notifications.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, list)
}

// ============================================================================
// EXPORT RGPD
// ============================================================================

// ExportUserData sends every stored record of the user as a JSON attachment.
// GET /api/users/export
func (h *UserHandler) ExportUserData(c *gin.Context) {
	userID := middleware.GetUserID(c)
	export, err := h.Users.Export(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SafeInfo("Data export for user %s", userID)
	filename := fmt.Sprintf("trackit-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	success(c, http.StatusOK, export)
}
