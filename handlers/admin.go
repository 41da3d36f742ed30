// handlers/admin.go
package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/LovationAdmin/trackit-api/migration"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes maintenance jobs behind a shared secret sent in the
// X-Admin-Secret header.
type AdminHandler struct {
	Secret     string
	Categories repository.CategoryRepository
}

func NewAdminHandler(secret string, categories repository.CategoryRepository) *AdminHandler {
	return &AdminHandler{Secret: secret, Categories: categories}
}

func (h *AdminHandler) authorized(c *gin.Context) bool {
	if h.Secret == "" {
		fail(c, http.StatusServiceUnavailable, "ADMIN_SECRET not configured")
		return false
	}
	given := c.GetHeader("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.Secret)) != 1 {
		utils.SafeWarn("Admin call rejected from %s", c.ClientIP())
		fail(c, http.StatusUnauthorized, "Invalid admin secret")
		return false
	}
	return true
}

// RecomputeSpent rebuilds every category's spent total from its expenses.
// POST /api/admin/recompute-spent
func (h *AdminHandler) RecomputeSpent(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	res, err := migration.RecomputeCategorySpent(c.Request.Context(), h.Categories)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, res)
}
