package handlers

import (
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/gin-gonic/gin"
)

// Categorize suggests a category for a bank or receipt label. Unknown labels
// fall back to "other" rather than failing.
// POST /api/expenses/categorize
func (h *ExpenseHandler) Categorize(c *gin.Context) {
	var req models.CategorizeRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, h.Expenses.Categorize(req.Label))
}
