package handlers

import (
	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
)

// BudgetHandler serves /api/users/budgets. Every budget is returned with its
// spend for the current period window.
type BudgetHandler struct {
	Budgets *services.BudgetService
}

func NewBudgetHandler(budgets *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{Budgets: budgets}
}

func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req models.CreateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.Budgets.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	created(c, st)
}

func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	list, err := h.Budgets.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, list)
}

func (h *BudgetHandler) GetBudget(c *gin.Context) {
	st, err := h.Budgets.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, st)
}

func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	var req models.UpdateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.Budgets.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, st)
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	if err := h.Budgets.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "Budget deleted successfully")
}
