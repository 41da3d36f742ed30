package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = 1_000_000 // (page-1)*limit ne doit jamais déborder
)

type ExpenseHandler struct {
	Expenses *services.ExpenseService
}

func NewExpenseHandler(expenses *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{Expenses: expenses}
}

// parseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// queryDate reads an optional date parameter. Malformed values are collected
// in invalid.
func queryDate(c *gin.Context, key string, invalid *[]models.FieldError) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		*invalid = append(*invalid, models.FieldError{Field: key, Message: "must be a date (YYYY-MM-DD or RFC3339)"})
		return nil
	}
	return &t
}

func queryDecimal(c *gin.Context, key string, invalid *[]models.FieldError) *decimal.Decimal {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		*invalid = append(*invalid, models.FieldError{Field: key, Message: "must be a number"})
		return nil
	}
	return &d
}

func queryInt(c *gin.Context, key string, def, min, max int, invalid *[]models.FieldError) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || (max > 0 && n > max) {
		msg := "must be an integer ≥ " + strconv.Itoa(min)
		if max > 0 {
			msg = "must be an integer between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)
		}
		*invalid = append(*invalid, models.FieldError{Field: key, Message: msg})
		return def
	}
	return n
}

// List
// GET /api/expenses?page&limit&category&startDate&endDate&minAmount&maxAmount
func (h *ExpenseHandler) List(c *gin.Context) {
	var invalid []models.FieldError
	filter := models.ExpenseFilter{
		CategoryID: c.Query("category"),
		Page:       queryInt(c, "page", 1, 1, maxPage, &invalid),
		Limit:      queryInt(c, "limit", defaultPageLimit, 1, maxPageLimit, &invalid),
		StartDate:  queryDate(c, "startDate", &invalid),
		EndDate:    queryDate(c, "endDate", &invalid),
		MinAmount:  queryDecimal(c, "minAmount", &invalid),
		MaxAmount:  queryDecimal(c, "maxAmount", &invalid),
	}
	if len(invalid) > 0 {
		validationFailed(c, invalid)
		return
	}

	list, page, err := h.Expenses.List(c.Request.Context(), middleware.GetUserID(c), filter)
	if err != nil {
		serviceError(c, err)
		return
	}
	paginated(c, list, page)
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	e, err := h.Expenses.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, e)
}

// Create
// POST /api/expenses
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req models.CreateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Expenses.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	created(c, e)
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	var req models.UpdateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Expenses.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, e)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	if err := h.Expenses.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "Expense deleted successfully")
}

// Parse turns free text into an expense, storing it when create is set.
// POST /api/expenses/parse
func (h *ExpenseHandler) Parse(c *gin.Context) {
	var req models.ParseExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Expenses.Parse(c.Request.Context(), middleware.GetUserID(c), req.Text, req.Create)
	if err != nil {
		serviceError(c, err)
		return
	}
	status := http.StatusOK
	if res.Expense != nil {
		status = http.StatusCreated
	}
	success(c, status, res)
}
