package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/repository/memory"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const adminSecret = "let-me-in"

type response struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Errors     []models.FieldError `json:"errors"`
	Message    string              `json:"message"`
	Pagination *models.Pagination  `json:"pagination"`
}

type APISuite struct {
	suite.Suite
	store  *repository.Store
	api    *API
	router *gin.Engine
	token  string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *APISuite) SetupTest() {
	cipher, err := utils.NewCipher("0123456789abcdef0123456789abcdef")
	s.Require().NoError(err)

	s.store = memory.New()
	s.api = NewAPI(s.store, Deps{
		Tokens:      utils.NewTokenManager("test-secret", time.Hour),
		Cipher:      cipher,
		AdminSecret: adminSecret,
	})
	s.router = NewRouter(s.api, []string{"http://localhost:3000"})

	status, res := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada Lovelace", "email": "Ada@Example.com", "password": "secret123",
	})
	s.Require().Equal(http.StatusCreated, status, res.Message)
	var auth models.AuthResponse
	s.decode(res, &auth)
	s.token = auth.Token
}

func (s *APISuite) TearDownTest() {
	_ = s.api.WS.Close()
}

func (s *APISuite) do(method, path, token string, body any) (int, response) {
	status, res, _ := s.doWithHeaders(method, path, token, body, nil)
	return status, res
}

func (s *APISuite) doWithHeaders(method, path, token string, body any, headers map[string]string) (int, response, http.Header) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var res response
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res, w.Header()
}

func (s *APISuite) decode(res response, dst any) {
	s.Require().NoError(json.Unmarshal(res.Data, dst))
}

func (s *APISuite) categoryID(name string) string {
	_, res := s.do(http.MethodGet, "/api/users/categories", s.token, nil)
	var list []models.Category
	s.decode(res, &list)
	for _, c := range list {
		if c.Name == name {
			return c.ID
		}
	}
	s.FailNow("category not seeded", name)
	return ""
}

func (s *APISuite) createExpense(category, amount string) models.Expense {
	status, res := s.do(http.MethodPost, "/api/expenses", s.token, map[string]any{
		"amount": json.Number(amount), "description": "test expense", "category_id": s.categoryID(category),
	})
	s.Require().Equal(http.StatusCreated, status, res.Message)
	var e models.Expense
	s.decode(res, &e)
	return e
}

func (s *APISuite) spent(category string) decimal.Decimal {
	_, res := s.do(http.MethodGet, "/api/users/categories/"+s.categoryID(category), s.token, nil)
	var c models.Category
	s.decode(res, &c)
	return c.Spent
}

// ============================================================================
// AUTH
// ============================================================================

func (s *APISuite) TestRegisterSeedsCategoriesAndRejectsDuplicates() {
	_, res := s.do(http.MethodGet, "/api/users/categories", s.token, nil)
	var list []models.Category
	s.decode(res, &list)
	s.Len(list, 9)

	status, res := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada again", "email": "ada@example.com", "password": "secret123",
	})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("User with this email already exists", res.Message)
}

func (s *APISuite) TestRegisterValidation() {
	status, res := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "A", "email": "not-an-email", "password": "123",
	})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Validation failed", res.Message)

	fields := map[string]bool{}
	for _, fe := range res.Errors {
		fields[fe.Field] = true
	}
	s.Equal(map[string]bool{"name": true, "email": true, "password": true}, fields)
}

func (s *APISuite) TestLoginAndMe() {
	status, res := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "wrong-password",
	})
	s.Equal(http.StatusUnauthorized, status)
	s.False(res.Success)

	status, res = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ADA@example.com", "password": "secret123",
	})
	s.Require().Equal(http.StatusOK, status)
	var auth models.AuthResponse
	s.decode(res, &auth)

	status, res = s.do(http.MethodGet, "/api/auth/me", auth.Token, nil)
	s.Require().Equal(http.StatusOK, status)
	var me models.User
	s.decode(res, &me)
	s.Equal("ada@example.com", me.Email)
	s.Equal(1, me.Level)

	status, res = s.do(http.MethodPost, "/api/auth/logout", auth.Token, nil)
	s.Equal(http.StatusOK, status)
	s.Equal("Logged out successfully", res.Message)
}

func (s *APISuite) TestProtectedRoutesNeedToken() {
	status, res := s.do(http.MethodGet, "/api/expenses", "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Authorization header required", res.Message)

	status, _ = s.do(http.MethodGet, "/api/expenses", "garbage", nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *APISuite) TestProfileUpdate() {
	status, res := s.do(http.MethodPut, "/api/users/profile", s.token, map[string]any{
		"name": "Countess Ada",
	})
	s.Require().Equal(http.StatusOK, status, res.Message)
	var u models.User
	s.decode(res, &u)
	s.Equal("Countess Ada", u.Name)
}

// ============================================================================
// EXPENSES
// ============================================================================

func (s *APISuite) TestExpenseLifecycleKeepsSpentInSync() {
	e := s.createExpense("food", "12.50")
	s.Require().NotNil(e.Category)
	s.Equal("food", e.Category.Name)
	s.Equal("USD", e.Currency)
	s.True(decimal.RequireFromString("12.5").Equal(s.spent("food")))

	status, res := s.do(http.MethodPut, "/api/expenses/"+e.ID, s.token, map[string]any{
		"amount": 20, "category_id": s.categoryID("coffee"),
	})
	s.Require().Equal(http.StatusOK, status, res.Message)
	s.True(s.spent("food").IsZero())
	s.True(decimal.NewFromInt(20).Equal(s.spent("coffee")))

	status, _ = s.do(http.MethodDelete, "/api/expenses/"+e.ID, s.token, nil)
	s.Equal(http.StatusOK, status)
	s.True(s.spent("coffee").IsZero())

	status, res = s.do(http.MethodGet, "/api/expenses/"+e.ID, s.token, nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal("Resource not found", res.Message)
}

func (s *APISuite) TestCreateExpenseRejectsForeignCategory() {
	status, res := s.do(http.MethodPost, "/api/expenses", s.token, map[string]any{
		"amount": 5, "description": "mystery", "category_id": "not-mine",
	})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Category not found", res.Message)

	status, res = s.do(http.MethodPost, "/api/expenses", s.token, map[string]any{
		"amount": -5, "description": "negative", "category_id": s.categoryID("food"),
	})
	s.Equal(http.StatusBadRequest, status)
	s.Require().NotEmpty(res.Errors)
	s.Equal("amount", res.Errors[0].Field)
}

func (s *APISuite) TestListExpensesPaginates() {
	for i := 0; i < 3; i++ {
		s.createExpense("food", "10")
	}
	s.createExpense("coffee", "4")

	status, res := s.do(http.MethodGet, "/api/expenses?limit=2&page=2", s.token, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Require().NotNil(res.Pagination)
	s.Equal(models.Pagination{Page: 2, Limit: 2, Total: 4, TotalPages: 2}, *res.Pagination)

	_, res = s.do(http.MethodGet, "/api/expenses?category="+s.categoryID("coffee"), s.token, nil)
	var list []models.Expense
	s.decode(res, &list)
	s.Len(list, 1)

	_, res = s.do(http.MethodGet, "/api/expenses?minAmount=5&maxAmount=10", s.token, nil)
	s.decode(res, &list)
	s.Len(list, 3)

	status, res = s.do(http.MethodGet, "/api/expenses?limit=500&startDate=yesterday", s.token, nil)
	s.Equal(http.StatusBadRequest, status)
	s.Len(res.Errors, 2)

	status, res = s.do(http.MethodGet, "/api/expenses?page=9223372036854775807&limit=20", s.token, nil)
	s.Equal(http.StatusBadRequest, status)
	s.Require().Len(res.Errors, 1)
	s.Equal("page", res.Errors[0].Field)
}

func (s *APISuite) TestParseExpense() {
	status, res := s.do(http.MethodPost, "/api/expenses/parse", s.token, map[string]any{
		"text": "Spent $12.50 on coffee this morning",
	})
	s.Require().Equal(http.StatusOK, status, res.Message)
	var preview struct {
		Parsed struct {
			Category string `json:"category"`
			Currency string `json:"currency"`
		} `json:"parsed"`
		Expense *models.Expense `json:"expense"`
	}
	s.decode(res, &preview)
	s.Equal("coffee", preview.Parsed.Category)
	s.Equal("USD", preview.Parsed.Currency)
	s.Nil(preview.Expense)

	status, res = s.do(http.MethodPost, "/api/expenses/parse", s.token, map[string]any{
		"text": "taxi home 18", "create": true,
	})
	s.Require().Equal(http.StatusCreated, status, res.Message)
	s.decode(res, &preview)
	s.Require().NotNil(preview.Expense)
	s.Equal(s.categoryID("transport"), preview.Expense.CategoryID)
	s.True(decimal.NewFromInt(18).Equal(s.spent("transport")))

	status, res = s.do(http.MethodPost, "/api/expenses/parse", s.token, map[string]any{
		"text": "no numbers here",
	})
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Could not detect expense amount", res.Message)
}

func (s *APISuite) TestCategorizeLabel() {
	status, res := s.do(http.MethodPost, "/api/expenses/categorize", s.token, map[string]any{
		"label": "CB UBER EATS PARIS 12/03",
	})
	s.Require().Equal(http.StatusOK, status)
	var got models.CategorizeResponse
	s.decode(res, &got)
	s.Equal("food", got.Category)
	s.Equal("merchant", got.Source)

	_, res = s.do(http.MethodPost, "/api/expenses/categorize", s.token, map[string]any{"label": "VIR SEPA 0042"})
	s.decode(res, &got)
	s.Equal("other", got.Category)
	s.Equal("fallback", got.Source)
}

// ============================================================================
// BUDGETS & ANALYTICS
// ============================================================================

func (s *APISuite) TestBudgetStatusThroughAnalytics() {
	status, res := s.do(http.MethodPost, "/api/users/budgets", s.token, map[string]any{
		"name": "Eating out", "amount": 20, "period": "monthly",
		"category_ids": []string{s.categoryID("food")},
	})
	s.Require().Equal(http.StatusCreated, status, res.Message)
	var created models.BudgetStatus
	s.decode(res, &created)

	s.createExpense("food", "18.50")
	s.createExpense("coffee", "3")

	_, res = s.do(http.MethodGet, "/api/analytics/budgets", s.token, nil)
	var budgets []models.BudgetStatus
	s.decode(res, &budgets)
	s.Require().Len(budgets, 1)
	s.Equal(created.ID, budgets[0].ID)
	s.Equal(92.5, budgets[0].SpentPercentage)
	s.Equal("critical", budgets[0].Status)
	s.True(decimal.RequireFromString("1.5").Equal(budgets[0].Remaining))

	status, _ = s.do(http.MethodDelete, "/api/users/budgets/"+created.ID, s.token, nil)
	s.Equal(http.StatusOK, status)
	status, _ = s.do(http.MethodGet, "/api/users/budgets/"+created.ID, s.token, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *APISuite) TestSpendingAnalytics() {
	s.createExpense("food", "30")
	s.createExpense("coffee", "15")

	status, res := s.do(http.MethodGet, "/api/analytics/spending?groupBy=category", s.token, nil)
	s.Require().Equal(http.StatusOK, status, res.Message)
	var sa models.SpendingAnalytics
	s.decode(res, &sa)
	s.True(decimal.NewFromInt(45).Equal(sa.TotalSpent))
	s.True(decimal.RequireFromString("1.5").Equal(sa.AverageDaily))
	s.Require().Len(sa.CategorySpending, 2)
	s.Equal("food", sa.CategorySpending[0].Category.Name)

	status, res = s.do(http.MethodGet, "/api/analytics/spending?groupBy=hour", s.token, nil)
	s.Equal(http.StatusBadRequest, status)
	s.Equal("groupBy", res.Errors[0].Field)

	for _, path := range []string{"locations", "predictions", "insights"} {
		status, res = s.do(http.MethodGet, "/api/analytics/"+path, s.token, nil)
		s.Equal(http.StatusOK, status, path)
		s.True(res.Success, path)
	}
}

func (s *APISuite) TestAchievementsUnlockOnFirstExpense() {
	s.createExpense("food", "9")

	_, res := s.do(http.MethodGet, "/api/users/achievements", s.token, nil)
	var list []models.Achievement
	s.decode(res, &list)
	s.Require().Len(list, 1)
	s.Equal("first_expense", list[0].Key)

	_, res = s.do(http.MethodGet, "/api/users/notifications", s.token, nil)
	var notes []models.Notification
	s.decode(res, &notes)
	s.Require().Len(notes, 1)
	s.Equal(models.NotificationAchievement, notes[0].Type)
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

func (s *APISuite) TestNotifications() {
	status, res := s.do(http.MethodPost, "/api/notifications", s.token, map[string]any{
		"type": "reminder", "title": "Log lunch", "message": "Did you eat out today?",
	})
	s.Require().Equal(http.StatusCreated, status, res.Message)
	var n models.Notification
	s.decode(res, &n)

	_, res = s.do(http.MethodGet, "/api/notifications/unread", s.token, nil)
	s.JSONEq(`{"count":1}`, string(res.Data))

	status, _ = s.do(http.MethodPut, "/api/notifications/"+n.ID+"/read", s.token, nil)
	s.Equal(http.StatusOK, status)
	_, res = s.do(http.MethodGet, "/api/notifications/unread", s.token, nil)
	s.JSONEq(`{"count":0}`, string(res.Data))

	status, _ = s.do(http.MethodPut, "/api/notifications/read-all", s.token, nil)
	s.Equal(http.StatusOK, status)

	status, _ = s.do(http.MethodDelete, "/api/notifications/"+n.ID, s.token, nil)
	s.Equal(http.StatusOK, status)
	status, _ = s.do(http.MethodDelete, "/api/notifications/"+n.ID, s.token, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *APISuite) TestWebSocketReceivesNotifications() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+"bogus", nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+s.token, nil)
	s.Require().NoError(err)
	defer conn.Close()
	s.Require().Eventually(func() bool { return s.api.WS.M.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := s.do(http.MethodPost, "/api/notifications", s.token, map[string]any{
		"type": "insight", "title": "Heads up", "message": "Coffee spend is up",
	})
	s.Require().Equal(http.StatusCreated, status)

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var msg struct {
		Type string              `json:"type"`
		Data models.Notification `json:"data"`
	}
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("notification", msg.Type)
	s.Equal("Heads up", msg.Data.Title)
}

// ============================================================================
// EXPORT, ADMIN, MISC
// ============================================================================

func (s *APISuite) TestExport() {
	s.createExpense("food", "9")

	status, res, headers := s.doWithHeaders(http.MethodGet, "/api/users/export", s.token, nil, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Contains(headers.Get("Content-Disposition"), "trackit-export-")

	var export models.UserExport
	s.decode(res, &export)
	s.Equal("ada@example.com", export.User.Email)
	s.Len(export.Expenses, 1)
	s.Len(export.Categories, 9)
	s.NotNil(export.Budgets)
}

func (s *APISuite) TestAdminRecomputeSpent() {
	status, res := s.do(http.MethodPost, "/api/admin/recompute-spent", "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Invalid admin secret", res.Message)

	status, res, _ = s.doWithHeaders(http.MethodPost, "/api/admin/recompute-spent", "", nil,
		map[string]string{"X-Admin-Secret": adminSecret})
	s.Require().Equal(http.StatusOK, status, res.Message)
	s.Contains(string(res.Data), `"job":"recompute_spent"`)
}

func (s *APISuite) TestHealthAndUnknownRoutes() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"healthy"`)

	status, res := s.do(http.MethodGet, "/api/nope", s.token, nil)
	s.Equal(http.StatusNotFound, status)
	s.False(res.Success)
}

func TestNewRouterRegistersValidatorsOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := NewAPI(memory.New(), Deps{Tokens: utils.NewTokenManager("x", time.Minute)})
	defer api.WS.Close()
	var router *gin.Engine
	require.NotPanics(t, func() {
		NewRouter(api, nil)
		router = NewRouter(api, nil)
	})

	// Sans origine configurée, le frontend local reste autorisé
	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
