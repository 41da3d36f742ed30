package routes

import (
	"net/http"
	"time"

	"github.com/LovationAdmin/trackit-api/handlers"
	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/LovationAdmin/trackit-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// defaultOrigin is the local frontend, used when no origin is configured.
const defaultOrigin = "http://localhost:3000"

// Deps are the process-wide collaborators the API is built from.
type Deps struct {
	Tokens      *utils.TokenManager
	Cipher      *utils.Cipher
	Mailer      *services.EmailService
	Converter   services.Converter
	AdminSecret string
}

// API holds the handlers served under /api plus the services the scheduler
// drives in the background.
type API struct {
	Tokens        *utils.TokenManager
	Auth          *handlers.AuthHandler
	Expenses      *handlers.ExpenseHandler
	Analytics     *handlers.AnalyticsHandler
	Users         *handlers.UserHandler
	Budgets       *handlers.BudgetHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Admin         *handlers.AdminHandler

	NotificationService *services.NotificationService
	BudgetService       *services.BudgetService
}

// NewAPI wires services and handlers over store.
func NewAPI(store *repository.Store, d Deps) *API {
	ws := handlers.NewWSHandler(d.Tokens)
	notifications := services.NewNotificationService(store.Notifications, ws)
	gamification := services.NewGamificationService(store, notifications)
	budgets := services.NewBudgetService(store, notifications, d.Mailer)
	auth := services.NewAuthService(store, d.Tokens, d.Cipher)

	return &API{
		Tokens:    d.Tokens,
		Auth:      handlers.NewAuthHandler(auth),
		Expenses:  handlers.NewExpenseHandler(services.NewExpenseService(store, gamification)),
		Analytics: handlers.NewAnalyticsHandler(services.NewAnalyticsService(store, budgets, d.Converter)),
		Users: &handlers.UserHandler{
			Auth:          auth,
			Users:         services.NewUserService(store),
			Categories:    services.NewCategoryService(store.Categories),
			Gamification:  gamification,
			Notifications: notifications,
		},
		Budgets:       handlers.NewBudgetHandler(budgets),
		Notifications: handlers.NewNotificationHandler(notifications),
		WS:            ws,
		Admin:         handlers.NewAdminHandler(d.AdminSecret, store.Categories),

		NotificationService: notifications,
		BudgetService:       budgets,
	}
}

// NewRouter builds the gin engine with the shared middleware stack.
func NewRouter(api *API, allowedOrigins []string) *gin.Engine {
	handlers.RegisterValidators()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.NoRoute(middleware.NotFound)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": Version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.AuthMiddleware(api.Tokens)
	rg := router.Group("/api")
	{
		SetupAuthRoutes(rg, api.Auth, requireAuth)
		rg.GET("/ws", api.WS.HandleWS)
		SetupAdminRoutes(rg, api.Admin)

		protected := rg.Group("/")
		protected.Use(requireAuth)
		{
			SetupExpenseRoutes(protected, api.Expenses)
			SetupAnalyticsRoutes(protected, api.Analytics)
			SetupUserRoutes(protected, api.Users, api.Budgets, api.Auth)
			SetupNotificationRoutes(protected, api.Notifications)
		}
	}
	return router
}

// SetupAuthRoutes mounts /auth. Register and login are public.
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	auth := rg.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", requireAuth, h.Logout)
	auth.GET("/me", requireAuth, h.Me)
	auth.PUT("/profile", requireAuth, h.UpdateProfile)
}

func SetupExpenseRoutes(rg *gin.RouterGroup, h *handlers.ExpenseHandler) {
	rg.GET("/expenses", h.List)
	rg.POST("/expenses", h.Create)
	rg.POST("/expenses/parse", h.Parse)
	rg.POST("/expenses/categorize", h.Categorize)
	rg.GET("/expenses/:id", h.Get)
	rg.PUT("/expenses/:id", h.Update)
	rg.DELETE("/expenses/:id", h.Delete)
}

func SetupAnalyticsRoutes(rg *gin.RouterGroup, h *handlers.AnalyticsHandler) {
	rg.GET("/analytics/spending", h.Spending)
	rg.GET("/analytics/budgets", h.Budgets)
	rg.GET("/analytics/locations", h.Locations)
	rg.GET("/analytics/predictions", h.Predictions)
	rg.GET("/analytics/insights", h.Insights)
}

func SetupUserRoutes(rg *gin.RouterGroup, h *handlers.UserHandler, budgets *handlers.BudgetHandler, auth *handlers.AuthHandler) {
	rg.GET("/users/profile", h.GetProfile)
	rg.PUT("/users/profile", h.UpdateProfile)

	rg.GET("/users/categories", h.ListCategories)
	rg.POST("/users/categories", h.CreateCategory)
	rg.GET("/users/categories/:id", h.GetCategory)
	rg.PUT("/users/categories/:id", h.UpdateCategory)
	rg.DELETE("/users/categories/:id", h.DeleteCategory)

	rg.GET("/users/budgets", budgets.GetBudgets)
	rg.POST("/users/budgets", budgets.CreateBudget)
	rg.GET("/users/budgets/:id", budgets.GetBudget)
	rg.PUT("/users/budgets/:id", budgets.UpdateBudget)
	rg.DELETE("/users/budgets/:id", budgets.DeleteBudget)

	rg.GET("/users/achievements", h.Achievements)
	rg.GET("/users/notifications", h.ListNotifications)
	rg.GET("/users/export", h.ExportUserData)

	rg.POST("/users/2fa/setup", auth.SetupTOTP)
	rg.POST("/users/2fa/verify", auth.VerifyTOTP)
	rg.POST("/users/2fa/disable", auth.DisableTOTP)
}

func SetupNotificationRoutes(rg *gin.RouterGroup, h *handlers.NotificationHandler) {
	rg.GET("/notifications", h.List)
	rg.POST("/notifications", h.Create)
	rg.GET("/notifications/unread", h.Unread)
	rg.PUT("/notifications/read-all", h.MarkAllRead)
	rg.PUT("/notifications/:id/read", h.MarkRead)
	rg.DELETE("/notifications/:id", h.Delete)
}

// SetupAdminRoutes mounts maintenance endpoints guarded by X-Admin-Secret.
func SetupAdminRoutes(rg *gin.RouterGroup, h *handlers.AdminHandler) {
	rg.POST("/admin/recompute-spent", h.RecomputeSpent)
}
