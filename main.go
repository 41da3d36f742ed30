package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/trackit-api/config"
	"github.com/LovationAdmin/trackit-api/rates"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/repository/memory"
	"github.com/LovationAdmin/trackit-api/repository/postgres"
	"github.com/LovationAdmin/trackit-api/routes"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/LovationAdmin/trackit-api/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Logger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.Environment, cfg.LogLevel)
	utils.LogStartup("trackit-api", routes.Version, cfg.Port)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	if err != nil {
		utils.Logger.Fatalf("Invalid encryption key: %v", err)
	}
	if cfg.UsesDevKey() {
		utils.SafeWarn("DATA_ENCRYPTION_KEY not set, using the development key")
	}

	mailer := services.NewEmailService(cfg.SMTP, cfg.FrontendURL)
	if !mailer.Enabled() {
		utils.SafeInfo("📭 SMTP not configured, budget alerts stay in-app")
	}

	// Taux de change : désactivés sans RATES_URL
	deps := routes.Deps{
		Tokens:      utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Cipher:      cipher,
		Mailer:      mailer,
		AdminSecret: cfg.AdminSecret,
	}
	var refresher services.RateRefresher
	if cfg.RatesURL != "" {
		cache := rates.NewCache(rates.NewClient(cfg.RatesURL))
		deps.Converter = cache
		refresher = cache
	}

	api := routes.NewAPI(store, deps)
	router := routes.NewRouter(api, cfg.AllowedOrigins)

	scheduler := services.NewScheduler(api.NotificationService, api.BudgetService, refresher)
	if err := scheduler.Start(); err != nil {
		utils.Logger.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.SafeInfo("🚀 Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.SafeInfo("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = api.WS.Close()
	if err := srv.Shutdown(ctx); err != nil {
		utils.SafeError("Server shutdown: %v", err)
	}
	scheduler.Stop(ctx)
}

func openStore(cfg *config.Config) (*repository.Store, func()) {
	if cfg.StorageDriver == "memory" {
		utils.SafeWarn("STORAGE_DRIVER=memory: data is lost on restart")
		return memory.New(), func() {}
	}

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		utils.Logger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.SafeInfo("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		utils.Logger.Fatalf("Failed to run migrations: %v", err)
	}
	return postgres.New(db), func() { _ = db.Close() }
}
