// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/finlead/membership-backend/internal/api/handlers"
	"github.com/finlead/membership-backend/internal/api/middleware"
	"github.com/finlead/membership-backend/internal/billing"
	"github.com/finlead/membership-backend/internal/clock"
	"github.com/finlead/membership-backend/internal/config"
	"github.com/finlead/membership-backend/internal/cron"
	"github.com/finlead/membership-backend/internal/db"
	"github.com/finlead/membership-backend/internal/email"
	"github.com/finlead/membership-backend/internal/identity"
	"github.com/finlead/membership-backend/internal/notification"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/seed"
	"github.com/finlead/membership-backend/internal/service"
	"github.com/finlead/membership-backend/internal/socket"
	"github.com/finlead/membership-backend/internal/types"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	// ============================================
	// Set Gin mode
	// ============================================
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	ctx := context.Background()

	pgPool, err := db.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()

	// ============================================
	// Initialize Repositories
	// ============================================
	repos := repository.NewPgRepositories(pgPool)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("⚡ Redis cache enabled")
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	var emailSvc *email.Service
	if cfg.SMTPHost != "" {
		emailSvc = email.NewService(&email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		})
		log.Println("📧 Email service initialized")
	} else {
		log.Println("⚠️  Email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize External Providers
	// ============================================
	var billingProvider billing.Provider = billing.NoopProvider{}
	if cfg.BillingBaseURL != "" {
		billingProvider = billing.NewHTTPProvider(cfg.BillingBaseURL, cfg.BillingAPIKey)
		log.Println("💳 Billing provider configured")
	} else {
		log.Println("⚠️  Billing provider not configured (noop mode)")
	}

	var identityProvider identity.Provider = identity.NoopProvider{}
	if cfg.IdentityBaseURL != "" {
		identityProvider = identity.NewHTTPProvider(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
		log.Println("🔑 Identity provider configured")
	} else {
		log.Println("⚠️  Identity provider not configured (noop mode)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)

	wsHandler := socket.NewHandler(hub, cfg.JWTSecret)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.Environment != "production" {
		log.Println("🌱 Seeding development data...")
		seed.SeedData(repos)
	}

	// ============================================
	// Initialize Notification Service
	// ============================================
	notificationSvc := notification.NewService(repos.NotificationRepo, repos.MemberRepo)
	notificationSvc.SetBroadcaster(broadcaster)
	if emailSvc != nil {
		notificationSvc.SetEmailService(emailSvc, cfg.FrontendURL)
	}

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Clock:       clock.System{},
		Billing:     billingProvider,
		Identity:    identityProvider,
		NotifSvc:    notificationSvc,
		Cache:       redisDB,
		Broadcaster: broadcaster,
	})
	log.Println("✨ All services initialized")

	// ============================================
	// Initialize Handlers
	// ============================================
	h := handlers.NewHandlers(services)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(services)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.Default()

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"cache":      getCacheStatus(redisDB),
			"websocket":  "active",
			"ws_clients": hub.GetConnectedClientsCount(),
			"email":      getEmailStatus(emailSvc),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Payment provider webhook
		api.POST("/webhooks/payment-events", h.Membership.PaymentEvent)

		// Reconciliation jobs (scheduler secret, not member auth)
		jobs := api.Group("/jobs")
		jobs.Use(middleware.CronAuthMiddleware(cfg.CronSecret))
		{
			jobs.POST("/auto-resume", h.Job.RunAutoResume)
			jobs.POST("/auto-demotion", h.Job.RunAutoDemotion)
		}

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))

		// Managers double as staff: member-scoped routes allow the member
		// themselves or a manager, admin routes allow managers only.
		managerOnly := middleware.RequireRole(types.RoleManager)
		selfOrManager := middleware.RequireSelfOrRole(types.RoleManager)
		{
			// Member routes
			members := protected.Group("/members")
			{
				members.GET("/me", h.Member.GetCurrentMember)
				members.GET("", managerOnly, h.Member.List)
				members.GET("/:id", selfOrManager, h.Member.Get)
				members.GET("/:id/status-history", selfOrManager, h.Member.StatusHistory)
				members.GET("/:id/role-history", selfOrManager, h.Member.RoleHistory)

				// Lifecycle transitions
				members.POST("/:id/suspension", selfOrManager, h.Membership.RequestSuspension)
				members.DELETE("/:id/suspension", selfOrManager, h.Membership.ResumeSuspension)
				members.POST("/:id/cancellation", selfOrManager, h.Membership.RequestCancellation)
				members.POST("/:id/delinquency", managerOnly, h.Membership.MarkDelinquent)

				// Eligibility
				members.GET("/:id/eligibility/:role", selfOrManager, h.Eligibility.Evaluate)

				// Activity records feeding the evaluator
				members.POST("/:id/sales", selfOrManager, h.Member.RecordSale)
				members.POST("/:id/referrals", selfOrManager, h.Member.RecordReferral)
				members.PATCH("/:id/milestones", managerOnly, h.Member.SetMilestones)

				// Compensation
				members.GET("/:id/compensations", selfOrManager, h.Compensation.ListForMember)
				members.GET("/:id/compensations/:month", selfOrManager, h.Compensation.GetMonth)
				members.PUT("/:id/compensations/:month", managerOnly, h.Compensation.Upsert)
			}

			// Promotion routes
			promotions := protected.Group("/promotions")
			{
				promotions.POST("", h.Promotion.Submit)
				promotions.GET("/mine", h.Promotion.MyPending)
				promotions.GET("/pending", managerOnly, h.Promotion.ListPending)
				promotions.POST("/:id/review", managerOnly, h.Promotion.Review)
			}

			// Onboarding checklist
			protected.GET("/onboarding", h.Promotion.OnboardingStatus)
			protected.POST("/onboarding/:step", h.Promotion.CompleteOnboardingStep)

			// Meeting cycles
			meetings := protected.Group("/meeting-cycles")
			{
				meetings.GET("/:cycle/attendance", h.Meeting.ListByCycle)
				meetings.POST("/:cycle/attendance/intent", h.Meeting.DeclareIntent)
				meetings.POST("/:cycle/attendance/complete", h.Meeting.MarkCompleted)
				meetings.POST("/:cycle/attendance/:memberId/finalize", managerOnly, h.Meeting.Finalize)
			}

			// Compensation lock (admin)
			protected.PATCH("/compensations/:compId/lock", managerOnly, h.Compensation.SetLocked)

			// Mentoring
			mentoring := protected.Group("/mentoring-requests")
			{
				mentoring.POST("", h.Member.CreateMentoringRequest)
				mentoring.GET("/mine", h.Member.ListMentoringRequests)
			}

			// Admin stats
			protected.GET("/admin/promotion-stats", managerOnly, h.Promotion.Stats)

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
			}
		}
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}

func getEmailStatus(emailSvc *email.Service) string {
	if emailSvc != nil {
		return "configured"
	}
	return "disabled"
}
