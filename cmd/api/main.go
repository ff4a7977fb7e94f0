package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "csrhub/api/swagger" // swagger docs
	"csrhub/internal/config"
	"csrhub/internal/database"
	"csrhub/internal/handler"
	"csrhub/internal/logger"
	"csrhub/internal/mailer"
	"csrhub/internal/middleware"
	"csrhub/internal/repository"
	"csrhub/internal/scheduler"
	"csrhub/internal/service"
	"csrhub/internal/storage"
	"csrhub/internal/upload"
	"csrhub/internal/websocket"
)

// @title           CSR Hub API
// @version         1.0
// @description     Milestone-gated CSR funding: tranche releases, compliance documents and NGO trust scores.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database.GetDatabaseURL(), log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL successfully")

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Object storage setup failed", zap.Error(err))
	}
	mail, err := mailer.New(ctx, cfg.Mail)
	if err != nil {
		log.Fatal("Mailer setup failed", zap.Error(err))
	}
	pool, err := ants.NewPool(cfg.Worker.PoolSize)
	if err != nil {
		log.Fatal("Worker pool setup failed", zap.Error(err))
	}
	defer pool.Release()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	tm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	ngoRepo := repository.NewNGORepository(db)
	corporateRepo := repository.NewCorporateRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	trancheRepo := repository.NewTrancheRepository(db)
	docRepo := repository.NewComplianceDocRepository(db)
	uploadRepo := repository.NewDocumentUploadRepository(db)
	requestRepo := repository.NewDocumentRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	timelineRepo := repository.NewFundingTimelineRepository(db)

	parties := service.NewParties(ngoRepo, corporateRepo)
	validator := upload.NewValidator(cfg.Upload)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, wsHub, mail, pool, log)
	userService := service.NewUserService(tm, userRepo, ngoRepo, corporateRepo, auditRepo, cfg.Auth, log)
	projectService := service.NewProjectService(tm, projectRepo, trancheRepo, donationRepo, auditRepo, parties, notificationService, log)
	trancheService := service.NewTrancheService(tm, trancheRepo, projectRepo, uploadRepo, auditRepo, parties, notificationService, store, validator, log)
	complianceService := service.NewComplianceService(tm, projectRepo, docRepo, requestRepo, uploadRepo, auditRepo, parties, notificationService, store, validator, log)
	requestService := service.NewDocumentRequestService(tm, requestRepo, docRepo, projectRepo, uploadRepo, auditRepo, parties, notificationService, store, validator, log)
	ngoService := service.NewNGOService(tm, ngoRepo, projectRepo, docRepo, notificationRepo, auditRepo, parties, notificationService, cfg.Compliance.ExpiryThreshold(), log)
	messageService := service.NewMessageService(tm, messageRepo, projectRepo, parties, notificationService, wsHub, log)
	statisticsService := service.NewStatisticsService(statisticsRepo, parties)
	timelineService := service.NewFundingTimelineService(timelineRepo, parties)
	auditService := service.NewAuditService(auditRepo)

	authn := middleware.NewAuthenticator(cfg.Auth, cfg.Server.Mode)

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, authn, cfg.Server.Mode != gin.ReleaseMode),
		handler.NewProjectHandler(projectService, trancheService, authn),
		handler.NewTrancheHandler(trancheService, authn),
		handler.NewComplianceHandler(complianceService, authn),
		handler.NewDocumentRequestHandler(requestService, authn),
		handler.NewNGOHandler(ngoService, authn),
		handler.NewNotificationHandler(notificationService, authn),
		handler.NewMessageHandler(messageService, authn),
		handler.NewStatisticsHandler(statisticsService, timelineService, authn),
		handler.NewAuditHandler(auditService, authn),
	}

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, authn.Secret())
	})

	if local, ok := store.(*storage.LocalStore); ok {
		router.Static("/files", local.Dir())
	}

	// API Routing
	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.ComplianceSpec, ngoService, log)
		if err != nil {
			log.Fatal("Scheduler setup failed", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Scheduler start failed", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Server listening", zap.String("port", cfg.Server.Port))

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
