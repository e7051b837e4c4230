package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/rawrecordscount/internal/config"
	"github.com/noah-isme/rawrecordscount/internal/database"
	"github.com/noah-isme/rawrecordscount/internal/export"
	"github.com/noah-isme/rawrecordscount/internal/handler"
	"github.com/noah-isme/rawrecordscount/internal/i18n"
	"github.com/noah-isme/rawrecordscount/internal/middleware"
	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
	"github.com/noah-isme/rawrecordscount/internal/router"
	"github.com/noah-isme/rawrecordscount/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, group selection will not be remembered")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	locales, err := i18n.NewManager(cfg.DefaultLanguage)
	if err != nil {
		log.Fatalf("failed to load language bundles: %v", err)
	}

	html, err := export.NewHTMLRenderer(export.HTMLOptions{
		PictureBaseURL:    cfg.PictureBaseURL,
		DefaultPictureURL: cfg.DefaultPictureURL,
	})
	if err != nil {
		log.Fatalf("failed to prepare html renderer: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	enrolmentRepo := repository.NewEnrolmentRepository(db)
	capabilityRepo := repository.NewCapabilityRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	logRepo := repository.NewLogRepository(db)
	reportRepo := repository.NewReportRepository(db)

	accessService := service.NewAccessService(courseRepo, enrolmentRepo, capabilityRepo, logger)
	groupService := service.NewGroupService(groupRepo, accessService, redisClient, cfg.GroupSessionTTL, logger)
	auditService := service.NewAuditService(logRepo, logger)
	reportService := service.NewReportService(
		accessService,
		groupService,
		auditService,
		capabilityRepo,
		reportRepo,
		export.NewDispatcher(html),
		logger,
	)

	reportHandler := handler.NewReportHandler(reportService, locales, handler.NewValidator(), logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ReportHandler: reportHandler,
		DB:            sqlDB,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
