package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-admissions/internal/adapters/http/handlers"
	"campus-admissions/internal/adapters/http/middleware"
	"campus-admissions/internal/adapters/http/routes"
	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/config"
	"campus-admissions/internal/core/domain"
	"campus-admissions/internal/core/services"
	"campus-admissions/internal/pkg/filestore"
	"campus-admissions/internal/pkg/logger"
	"campus-admissions/internal/pkg/mailer"
	"campus-admissions/internal/pkg/refcodec"

	"github.com/gofiber/fiber/v2"
)

// @title Campus Admissions API
// @version 1.0
// @description Admissions application intake and review API

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	appLog := logger.New("server", logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		appLog.WithError(err).Fatal("❌ Failed to connect to database")
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		appLog.WithError(err).Fatal("❌ Failed to auto migrate")
	}
	appLog.Info("✅ Database migration completed")

	if err := config.NewSeeder(db).Run(); err != nil {
		appLog.WithError(err).Warn("⚠️ Seeder failed")
	}

	codec, err := refcodec.New(cfg.RefCodec.Secret)
	if err != nil {
		appLog.WithError(err).Fatal("❌ Failed to build reference codec")
	}

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		appLog.WithError(err).Fatal("❌ Failed to prepare upload directory")
	}

	var sender mailer.Sender = mailer.NoopSender{}
	if cfg.MailEnabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	} else {
		appLog.Warn("⚠️ SMTP_HOST not set, applicant emails are disabled")
	}

	dispatcher := services.NewAsyncDispatcher(
		cfg.Workflow.NotifyWorkers,
		cfg.Workflow.NotifyQueueSize,
		cfg.Workflow.NotifyTimeout,
		appLog.Named("dispatcher"),
	)
	dispatcher.Start()

	applicationRepo := repositories.NewApplicationRepository(db)
	userRepo := repositories.NewUserRepository(db)

	policy := domain.PolicyByName(cfg.Workflow.TransitionPolicy)
	appLog.WithField("policy", policy.Name()).Info("transition policy loaded")

	applicationService := services.NewApplicationService(
		applicationRepo,
		policy,
		services.NewNotificationService(sender, cfg.InstitutionName),
		files,
		dispatcher,
		appLog.Named("applications"),
	)
	authService := services.NewAuthService(userRepo, services.AuthConfig{
		Secret:          cfg.JWT.Secret,
		AccessTokenMins: cfg.JWT.AccessTokenMins,
	}, appLog.Named("auth"))

	ledgerAudit := services.NewLedgerAuditService(applicationRepo, appLog.Named("ledger-audit"))
	if err := ledgerAudit.Start(cfg.Workflow.LedgerAuditCron); err != nil {
		appLog.WithError(err).Fatal("❌ Invalid LEDGER_AUDIT_CRON")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.InstitutionName + " Admissions API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		BodyLimit:    cfg.Upload.MaxBodySize,
	})

	middleware.Setup(app, cfg)

	routes.Setup(app, routes.Handlers{
		Health:      handlers.NewHealthHandler(cfg),
		Auth:        handlers.NewAuthHandler(authService, cfg),
		Application: handlers.NewApplicationHandler(applicationService, files, codec, appLog.Named("http")),
	}, cfg)

	go gracefulShutdown(app, appLog)

	appLog.WithField("port", cfg.Port).WithField("mode", cfg.AppMode).Info("🚀 Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.WithError(err).Error("❌ Server stopped with error")
	}

	// Drain side effects queued by requests that completed before shutdown
	ledgerAudit.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Stop(ctx); err != nil {
		appLog.WithError(err).Warn("⚠️ Side-effect queue not fully drained")
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, appLog *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		appLog.WithError(err).Error("❌ Error during shutdown")
	}
	appLog.Info("✅ Server stopped gracefully")
}
