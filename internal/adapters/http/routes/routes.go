package routes

import (
	"campus-admissions/internal/adapters/http/handlers"
	"campus-admissions/internal/adapters/http/middleware"
	"campus-admissions/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Application *handlers.ApplicationHandler
}

// Setup configures all routes for the application
func Setup(app *fiber.App, h Handlers, cfg *config.Config) {
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, h, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(router fiber.Router, h Handlers, cfg *config.Config) {
	router.Get("/", h.Health.APIInfo)

	// Auth routes
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, h.Auth, cfg)

	// Public application submission
	router.Post("/applications", middleware.SubmissionRateLimiter(), h.Application.Create)

	// Review routes (Reviewer/Admin)
	adminRoutes := router.Group("/admin/applications")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.StaffOnly())
	setupAdminApplicationRoutes(adminRoutes, h.Application)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/logout", handler.Logout)

	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
}

// setupAdminApplicationRoutes configures application review routes
func setupAdminApplicationRoutes(router fiber.Router, handler *handlers.ApplicationHandler) {
	// Bulk routes are registered before /:ref so "bulk" is never taken as a reference
	router.Post("/bulk/status", handler.BulkStatus)
	router.Post("/bulk/delete", middleware.AdminOnly(), handler.BulkDelete)

	router.Get("/:ref", handler.Get)
	router.Get("/:ref/history", handler.History)
	router.Patch("/:ref/status", handler.ChangeStatus)
	router.Put("/:ref", handler.Update)
	router.Delete("/:ref", middleware.AdminOnly(), handler.Delete)
}
