package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicdesk/municipal-service/internal/api/http/handlers"
	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Requests       *handlers.RequestsHandler
	Notifications  *handlers.NotificationsHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	authenticated := cfg.AuthMiddleware.Handle
	staffOnly := auth.RequireRole(domain.RoleEmployee, domain.RoleAdmin)
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Get("/me", authenticated, cfg.Accounts.Me)
	authGroup.Post("/password/change", authenticated, cfg.Accounts.ChangePassword)

	requests := app.Group("/requests", authenticated)
	requests.Post("/", auth.RequireRole(domain.RoleCitizen), cfg.Requests.CreateRequest)
	requests.Get("/", cfg.Requests.ListRequests)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Post("/:id/status", staffOnly, cfg.Requests.UpdateStatus)

	notifications := app.Group("/notifications", authenticated)
	notifications.Get("/", cfg.Notifications.ListUnread)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	admin := app.Group("/admin", authenticated, adminOnly)
	admin.Put("/accounts/:id/role", cfg.Accounts.SetRole)

	api := app.Group("/api")
	api.Get("/status", cfg.Health.Status)

	api.Get("/projects", cfg.Catalog.ListProjects)
	api.Get("/projects/:id", cfg.Catalog.GetProject)
	api.Post("/projects", authenticated, adminOnly, cfg.Catalog.CreateProject)
	api.Put("/projects/:id", authenticated, adminOnly, cfg.Catalog.UpdateProject)
	api.Delete("/projects/:id", authenticated, adminOnly, cfg.Catalog.DeleteProject)

	api.Get("/departments", cfg.Catalog.ListDepartments)
	api.Get("/departments/:id", cfg.Catalog.GetDepartment)
	api.Post("/departments", authenticated, adminOnly, cfg.Catalog.CreateDepartment)
	api.Put("/departments/:id", authenticated, adminOnly, cfg.Catalog.UpdateDepartment)

	api.Get("/announcements", cfg.Catalog.ListAnnouncements)
	api.Post("/announcements", authenticated, adminOnly, cfg.Catalog.CreateAnnouncement)
	api.Put("/announcements/:id", authenticated, adminOnly, cfg.Catalog.UpdateAnnouncement)

	api.Get("/deliberations", cfg.Catalog.ListDeliberations)
	api.Post("/deliberations", authenticated, adminOnly, cfg.Catalog.CreateDeliberation)
	api.Put("/deliberations/:id", authenticated, adminOnly, cfg.Catalog.UpdateDeliberation)

	api.Get("/decisions", cfg.Catalog.ListDecisions)
	api.Post("/decisions", authenticated, adminOnly, cfg.Catalog.CreateDecision)
	api.Put("/decisions/:id", authenticated, adminOnly, cfg.Catalog.UpdateDecision)

	api.Get("/services", cfg.Catalog.ListServices)
	api.Post("/services", authenticated, adminOnly, cfg.Catalog.CreateService)
	api.Put("/services/:id", authenticated, adminOnly, cfg.Catalog.UpdateService)

	api.Get("/settings", cfg.Catalog.ListSettings)
	api.Put("/settings/:name", authenticated, adminOnly, cfg.Catalog.PutSetting)
}
