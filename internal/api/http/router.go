package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guestlist-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Guests  *handlers.GuestsHandler
	Notify  *handlers.NotifyHandler
	Checkin *handlers.CheckinHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	guests := app.Group("/guests")
	guests.Get("/", cfg.Guests.List)
	guests.Post("/", cfg.Guests.Create)
	guests.Post("/bulk", cfg.Guests.BulkImport)
	guests.Post("/send-all", cfg.Notify.SendAllInvites)
	guests.Post("/send-all-whatsapp", cfg.Notify.SendAllWhatsapp)
	guests.Get("/:id", cfg.Guests.Get)
	guests.Patch("/:id", cfg.Guests.Update)
	guests.Delete("/:id", cfg.Guests.Delete)
	guests.Post("/:id/invite", cfg.Notify.SendInvite)
	guests.Post("/:id/whatsapp", cfg.Notify.SendWhatsapp)

	app.Post("/checkin", cfg.Checkin.Process)
}
