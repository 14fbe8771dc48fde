package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
)

// NewApp builds the admin fiber application.
func NewApp(persistence persistence.Persistence, orchestrator *pollers.Orchestrator) *fiber.App {
	handlers := NewAdminHandlers(persistence, orchestrator)

	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/health", handlers.HealthCheck)
	app.Post("/poll", handlers.PollAll)
	app.Post("/poll/:name", handlers.PollOne)
	app.Get("/runs/:id", handlers.GetRun)

	return app
}
