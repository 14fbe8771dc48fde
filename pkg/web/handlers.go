// Package web provides the poller service's admin HTTP surface: health,
// run inspection and ad-hoc poll invocation.
package web

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
)

type AdminHandlers struct {
	persistence  persistence.Persistence
	orchestrator *pollers.Orchestrator
}

func NewAdminHandlers(persistence persistence.Persistence, orchestrator *pollers.Orchestrator) *AdminHandlers {
	return &AdminHandlers{
		persistence:  persistence,
		orchestrator: orchestrator,
	}
}

func (h *AdminHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"pollers":   h.orchestrator.Names(),
		"timestamp": time.Now().UTC(),
	})
}

// PollAll invokes every registered poller once, outside their schedule.
func (h *AdminHandlers) PollAll(c fiber.Ctx) error {
	results := h.orchestrator.PollAll(c.Context())

	total := pollers.Result{}
	for _, result := range results {
		total = total.Add(result)
	}

	return c.JSON(fiber.Map{
		"results": results,
		"total":   total,
	})
}

// PollOne invokes a single poller by name.
func (h *AdminHandlers) PollOne(c fiber.Ctx) error {
	name := c.Params("name")

	result, found := h.orchestrator.PollOne(c.Context(), name)
	if !found {
		return notFound(c, "poller "+name+" is not registered")
	}

	return c.JSON(fiber.Map{
		"poller": name,
		"result": result,
	})
}

// GetRun exposes a run's captured metadata for debugging stalled workflows.
func (h *AdminHandlers) GetRun(c fiber.Ctx) error {
	run, err := h.persistence.RunByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(run)
}
