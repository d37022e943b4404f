package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/devfeed/backend/internal/recommend"
)

type StatsHandler struct {
	orchestrator *recommend.Orchestrator
}

func NewStatsHandler(orchestrator *recommend.Orchestrator) *StatsHandler {
	return &StatsHandler{orchestrator: orchestrator}
}

// GetStats exposes the monitor's rolling aggregates: hit rate, latency
// percentiles, error rate, engine mix.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.orchestrator.Stats())
}
