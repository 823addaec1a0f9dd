package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-inbox/internal/analytics"
)

// AnalyticsHandler serves the dashboard report.
type AnalyticsHandler struct {
	aggregator *analytics.Aggregator
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(aggregator *analytics.Aggregator) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator}
}

// Report GET /api/analytics.
func (h *AnalyticsHandler) Report(c *fiber.Ctx) error {
	report, err := h.aggregator.Compute(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
