package handler

import (
	"strconv"

	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetDailyThroughput returns inbound/outbound unit counts per day for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetDailyThroughput(c *fiber.Ctx) error {
	daysStr := c.Query("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		days = 7
	}

	data, err := h.service.GetDailyThroughput(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stock throughput"})
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(stats)
}

// GetRecentMovements returns the latest ledger rows for the activity feed
// Query params: limit (default 20)
func (h *DashboardHandler) GetRecentMovements(c *fiber.Ctx) error {
	limitStr := c.Query("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	movements, err := h.service.GetRecentMovements(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch recent movements"})
	}

	return c.JSON(movements)
}

// GetStockAlerts returns every record that needs restocking attention
func (h *DashboardHandler) GetStockAlerts(c *fiber.Ctx) error {
	alerts, err := h.service.GetStockAlerts()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stock alerts"})
	}

	return c.JSON(alerts)
}
