package handler

import (
	"strconv"
	"time"

	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	reports service.ReportService
}

func NewReportHandler(reports service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) GetMonthly(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reports.Monthly()})
}

func (h *ReportHandler) GetDashboard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reports.Dashboard(time.Now())})
}

// GetValuation totals stock at cost per category.
func (h *ReportHandler) GetValuation(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reports.Valuation()})
}

// GetStockMovement returns daily inbound, outbound and adjusted quantities.
// Query params: days (default 7)
func (h *ReportHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}
	data, err := h.reports.StockMovement(c.UserContext(), days, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"period": days, "data": data})
}

// GetProductMovements lists the latest stock movements of one product.
// GET /api/v1/products/:id/movements?limit=50
func (h *ReportHandler) GetProductMovements(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	limit := c.QueryInt("limit", 50)
	data, err := h.reports.ProductMovements(c.UserContext(), id, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": data})
}
