package handler

import (
	"time"

	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UdharHandler struct {
	ledger service.LedgerService
}

func NewUdharHandler(ledger service.LedgerService) *UdharHandler {
	return &UdharHandler{ledger: ledger}
}

type collectRequest struct {
	Amount float64 `json:"amount"`
}

// GetOutstanding lists unpaid invoices oldest first. ?q= searches name,
// phone or invoice number.
func (h *UdharHandler) GetOutstanding(c *fiber.Ctx) error {
	items := h.ledger.ListOutstanding(c.Query("q"))
	return c.JSON(fiber.Map{
		"data":             items,
		"count":            len(items),
		"total_receivable": h.ledger.TotalReceivable(),
	})
}

func (h *UdharHandler) GetOverdue(c *fiber.Ctx) error {
	items := h.ledger.ListOverdue(time.Now())
	return c.JSON(fiber.Map{"data": items, "count": len(items)})
}

// CollectPayment
// POST /api/v1/udhar/:id/payments
func (h *UdharHandler) CollectPayment(c *fiber.Ctx) error {
	id, err := parseInvoiceID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	var req collectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	inv, err := h.ledger.CollectPayment(c.UserContext(), id, req.Amount, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment recorded", "data": inv})
}
