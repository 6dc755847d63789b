package handler

import (
	"strconv"

	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/receipt"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InvoiceHandler struct {
	settlement service.SettlementService
	receipts   *receipt.Renderer
}

func NewInvoiceHandler(settlement service.SettlementService, receipts *receipt.Renderer) *InvoiceHandler {
	return &InvoiceHandler{settlement: settlement, receipts: receipts}
}

func parseInvoiceID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid invoice ID")
	}
	return uint(id), nil
}

// GetInvoices lists invoices, ?status=Paid|Pending to filter.
func (h *InvoiceHandler) GetInvoices(c *fiber.Ctx) error {
	status := model.InvoiceStatus(c.Query("status"))
	switch status {
	case "", model.StatusPaid, model.StatusPending:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "status must be Paid or Pending"})
	}
	return c.JSON(fiber.Map{"data": h.settlement.ListInvoices(status)})
}

func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	id, err := parseInvoiceID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	inv, err := h.settlement.GetInvoice(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": inv})
}

// GetReceipt renders the invoice for a thermal printer.
// GET /api/v1/invoices/:id/receipt
func (h *InvoiceHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := parseInvoiceID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	inv, err := h.settlement.GetInvoice(id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return h.receipts.Render(c, *inv)
}

// DeleteInvoice removes a sale and restores its stock. Admin only.
func (h *InvoiceHandler) DeleteInvoice(c *fiber.Ctx) error {
	id, err := parseInvoiceID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	failures, err := h.settlement.DeleteInvoice(c.UserContext(), id, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}
	resp := fiber.Map{"message": "Invoice deleted"}
	if len(failures) > 0 {
		resp["stock_failures"] = failures
	}
	return c.JSON(resp)
}
