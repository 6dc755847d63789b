package handler

import (
	"strconv"

	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CartHandler serves the acting user's cart and its checkout.
type CartHandler struct {
	carts service.CartService
}

func NewCartHandler(carts service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type updateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.carts.Get(middleware.Identity(c).ID)})
}

// AddItem
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req service.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	cart, err := h.carts.Add(middleware.Identity(c).ID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": cart})
}

// UpdateItem changes a line by delta units.
// PATCH /api/v1/cart/items/:index
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid line index"})
	}
	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	cart, err := h.carts.Update(middleware.Identity(c).ID, index, req.Delta)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": cart})
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	h.carts.Clear(middleware.Identity(c).ID)
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

// Checkout
// POST /api/v1/checkout
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	who := middleware.Identity(c)

	result, err := h.carts.Checkout(c.UserContext(), who.ID, req, who)
	if err != nil {
		return respondError(c, err)
	}

	msg := "Sale completed"
	if len(result.StockFailures) > 0 {
		msg = "Sale completed, some stock updates failed"
	}
	return c.Status(201).JSON(fiber.Map{"message": msg, "data": result})
}
