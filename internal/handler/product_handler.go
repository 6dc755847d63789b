package handler

import (
	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.ListProducts()})
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	p, err := h.service.GetProduct(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": p})
}

// GetLowStock
// GET /api/v1/products/low-stock
func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	items := h.service.LowStock()
	return c.JSON(fiber.Map{"data": items, "count": len(items)})
}

// GetUnitOptions lists the preset quantities offered for a product.
// GET /api/v1/products/:id/units
func (h *ProductHandler) GetUnitOptions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	units, err := h.service.UnitOptions(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": units})
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	product.ID = uuid.Nil

	if err := h.service.CreateProduct(c.UserContext(), &product, middleware.Identity(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req model.Product
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), id, &req, middleware.Identity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	if err := h.service.DeleteProduct(c.UserContext(), id, middleware.Identity(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
