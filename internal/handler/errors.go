package handler

import (
	"errors"

	"go-udhar-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondError maps engine error kinds onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrPersistence):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
