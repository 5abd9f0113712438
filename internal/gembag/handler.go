package gembag

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes gem bag endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a gem bag HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Preview returns a bag without distributing it.
func (h *Handler) Preview(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Preview(c.UserContext(), req)
	if err != nil {
		return toFiberError(err)
	}
	return c.Status(http.StatusOK).JSON(res)
}

// Give builds a bag and adds it to the actor's inventory.
func (h *Handler) Give(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, items, err := h.service.Give(c.UserContext(), c.Params("actorId"), req)
	if err != nil {
		return toFiberError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"bag": res, "items": items})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrNoGemTypes), errors.Is(err, ErrInvalidTypeRange),
		errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrNoSizes):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
