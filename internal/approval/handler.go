package approval

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the GM approval queue.
type Handler struct {
	registry *Registry
}

// NewHandler constructs an approval HTTP handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Pending lists open approvals.
func (h *Handler) Pending(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"approvals": h.registry.Pending()})
}

// Resolve records the GM decision.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req Decision
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.registry.Resolve(c.Params("approvalId"), req); err != nil {
		return toFiberError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Dismiss closes an approval without a choice.
func (h *Handler) Dismiss(c *fiber.Ctx) error {
	if err := h.registry.Dismiss(c.Params("approvalId")); err != nil {
		return toFiberError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func toFiberError(err error) error {
	if errors.Is(err, ErrUnknownApproval) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return fiber.NewError(http.StatusInternalServerError, err.Error())
}
