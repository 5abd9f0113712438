package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterInventoryRoutes exposes an actor's non-coin items.
func RegisterInventoryRoutes(r fiber.Router, store inventory.Store) {
	r.Get("/actors/:actorId/inventory", middleware.RequireHolderAccess("actorId"), func(c *fiber.Ctx) error {
		actorID := c.Params("actorId")
		items, err := store.List(c.UserContext(), actorID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"actor_id": actorID,
			"items":    items,
		})
	})
}
