package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/identity"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterIdentityRoutes wires participant endpoints. Registration is
// public; the handler decides whether a role may be requested.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/users/register", h.Register)
	r.Get("/users/me", middleware.Authenticated(), h.Me)
	r.Post("/users/:userId/characters", middleware.RequireGM(), h.AssignCharacter)
}
