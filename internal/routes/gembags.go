package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/gembag"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterGemBagRoutes wires gem bag preview and distribution.
func RegisterGemBagRoutes(r fiber.Router, h *gembag.Handler) {
	gm := middleware.RequireGM()
	r.Post("/gembags", gm, h.Preview)
	r.Post("/actors/:actorId/gembags", gm, h.Give)
}
