package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/middleware"
	"github.com/gm-shop/gm_shop/internal/transaction"
)

// RegisterTransactionRoutes wires purchase and sell endpoints behind the
// rate limiter and idempotency replay.
func RegisterTransactionRoutes(r fiber.Router, h *transaction.Handler, rateLimiter, idempotency fiber.Handler) {
	auth := middleware.Authenticated()
	r.Post("/vendors/:vendorId/purchase", auth, rateLimiter, idempotency, h.Purchase)
	r.Post("/actors/:actorId/sell", auth, rateLimiter, idempotency, h.Sell)
}
