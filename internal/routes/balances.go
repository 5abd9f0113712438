package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/ledger"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterBalanceRoutes wires holder balance endpoints. Players may read
// their own characters' balances; only the GM writes them.
func RegisterBalanceRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/holders/:holderId/balance", middleware.RequireHolderAccess("holderId"), h.Balance)
	r.Put("/holders/:holderId/balance", middleware.RequireGM(), h.Set)
	r.Post("/holders/:holderId/balance/add", middleware.RequireGM(), h.Add)
}
