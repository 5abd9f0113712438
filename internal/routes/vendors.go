package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/middleware"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

// RegisterVendorRoutes wires the vendor catalog. Reads are open; inactive
// vendors are only listed for the GM.
func RegisterVendorRoutes(r fiber.Router, h *vendor.Handler) {
	gm := middleware.RequireGM()

	r.Get("/vendors", h.List)
	r.Get("/vendors/:vendorId", h.Get)
	r.Post("/vendors", gm, h.Create)
	r.Put("/vendors/:vendorId", gm, h.Update)
	r.Delete("/vendors/:vendorId", gm, h.Delete)
	r.Post("/vendors/:vendorId/items", gm, h.AddItem)
	r.Delete("/vendors/:vendorId/items/:itemId", gm, h.RemoveItem)
	r.Post("/vendors/:vendorId/items/:itemId/restock", gm, h.Restock)
}
