package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterApprovalRoutes wires the GM approval queue.
func RegisterApprovalRoutes(r fiber.Router, h *approval.Handler) {
	group := r.Group("/approvals", middleware.RequireGM())
	group.Get("", h.Pending)
	group.Post("/:approvalId", h.Resolve)
	group.Delete("/:approvalId", h.Dismiss)
}
