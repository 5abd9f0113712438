package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/kvstore"
	"github.com/gm-shop/gm_shop/internal/middleware"
)

// RegisterSettingsRoutes exposes the live shop settings. Updates are
// validated, applied to every subscriber and persisted to the host store.
func RegisterSettingsRoutes(r fiber.Router, settings *config.Settings, store kvstore.Store, logger *slog.Logger) {
	r.Get("/settings", middleware.Authenticated(), func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(settings.Get())
	})

	r.Put("/settings", middleware.RequireGM(), func(c *fiber.Ctx) error {
		next := settings.Get()
		if err := c.BodyParser(&next); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := settings.Update(next); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		current := settings.Get()
		if err := config.SaveShop(c.UserContext(), store, current); err != nil {
			// The update is live in this process; it just won't survive a restart.
			logger.Error("persist shop settings failed", slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "settings applied but not persisted")
		}
		logger.Info("shop settings updated",
			slog.Bool("module_currency", current.UseModuleCurrency),
			slog.Bool("require_gm_approval", current.RequireGMApproval),
			slog.Int("auto_sell_percentage", current.AutoSellPercentage),
		)
		return c.Status(http.StatusOK).JSON(current)
	})
}
